package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/bitcor/internal/common"
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Sealer encrypts payloads before they reach the bucket; see cryptox.Sealer.
type Sealer interface {
	Seal(plaintext []byte, address string) []byte
	Open(blob []byte, address string) ([]byte, error)
}

// S3Backend stores sealed payloads in a bucket (S3 or MinIO), one object per
// address. Create uses a conditional put (If-None-Match: *), so an existing
// object is reported instead of overwritten.
type S3Backend struct {
	client S3API
	bucket string
	sealer Sealer
}

func NewS3Backend(client S3API, bucket string, sealer Sealer) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, sealer: sealer}
}

func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) key(address string) string {
	return strings.TrimPrefix(address, "/")
}

func (b *S3Backend) Create(ctx context.Context, address string, payload []byte) (CreateResult, error) {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(address)),
		Body:        bytes.NewReader(b.sealer.Seal(payload, address)),
		ContentType: aws.String("application/octet-stream"),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		switch apiErrorCode(err) {
		case "PreconditionFailed":
			return AlreadyExists, nil
		case "ConditionalRequestConflict":
			return Created, common.ErrVaultConflict
		}
		return Created, err
	}
	return Created, nil
}

// Update overwrites unconditionally; last writer wins.
func (b *S3Backend) Update(ctx context.Context, address string, payload []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(address)),
		Body:        bytes.NewReader(b.sealer.Seal(payload, address)),
		ContentType: aws.String("application/octet-stream"),
	})
	return err
}

func (b *S3Backend) Read(ctx context.Context, address string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(address)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) || apiErrorCode(err) == "NoSuchKey" {
			return nil, common.ErrorNotFound
		}
		return nil, err
	}
	defer out.Body.Close()

	blob, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return b.sealer.Open(blob, address)
}

func (b *S3Backend) Delete(ctx context.Context, address string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(address)),
	})
	return err
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
