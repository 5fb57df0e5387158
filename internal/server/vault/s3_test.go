package vault

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu       sync.Mutex
	objects  map[string][]byte
	putErr   error
	lastPuts []*s3.PutObjectInput
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPuts = append(f.lastPuts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	key := aws.ToString(in.Key)
	if aws.ToString(in.IfNoneMatch) == "*" {
		if _, ok := f.objects[key]; ok {
			return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
		}
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[key] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("The specified key does not exist.")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func newTestSealer(t *testing.T) *cryptox.Sealer {
	t.Helper()
	s, err := cryptox.NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return s
}

func TestS3Backend_CreateIsConditional(t *testing.T) {
	fake := newFakeS3()
	b := NewS3Backend(fake, "vault", newTestSealer(t))
	ctx := context.Background()

	res, err := b.Create(ctx, "/bitcor/alpaca/u1", []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, Created, res)

	res, err = b.Create(ctx, "/bitcor/alpaca/u1", []byte("b"))
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, res)

	require.Len(t, fake.lastPuts, 2)
	assert.Equal(t, "bitcor/alpaca/u1", aws.ToString(fake.lastPuts[0].Key))
	assert.Equal(t, "vault", aws.ToString(fake.lastPuts[0].Bucket))

	got, err := b.Read(ctx, "/bitcor/alpaca/u1")
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
}

func TestS3Backend_StoresSealedBlobs(t *testing.T) {
	fake := newFakeS3()
	b := NewS3Backend(fake, "vault", newTestSealer(t))
	ctx := context.Background()

	_, err := b.Create(ctx, "/ns/polygon/u1", []byte(`{"api_key":"plain"}`))
	require.NoError(t, err)
	assert.NotContains(t, string(fake.objects["ns/polygon/u1"]), "plain")

	// a blob moved to another key does not open
	fake.objects["ns/polygon/u2"] = fake.objects["ns/polygon/u1"]
	_, err = b.Read(ctx, "/ns/polygon/u2")
	assert.Error(t, err)
}

func TestS3Backend_ConditionalConflict(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = &smithy.GenericAPIError{Code: "ConditionalRequestConflict"}
	b := NewS3Backend(fake, "vault", newTestSealer(t))

	_, err := b.Create(context.Background(), "/x/y/z", []byte("v"))
	assert.ErrorIs(t, err, common.ErrVaultConflict)
}

func TestS3Backend_ReadMissing(t *testing.T) {
	b := NewS3Backend(newFakeS3(), "vault", newTestSealer(t))
	_, err := b.Read(context.Background(), "/x/y/z")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Backend_WithClient(t *testing.T) {
	fake := newFakeS3()
	c, _ := newTestClient(NewS3Backend(fake, "vault", newTestSealer(t)))
	ctx := context.Background()

	_, err := c.UpsertSecret(ctx, "alpaca", "u1", []byte("one"))
	require.NoError(t, err)
	_, err = c.UpsertSecret(ctx, "alpaca", "u1", []byte("two"))
	require.NoError(t, err)

	assert.Len(t, fake.objects, 1)
	got, err := c.ReadSecret(ctx, "alpaca", "u1")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	require.NoError(t, c.DeleteSecret(ctx, "alpaca", "u1"))
	assert.Empty(t, fake.objects)
}
