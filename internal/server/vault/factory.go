package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/dmitrijs2005/bitcor/internal/cryptox"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
)

// sealSalt is prefixed to the namespace to salt the sealing key.
const sealSalt = "bitcor-vault-seal"

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newSecretsManagerClient = func(cfg aws.Config, optFns ...func(*secretsmanager.Options)) SecretsManagerAPI {
		return secretsmanager.NewFromConfig(cfg, optFns...)
	}

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) S3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewBackend builds the backend selected by cfg.VaultBackend.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	switch cfg.VaultBackend {
	case config.VaultBackendSecretsManager:
		client := newSecretsManagerClient(awsCfg, func(o *secretsmanager.Options) {
			if cfg.AWSEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
			}
		})
		return NewSecretsManagerBackend(client), nil

	case config.VaultBackendS3:
		if cfg.S3SealPassphrase == "" || cfg.S3SealPassphrase == config.DefaultS3SealPassphrase {
			return nil, errors.New("s3 vault backend needs a non-default seal passphrase (-k or s3_seal_passphrase)")
		}
		sealer, err := cryptox.NewPassphraseSealer(cfg.S3SealPassphrase, sealSalt+cfg.VaultNamespace)
		if err != nil {
			return nil, fmt.Errorf("vault sealer: %w", err)
		}
		client := newS3Client(awsCfg, func(o *s3.Options) {
			if cfg.AWSEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpoint)
				// MinIO
				o.UsePathStyle = true
			}
		})
		return NewS3Backend(client, cfg.S3Bucket, sealer), nil
	}

	return nil, fmt.Errorf("unknown vault backend %q", cfg.VaultBackend)
}
