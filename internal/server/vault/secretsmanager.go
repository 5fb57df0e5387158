package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/dmitrijs2005/bitcor/internal/common"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// SecretsManagerBackend keeps one secret per address, named by the address.
type SecretsManagerBackend struct {
	client SecretsManagerAPI
}

func NewSecretsManagerBackend(client SecretsManagerAPI) *SecretsManagerBackend {
	return &SecretsManagerBackend{client: client}
}

func (b *SecretsManagerBackend) Name() string { return "secretsmanager" }

func (b *SecretsManagerBackend) Create(ctx context.Context, address string, payload []byte) (CreateResult, error) {
	_, err := b.client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
		Name:         aws.String(address),
		SecretString: aws.String(string(payload)),
		Description:  aws.String("bitcor provider credentials"),
	})
	if err != nil {
		var exists *types.ResourceExistsException
		if errors.As(err, &exists) {
			return AlreadyExists, nil
		}
		return Created, err
	}
	return Created, nil
}

func (b *SecretsManagerBackend) Update(ctx context.Context, address string, payload []byte) error {
	_, err := b.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(address),
		SecretString: aws.String(string(payload)),
	})
	return mapSecretsManagerError(err)
}

func (b *SecretsManagerBackend) Read(ctx context.Context, address string) ([]byte, error) {
	out, err := b.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(address),
	})
	if err != nil {
		return nil, mapSecretsManagerError(err)
	}
	switch {
	case out.SecretString != nil:
		return []byte(*out.SecretString), nil
	case out.SecretBinary != nil:
		return out.SecretBinary, nil
	default:
		return nil, fmt.Errorf("secret %s has no value", address)
	}
}

// Delete skips the recovery window so a later Create at the same address succeeds.
func (b *SecretsManagerBackend) Delete(ctx context.Context, address string) error {
	_, err := b.client.DeleteSecret(ctx, &secretsmanager.DeleteSecretInput{
		SecretId:                   aws.String(address),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	})
	if err = mapSecretsManagerError(err); errors.Is(err, common.ErrorNotFound) {
		return nil
	}
	return err
}

func mapSecretsManagerError(err error) error {
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return common.ErrorNotFound
	}
	return err
}
