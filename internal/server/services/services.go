// Package services contains server-side business logic: identity
// resolution, credential storage across the vault and the relational store,
// strategy and settings management, and database diagnostics.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/common"
)

// SecretVault is the part of vault.Client used by the services.
type SecretVault interface {
	UpsertSecret(ctx context.Context, provider, userID string, payload []byte) (string, error)
	ReadSecret(ctx context.Context, provider, userID string) ([]byte, error)
	DeleteSecret(ctx context.Context, provider, userID string) error
}

// withTimeout bounds one logical operation. A zero timeout leaves ctx as is.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError passes through errors callers can act on and reports anything
// else as ErrStoreUnavailable.
func storeError(op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrConstraintViolation) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrStoreUnavailable, err)
}
