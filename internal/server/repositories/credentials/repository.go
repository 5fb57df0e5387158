// Package credentials persists credential pointers: which vault address holds
// a user's secret for a given provider.
package credentials

import (
	"context"

	"github.com/dmitrijs2005/bitcor/internal/server/models"
)

type Repository interface {
	// Upsert creates or replaces the pointer for (userID, provider) in one
	// statement. An unknown userID yields common.ErrConstraintViolation.
	Upsert(ctx context.Context, userID, provider, address string) error

	// Get returns common.ErrorNotFound when no pointer exists.
	Get(ctx context.Context, userID, provider string) (*models.CredentialPointer, error)

	ListByUser(ctx context.Context, userID string) ([]*models.CredentialPointer, error)
}
