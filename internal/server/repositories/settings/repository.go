// Package settings persists per-user settings as an append-only history.
// The row with the highest id is the current one.
package settings

import (
	"context"

	"github.com/dmitrijs2005/bitcor/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, s *models.Settings) (*models.Settings, error)

	// Latest returns common.ErrorNotFound when the user has no settings yet.
	Latest(ctx context.Context, userID string) (*models.Settings, error)
}
