// Package strategies persists per-user trading strategy configuration.
// Every create appends a row; nothing is updated in place.
package strategies

import (
	"context"

	"github.com/dmitrijs2005/bitcor/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Strategy) (*models.Strategy, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Strategy, error)
}
