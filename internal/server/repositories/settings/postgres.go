package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/dbx"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	query := `
		INSERT INTO settings (user_id, baseline_method, multiple_up, multiple_down, enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, s.UserID, s.BaselineMethod, s.MultipleUp, s.MultipleDown, s.Enabled).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %s: %w", s.UserID, common.ErrConstraintViolation)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Latest(ctx context.Context, userID string) (*models.Settings, error) {
	query := `
		SELECT id, user_id, baseline_method, multiple_up, multiple_down, enabled, created_at
		FROM settings
		WHERE user_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	s := &models.Settings{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&s.ID, &s.UserID, &s.BaselineMethod, &s.MultipleUp, &s.MultipleDown, &s.Enabled, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
