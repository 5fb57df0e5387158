package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/dbx"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, userID, provider, address string) error {
	query := `
		INSERT INTO api_credentials (user_id, provider, secret_address)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, provider)
		DO UPDATE SET
			secret_address = EXCLUDED.secret_address,
			updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, userID, provider, address); err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return fmt.Errorf("user %s: %w", userID, common.ErrConstraintViolation)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, provider string) (*models.CredentialPointer, error) {
	query := `
		SELECT user_id, provider, secret_address, updated_at
		FROM api_credentials
		WHERE user_id = $1 AND provider = $2
	`
	p := &models.CredentialPointer{}
	err := r.db.QueryRowContext(ctx, query, userID, provider).
		Scan(&p.UserID, &p.Provider, &p.SecretAddress, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.CredentialPointer, error) {
	query := `
		SELECT user_id, provider, secret_address, updated_at
		FROM api_credentials
		WHERE user_id = $1
		ORDER BY provider
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.CredentialPointer
	for rows.Next() {
		var p models.CredentialPointer
		if err := rows.Scan(&p.UserID, &p.Provider, &p.SecretAddress, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
