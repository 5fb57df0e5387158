// Package diagnostics runs read-only probe queries against the database.
package diagnostics

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bitcor/internal/dbx"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
)

type Repository interface {
	Ping(ctx context.Context) (int, error)
	Tables(ctx context.Context) ([]models.Table, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ping round-trips SELECT 1 and returns the value read back.
func (r *PostgresRepository) Ping(ctx context.Context) (int, error) {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 AS one`).Scan(&one); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return one, nil
}

// Tables lists base tables across all schemas visible to the connection.
func (r *PostgresRepository) Tables(ctx context.Context) ([]models.Table, error) {
	query := `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		ORDER BY 1, 2
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := []models.Table{}
	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
