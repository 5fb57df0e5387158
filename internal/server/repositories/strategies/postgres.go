package strategies

import (
	"context"
	"encoding/json"
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

func (r *PostgresRepository) Create(ctx context.Context, s *models.Strategy) (*models.Strategy, error) {
	query := `
		INSERT INTO strategies
			(id, user_id, name, status, is_paper, baseline_method, budget_usd,
			 buy_multiple, sell_multiple, trading_hours, params)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.UserID, s.Name, s.Status, s.IsPaper, s.BaselineMethod, s.BudgetUSD,
		s.BuyMultiple, s.SellMultiple, jsonText(s.TradingHours), jsonText(s.Params),
	).Scan(&s.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %s: %w", s.UserID, common.ErrConstraintViolation)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Strategy, error) {
	query := `
		SELECT id, user_id, name, status, is_paper, baseline_method, budget_usd,
			buy_multiple, sell_multiple, trading_hours, params, created_at
		FROM strategies
		WHERE user_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Strategy
	for rows.Next() {
		var (
			s            models.Strategy
			hours, param []byte
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Status, &s.IsPaper, &s.BaselineMethod,
			&s.BudgetUSD, &s.BuyMultiple, &s.SellMultiple, &hours, &param, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.TradingHours = json.RawMessage(hours)
		s.Params = json.RawMessage(param)
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// jsonText hands jsonb columns their text form; empty means an empty object.
func jsonText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
