package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/logging"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const defaultMultiple = 1.0

// maxBudgetUSD keeps budgets inside the NUMERIC(18, 2) column.
const maxBudgetUSD = 1e15

type StrategyService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	timeout     time.Duration
}

func NewStrategyService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *StrategyService {
	return &StrategyService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "strategies"),
		timeout:     cfg.OperationTimeout,
	}
}

// Create validates spec and appends a new active strategy for userID.
func (s *StrategyService) Create(ctx context.Context, userID string, spec models.StrategySpec) (*models.Strategy, error) {
	strategy, err := newStrategy(userID, spec)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.repomanager.Strategies(s.db).Create(ctx, strategy)
	if err != nil {
		return nil, storeError("create strategy", err)
	}
	s.logger.Info(ctx, "strategy created", "user_id", userID, "strategy_id", created.ID)
	return created, nil
}

func (s *StrategyService) List(ctx context.Context, userID string) ([]*models.Strategy, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	list, err := s.repomanager.Strategies(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError("list strategies", err)
	}
	return list, nil
}

func newStrategy(userID string, spec models.StrategySpec) (*models.Strategy, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, invalidSpec("name is required")
	}
	baseline := strings.TrimSpace(spec.BaselineMethod)
	if baseline == "" {
		return nil, invalidSpec("baseline_method is required")
	}
	if err := checkBudget(spec.BudgetUSD); err != nil {
		return nil, err
	}
	hours, err := jsonObject("trading_hours", spec.TradingHours)
	if err != nil {
		return nil, err
	}
	params, err := jsonObject("params", spec.Params)
	if err != nil {
		return nil, err
	}
	buy, err := multiple("buy_multiple", spec.BuyMultiple, common.ErrInvalidStrategySpec)
	if err != nil {
		return nil, err
	}
	sell, err := multiple("sell_multiple", spec.SellMultiple, common.ErrInvalidStrategySpec)
	if err != nil {
		return nil, err
	}

	isPaper := true
	if spec.IsPaper != nil {
		isPaper = *spec.IsPaper
	}

	return &models.Strategy{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           name,
		Status:         common.StrategyStatusActive,
		IsPaper:        isPaper,
		BaselineMethod: baseline,
		BudgetUSD:      spec.BudgetUSD,
		BuyMultiple:    buy,
		SellMultiple:   sell,
		TradingHours:   hours,
		Params:         params,
	}, nil
}

// checkBudget requires a finite amount in [0, maxBudgetUSD] with at most
// two decimal places, so nothing is rounded or overflows in the column.
func checkBudget(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalidSpec("budget_usd must be a non-negative number")
	}
	if v > maxBudgetUSD {
		return invalidSpec("budget_usd is too large")
	}
	if _, frac, ok := strings.Cut(strconv.FormatFloat(v, 'f', -1, 64), "."); ok && len(frac) > 2 {
		return invalidSpec("budget_usd allows at most two decimal places")
	}
	return nil
}

// jsonObject accepts a JSON object; empty input and null become {}.
func jsonObject(field string, raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), nil
	}
	if trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, invalidSpec(field + " must be a JSON object")
	}
	return json.RawMessage(trimmed), nil
}

// multiple applies the 1.0 default and requires a finite positive value.
func multiple(field string, v *float64, sentinel error) (float64, error) {
	if v == nil {
		return defaultMultiple, nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 {
		return 0, fmt.Errorf("%w: %s must be greater than zero", sentinel, field)
	}
	return *v, nil
}

func invalidSpec(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidStrategySpec, msg)
}
