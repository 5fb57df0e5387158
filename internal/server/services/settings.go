package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/common"
	"github.com/dmitrijs2005/bitcor/internal/logging"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/repomanager"
)

// SettingsService keeps settings as an append-only history and serves the
// newest row.
type SettingsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	timeout     time.Duration
}

func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *SettingsService {
	return &SettingsService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "settings"),
		timeout:     cfg.OperationTimeout,
	}
}

func (s *SettingsService) Put(ctx context.Context, userID string, spec models.SettingsSpec) (*models.Settings, error) {
	baseline := strings.TrimSpace(spec.BaselineMethod)
	if baseline == "" {
		return nil, fmt.Errorf("%w: baseline_method is required", common.ErrInvalidPayload)
	}
	up, err := multiple("multiple_up", spec.MultipleUp, common.ErrInvalidPayload)
	if err != nil {
		return nil, err
	}
	down, err := multiple("multiple_down", spec.MultipleDown, common.ErrInvalidPayload)
	if err != nil {
		return nil, err
	}
	enabled := true
	if spec.Enabled != nil {
		enabled = *spec.Enabled
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.repomanager.Settings(s.db).Append(ctx, &models.Settings{
		UserID:         userID,
		BaselineMethod: baseline,
		MultipleUp:     up,
		MultipleDown:   down,
		Enabled:        enabled,
	})
	if err != nil {
		return nil, storeError("append settings", err)
	}
	s.logger.Info(ctx, "settings saved", "user_id", userID, "settings_id", row.ID)
	return row, nil
}

// Get returns the current settings or common.ErrorNotFound.
func (s *SettingsService) Get(ctx context.Context, userID string) (*models.Settings, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.repomanager.Settings(s.db).Latest(ctx, userID)
	if err != nil {
		return nil, storeError("latest settings", err)
	}
	return row, nil
}
