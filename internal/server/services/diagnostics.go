package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/server/config"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/repomanager"
)

type DiagnosticsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	timeout     time.Duration
}

func NewDiagnosticsService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *DiagnosticsService {
	return &DiagnosticsService{db: db, repomanager: m, timeout: cfg.OperationTimeout}
}

func (s *DiagnosticsService) Ping(ctx context.Context) (int, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	one, err := s.repomanager.Diagnostics(s.db).Ping(ctx)
	if err != nil {
		return 0, storeError("ping", err)
	}
	return one, nil
}

func (s *DiagnosticsService) Tables(ctx context.Context) ([]models.Table, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	tables, err := s.repomanager.Diagnostics(s.db).Tables(ctx)
	if err != nil {
		return nil, storeError("tables", err)
	}
	return tables, nil
}
