// Package server wires the bitcor API process together: configuration,
// logging, the database pool, the secret vault, the services and the HTTP
// server. It also owns signal handling and the shutdown order.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/bitcor/internal/logging"
	"github.com/dmitrijs2005/bitcor/internal/server/auth"
	"github.com/dmitrijs2005/bitcor/internal/server/config"
	"github.com/dmitrijs2005/bitcor/internal/server/httpapi"
	"github.com/dmitrijs2005/bitcor/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/bitcor/internal/server/services"
	"github.com/dmitrijs2005/bitcor/internal/server/vault"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.HTTPServer
}

// openDB is a seam for tests.
var openDB = repomanager.Open

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	assertion, err := auth.NewIdentityAssertion(c)
	if err != nil {
		return nil, err
	}

	backend, err := vault.NewBackend(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("vault init error: %w", err)
	}

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	vc := vault.NewClient(backend, c.VaultNamespace, logger, vault.NewMetrics(reg))

	svc := httpapi.Services{
		Identity:    services.NewIdentityService(db, rm, c, logger),
		Credentials: services.NewCredentialService(db, rm, vc, c, logger),
		Strategies:  services.NewStrategyService(db, rm, c, logger),
		Settings:    services.NewSettingsService(db, rm, c, logger),
		Diagnostics: services.NewDiagnosticsService(db, rm, c),
	}

	srv := httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, assertion, svc, reg)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until a termination signal arrives or the server fails, then
// closes the database pool.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "vault_backend", app.config.VaultBackend, "identity_mode", app.config.IdentityMode)

	app.initSignalHandler(cancelFunc)

	runErr := app.server.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", runErr)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return runErr
}
