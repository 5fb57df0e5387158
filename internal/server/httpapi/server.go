// Package httpapi exposes the bitcor services over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/bitcor/internal/logging"
	"github.com/dmitrijs2005/bitcor/internal/server/auth"
	"github.com/dmitrijs2005/bitcor/internal/server/models"
	"github.com/dmitrijs2005/bitcor/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

type IdentityResolver interface {
	Resolve(ctx context.Context, subject, email string) (string, error)
}

type CredentialManager interface {
	Upsert(ctx context.Context, userID, provider string, raw []byte) (string, error)
	Status(ctx context.Context, userID, provider string) (*services.CredentialStatus, error)
	List(ctx context.Context, userID string) ([]*models.CredentialPointer, error)
}

type StrategyManager interface {
	Create(ctx context.Context, userID string, spec models.StrategySpec) (*models.Strategy, error)
	List(ctx context.Context, userID string) ([]*models.Strategy, error)
}

type SettingsManager interface {
	Put(ctx context.Context, userID string, spec models.SettingsSpec) (*models.Settings, error)
	Get(ctx context.Context, userID string) (*models.Settings, error)
}

type Diagnostics interface {
	Ping(ctx context.Context) (int, error)
	Tables(ctx context.Context) ([]models.Table, error)
}

// Services groups the business operations served by HTTPServer.
type Services struct {
	Identity    IdentityResolver
	Credentials CredentialManager
	Strategies  StrategyManager
	Settings    SettingsManager
	Diagnostics Diagnostics
}

type HTTPServer struct {
	address   string
	logger    logging.Logger
	assertion auth.IdentityAssertion
	services  Services
	metrics   *Metrics
	router    chi.Router
}

// NewHTTPServer builds the router. reg receives the HTTP metrics and is
// served on /metrics.
func NewHTTPServer(address string, l logging.Logger, assertion auth.IdentityAssertion, svc Services, reg *prometheus.Registry) *HTTPServer {
	s := &HTTPServer{
		address:   address,
		logger:    l.With("module", "http_server"),
		assertion: assertion,
		services:  svc,
		metrics:   NewMetrics(reg),
	}
	s.router = s.routes(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return s
}

func (s *HTTPServer) routes(metricsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.healthz)
	r.Get("/db/ping", s.dbPing)
	r.Get("/db/tables", s.dbTables)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/users/me", func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/credentials", s.listCredentials)
		r.Post("/credentials/{provider}", s.upsertCredentials)
		r.Get("/credentials/{provider}", s.credentialStatus)

		r.Post("/strategies", s.createStrategy)
		r.Get("/strategies", s.listStrategies)

		r.Put("/settings", s.putSettings)
		r.Get("/settings", s.getSettings)
	})

	return r
}

// Handler returns the router; used by tests and embedding servers.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-stopped
	return nil
}
