// Package api implements the ops HTTP server: health, readiness, metrics and
// read access to recorded runs and the party's holdings.
package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	apperrors "github.com/chainsafe/canton-cbtc/pkg/app/errors"
	apphttp "github.com/chainsafe/canton-cbtc/pkg/app/http"
	"github.com/chainsafe/canton-cbtc/pkg/app/httpserver"
	"github.com/chainsafe/canton-cbtc/pkg/config"
	"github.com/chainsafe/canton-cbtc/pkg/resultstore"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultHTTPMiddlewareTimeout = 60 * time.Second
	readyCheckTimeout            = 5 * time.Second
)

// Server is the ops HTTP server.
type Server struct {
	cfg      *config.Config
	store    resultstore.Store
	holdings *HoldingsHandler
	checks   map[string]ReadyFunc
	logger   *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables the run query endpoints.
func WithStore(store resultstore.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithHoldings enables the holdings endpoint.
func WithHoldings(h *HoldingsHandler) Option {
	return func(s *Server) { s.holdings = h }
}

// WithReadyCheck adds a named readiness check.
func WithReadyCheck(name string, fn ReadyFunc) Option {
	return func(s *Server) { s.checks[name] = fn }
}

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates the ops server.
func NewServer(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		checks: map[string]ReadyFunc{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting ops server",
		zap.String("host", s.cfg.Server.Host),
		zap.Int("port", s.cfg.Server.Port),
		zap.Bool("runs_api", s.store != nil),
		zap.Bool("holdings_api", s.holdings != nil),
	)
	srv := httpserver.New(&s.cfg.Server, s.Router())
	return httpserver.ServeAndWait(ctx, s.logger, srv, s.cfg.Shutdown.Timeout)
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultHTTPMiddlewareTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/ready", s.ready)

	if s.cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
		s.logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.store != nil {
			NewHandler(s.store, s.logger).RegisterRoutes(r)
		} else {
			disabled := apphttp.HandleError(s.logger, func(http.ResponseWriter, *http.Request) error {
				return apperrors.NotSupportedError(nil, "result persistence is disabled")
			})
			r.Get("/runs", disabled)
			r.Get("/runs/*", disabled)
			r.Get("/results", disabled)
		}
		if s.holdings != nil {
			s.holdings.RegisterRoutes(r)
		}
	})

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]string{}
	for _, name := range names {
		if err := s.checks[name](ctx); err != nil {
			s.logger.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		_ = apphttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "NOT_READY",
			"failed": failed,
		})
		return
	}
	_ = apphttp.WriteJSON(w, http.StatusOK, map[string]any{"status": "READY"})
}
