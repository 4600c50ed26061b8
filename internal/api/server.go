// Package api implements the console's HTTP surface: the subject table,
// staged investigation submissions, schedule state, and the account panel.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/docal-console/internal/config"
	"github.com/docal-console/internal/investigate"
	"github.com/docal-console/internal/logging"
	"github.com/docal-console/internal/storage"
	"github.com/docal-console/internal/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SubjectFetcher is the slice of the proxy client the subject endpoints
// depend on.
type SubjectFetcher interface {
	FetchSubjects(ctx context.Context) ([]types.SubjectRow, error)
}

// BalanceFetcher is the slice of the RPC client the account endpoint
// depends on.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, address string) (uint64, error)
}

// Server is the console HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server

	controller *investigate.Controller
	gate       *investigate.Gate
	subjects   SubjectFetcher
	balances   BalanceFetcher
	cache      *storage.SubjectCache
	caller     string

	config *config.ServerConfig
	logger *logging.Logger
}

// ServerDeps carries the server's collaborators.
type ServerDeps struct {
	Controller *investigate.Controller
	Gate       *investigate.Gate
	Subjects   SubjectFetcher
	// Balances may be nil; the account endpoint then omits the balance.
	Balances BalanceFetcher
	// Cache may be nil; subject loads then always hit the proxy.
	Cache *storage.SubjectCache
	// Caller is the configured wallet address, empty when unauthenticated.
	Caller string
	Logger *logging.Logger
}

// NewServer creates the console API server.
func NewServer(cfg *config.ServerConfig, deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		router:     mux.NewRouter(),
		controller: deps.Controller,
		gate:       deps.Gate,
		subjects:   deps.Subjects,
		balances:   deps.Balances,
		cache:      deps.Cache,
		caller:     deps.Caller,
		config:     cfg,
		logger:     logger.WithField("component", "api"),
	}
	s.setupRouter()
	return s
}

// setupRouter configures middleware and routes. Middleware order matters:
// recovery outermost, then request id, logging, CORS, rate limit, metrics.
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond)

	s.router.Use(RecoveryMiddleware)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(rateLimiter))
	s.router.Use(MetricsMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/subjects", s.handleListSubjects).Methods(http.MethodGet)
	api.HandleFunc("/subjects/{username}/investigate", s.handleInvestigate).Methods(http.MethodPost)
	api.HandleFunc("/schedule", s.handleSchedule).Methods(http.MethodGet)
	api.HandleFunc("/account", s.handleAccount).Methods(http.MethodGet)
	api.HandleFunc("/classifiers", s.handleClassifiers).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Router exposes the router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Console API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// routePattern returns the matched route template for metrics labels.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
