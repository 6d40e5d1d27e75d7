package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dripq/dripq/internal/config"
	"github.com/dripq/dripq/internal/metrics"
	"github.com/dripq/dripq/internal/scheduler"
	"github.com/dripq/dripq/internal/store"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	scheduler  *scheduler.Service
	store      store.Store
	config     *config.Config
	metrics    *metrics.Metrics
	logger     *slog.Logger
	version    string
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(sched *scheduler.Service, st store.Store, cfg *config.Config,
	m *metrics.Metrics, logger *slog.Logger, version string) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		scheduler: sched,
		store:     st,
		config:    cfg,
		metrics:   m,
		logger:    logger,
		version:   version,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware)
	}

	// Health check (no auth required)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/schedule", s.handleSchedule)
		r.Get("/scheduled", s.handleScheduled)
		r.Get("/sent", s.handleSent)
	})
}

// Router exposes the configured router, used by tests
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.config.API.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.API.ReadTimeout,
		WriteTimeout: s.config.API.WriteTimeout,
		IdleTimeout:  s.config.API.IdleTimeout,
	}

	s.logger.Info("starting HTTP API server", "addr", s.config.API.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// sendJSON writes a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// sendError writes a JSON error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
