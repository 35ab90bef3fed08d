// Package server provides HTTP server management and lifecycle handling for the PharmaTrack API.
// It includes server setup, middleware configuration, route registration and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/NandaniSingh69/PharmaTrack/config"
	"github.com/NandaniSingh69/PharmaTrack/handlers"
	"github.com/NandaniSingh69/PharmaTrack/logging"
	"github.com/NandaniSingh69/PharmaTrack/metrics"
)

const rateLimiterCleanupInterval = 30 * time.Minute

// Server represents the HTTP server
type Server struct {
	server      *http.Server
	router      chi.Router
	httpHandler *handlers.HTTPHandler
	rateLimiter *RateLimiter
	config      *config.Config

	cleanupCtx  context.Context
	stopCleanup context.CancelFunc
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, httpHandler *handlers.HTTPHandler) *Server {
	router := chi.NewRouter()
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())

	server := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         cfg.Address + ":" + cfg.Port,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:      router,
		httpHandler: httpHandler,
		rateLimiter: NewRateLimiter(cfg.RateLimitRate, cfg.RateLimitCapacity),
		config:      cfg,
		cleanupCtx:  cleanupCtx,
		stopCleanup: stopCleanup,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	if s.config.RequireProxy {
		s.router.Use(BlockDirectAccessMiddleware) // Put BEFORE RealIPMiddleware to see original RemoteAddr
	}
	s.router.Use(RealIPMiddleware)
	s.router.Use(logging.LoggingMiddleware(logging.Logger()))
	s.router.Use(metrics.Metrics)
	s.router.Use(middleware.RedirectSlashes)
	s.router.Use(middleware.Recoverer)
	s.router.Use(RequestSizeMiddleware(s.config))
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.httpHandler.Routes(s.router)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())
}

// Handler exposes the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server and blocks until it stops. It returns nil after Shutdown.
func (s *Server) Start() error {
	go s.rateLimiter.runCleanup(s.cleanupCtx, rateLimiterCleanupInterval)

	logging.Info(fmt.Sprintf("Starting server at: %s:%s", s.config.Address, s.config.Port))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.stopCleanup()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		// If graceful shutdown fails, force close
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}
