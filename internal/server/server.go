// Package server provides the HTTP server and routing for Riskdesk.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/quantview/riskdesk/internal/config"
	"github.com/quantview/riskdesk/internal/database"
	alerthandlers "github.com/quantview/riskdesk/internal/modules/alerts/handlers"
	allocationhandlers "github.com/quantview/riskdesk/internal/modules/allocation/handlers"
	lifecyclehandlers "github.com/quantview/riskdesk/internal/modules/lifecycle/handlers"
	stresshandlers "github.com/quantview/riskdesk/internal/modules/stress/handlers"
)

// Config holds server configuration
type Config struct {
	Log         zerolog.Logger
	Cfg         *config.Config
	PortfolioDB *database.DB
	HistoryDB   *database.DB
	CacheDB     *database.DB

	AllocationHandlers *allocationhandlers.Handler
	StressHandlers     *stresshandlers.Handler
	AlertHandlers      *alerthandlers.Handler
	LifecycleHandlers  *lifecyclehandlers.Handler
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	systemHandlers *SystemHandlers

	allocationHandlers *allocationhandlers.Handler
	stressHandlers     *stresshandlers.Handler
	alertHandlers      *alerthandlers.Handler
	lifecycleHandlers  *lifecyclehandlers.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Cfg,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Cfg.DataDir,
			[]*database.DB{cfg.PortfolioDB, cfg.HistoryDB, cfg.CacheDB},
		),
		allocationHandlers: cfg.AllocationHandlers,
		stressHandlers:     cfg.StressHandlers,
		alertHandlers:      cfg.AlertHandlers,
		lifecycleHandlers:  cfg.LifecycleHandlers,
	}

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	// The alert stream holds its connection open, so the timeout applies to
	// the API subtree, not globally.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.systemHandlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Streaming endpoint stays outside the request timeout
		r.Get("/alerts/stream", s.alertHandlers.HandleStreamAlerts)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			s.allocationHandlers.RegisterRoutes(r)
			s.stressHandlers.RegisterRoutes(r)
			s.alertHandlers.RegisterRoutes(r)
			s.lifecycleHandlers.RegisterRoutes(r)

			r.Get("/health", s.systemHandlers.HandleHealth)
			r.Get("/health/system", s.systemHandlers.HandleSystemStatus)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
