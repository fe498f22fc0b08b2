// Package server provides the HTTP server and routing for Arena.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/arena/internal/clients/alpaca"
	"github.com/aristath/arena/internal/config"
	"github.com/aristath/arena/internal/database"
	"github.com/aristath/arena/internal/modules/agents"
	agentshandlers "github.com/aristath/arena/internal/modules/agents/handlers"
	"github.com/aristath/arena/internal/modules/results"
	resultshandlers "github.com/aristath/arena/internal/modules/results/handlers"
	"github.com/aristath/arena/internal/modules/scoring"
)

// Config holds server configuration
type Config struct {
	Log          zerolog.Logger
	DB           *database.DB
	Config       *config.Config
	AgentsRepo   *agents.Repository
	ResultsRepo  *results.Repository
	Orchestrator *scoring.Orchestrator
	Invoker      *scoring.Invoker
	Alpaca       *alpaca.Client
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	db             *database.DB
	cfg            *config.Config
	agentHandlers  *agentshandlers.Handler
	resultHandlers *resultshandlers.Handler
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		db:     cfg.DB,
		cfg:    cfg.Config,
		agentHandlers: agentshandlers.NewHandler(
			cfg.AgentsRepo,
			cfg.ResultsRepo,
			cfg.Config.NominalCapital,
			cfg.Log,
		),
		resultHandlers: resultshandlers.NewHandler(
			cfg.ResultsRepo,
			cfg.Config.NominalCapital,
			cfg.Log,
		),
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Orchestrator,
			cfg.Invoker,
			cfg.Alpaca,
			cfg.AgentsRepo,
		),
	}

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Write timeout must cover a full synchronous run
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout. Generous because run and diag endpoints wait on external
	// providers for every active agent.
	s.router.Use(middleware.Timeout(10 * time.Minute))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Token"},
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
	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/leaderboard", s.resultHandlers.HandleLeaderboard)
		r.Get("/agents/{id}", s.agentHandlers.HandleGetPublic)
	})

	s.router.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(s.adminAuth)

		r.Get("/agents", s.agentHandlers.HandleList)
		r.Post("/agents", s.agentHandlers.HandleCreate)
		r.Put("/agents/{id}", s.agentHandlers.HandleUpdate)
		r.Delete("/agents/{id}", s.agentHandlers.HandleDelete)

		r.Post("/run/start", s.systemHandlers.HandleRunStart)

		r.Get("/diag/alpaca", s.systemHandlers.HandleDiagAlpaca)
		r.Get("/diag/agent", s.systemHandlers.HandleDiagAgent)
	})
}

// adminAuth guards admin routes with a shared token. With no token
// configured the routes are open, which is the expected local-dev setup.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken != "" {
			got := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.AdminToken)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
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

// Router exposes the underlying mux for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests using zerolog
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
