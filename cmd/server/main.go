// Package main is the entry point for the Arena agent trading leaderboard.
// The service keeps a roster of LLM-backed trading agents, scores each of
// them once per trading day against real market prices, and serves the
// resulting leaderboard over HTTP.
//
// Startup sequence:
//  1. Load configuration from environment variables (.env file supported)
//  2. Initialize logging
//  3. Open the SQLite database and apply the schema
//  4. Wire repositories, the market-data client, the LLM invoker and the
//     run orchestrator
//  5. Optionally register the cron-driven daily run
//  6. Start the HTTP server and wait for a shutdown signal
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/arena/internal/clients/alpaca"
	"github.com/aristath/arena/internal/config"
	"github.com/aristath/arena/internal/database"
	"github.com/aristath/arena/internal/modules/agents"
	"github.com/aristath/arena/internal/modules/prices"
	"github.com/aristath/arena/internal/modules/results"
	"github.com/aristath/arena/internal/modules/scoring"
	"github.com/aristath/arena/internal/scheduler"
	"github.com/aristath/arena/internal/server"
	"github.com/aristath/arena/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting Arena")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "arena.db"),
		Name: "arena",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database schema")
	}

	healthCtx, healthCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.HealthCheck(healthCtx); err != nil {
		healthCancel()
		log.Fatal().Err(err).Msg("Database integrity check failed")
	}
	healthCancel()
	log.Info().Str("path", db.Path()).Msg("Database ready")

	agentsRepo := agents.NewRepository(db.Conn(), log)
	pricesRepo := prices.NewRepository(db.Conn(), log)
	resultsRepo := results.NewRepository(db.Conn(), log)

	alpacaClient := alpaca.NewClient(cfg.Alpaca, log)
	invoker := scoring.NewInvoker(cfg.LLMRatePerMin, log)

	orchestrator := scoring.NewOrchestrator(
		cfg.SymbolUniverse,
		alpacaClient,
		pricesRepo,
		agentsRepo,
		resultsRepo,
		invoker,
		log,
	)

	// The daily run is opt-in: without a schedule the pipeline only runs
	// when triggered through the admin API.
	sched := scheduler.New(log)
	if cfg.RunSchedule != "" {
		job := scheduler.NewDailyRunJob(orchestrator, log)
		if err := sched.AddJob(cfg.RunSchedule, job); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.RunSchedule).Msg("Invalid run schedule")
		}
		sched.Start()
		defer sched.Stop()
		log.Info().Str("schedule", cfg.RunSchedule).Msg("Daily run scheduled")
	}

	srv := server.New(server.Config{
		Log:          log,
		DB:           db,
		Config:       cfg,
		AgentsRepo:   agentsRepo,
		ResultsRepo:  resultsRepo,
		Orchestrator: orchestrator,
		Invoker:      invoker,
		Alpaca:       alpacaClient,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Block until SIGINT or SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
