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

	"github.com/oddsforge/parlay-engine/internal/clients/yahoo"
	"github.com/oddsforge/parlay-engine/internal/config"
	"github.com/oddsforge/parlay-engine/internal/database"
	"github.com/oddsforge/parlay-engine/internal/history"
	"github.com/oddsforge/parlay-engine/internal/modules/evaluation"
	"github.com/oddsforge/parlay-engine/internal/scheduler"
	"github.com/oddsforge/parlay-engine/internal/server"
	"github.com/oddsforge/parlay-engine/pkg/logger"
)

func main() {
	// Load configuration first so the logger honors LOG_LEVEL
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting parlay engine")

	// history.db - daily price history used for return estimation
	historyDB, err := database.New(database.Config{
		Path: filepath.Join(cfg.DataDir, "history.db"),
		Name: "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history database")
	}
	defer historyDB.Close()

	historyRepo, err := history.NewRepository(historyDB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate history database")
	}

	// Background jobs: daily price refresh and WAL maintenance
	sched := scheduler.New(log)
	yahooClient := yahoo.NewClient(log)
	refreshJob := scheduler.NewPriceRefreshJob(yahooClient, historyRepo, cfg.TrackedSymbols, "3mo", log)
	if err := sched.AddJob("0 0 6 * * *", refreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price refresh job")
	}
	if err := sched.AddJob("@hourly", scheduler.NewMaintenanceJob(historyDB, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	sched.Start()
	defer sched.Stop()

	// Warm the history store at startup rather than waiting for the
	// 6 AM schedule.
	go func() {
		if err := refreshJob.Run(); err != nil {
			log.Warn().Err(err).Msg("Initial price refresh incomplete")
		}
	}()

	pipeline := evaluation.NewPipeline(evaluation.Config{
		RiskFreeRate:     cfg.RiskFreeRate,
		FrontierSamples:  cfg.FrontierSamples,
		Confidence:       cfg.Confidence,
		KellyCap:         cfg.KellyCap,
		MaxStakeFraction: cfg.MaxStakeFraction,
		Seed:             cfg.Seed,
	}, log)

	srv := server.New(server.Config{
		Log:         log,
		Config:      cfg,
		Pipeline:    pipeline,
		HistoryDB:   historyDB,
		HistoryRepo: historyRepo,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
