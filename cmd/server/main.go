// Package main is the entry point for the QDR portfolio optimization engine.
// It serves the discrete (QUBO) portfolio optimizer over HTTP and keeps a
// local cache of market data warm in the background.
//
// Startup sequence:
// 1. Load configuration from environment variables (.env supported)
// 2. Initialize structured logging
// 3. Wire dependencies (cache database, market data clients, optimizer)
// 4. Start the job scheduler and HTTP server
// 5. Wait for SIGINT/SIGTERM and shut down gracefully
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/qdr/internal/config"
	"github.com/aristath/qdr/internal/server"
	"github.com/aristath/qdr/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger with config level
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting QDR engine")

	// Cancelled on SIGINT/SIGTERM, which triggers graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
		stop()
		os.Exit(1)
	}
}
