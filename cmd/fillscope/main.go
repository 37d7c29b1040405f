// Command fillscope reconstructs the complete on-chain fill history of a
// prediction market, aggregates complementary outcome tokens into unified
// market views, and optionally exports the result as CSV. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and runs one batch analysis for the requested market slug.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/fillscope/internal/app"
	"github.com/alanyoungcy/fillscope/internal/config"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	slug := flag.String("slug", "", "market slug to analyze")
	concurrency := flag.Int("concurrency", 0, "override ingest.max_concurrent")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *slug == "" {
		fmt.Fprintln(os.Stderr, "usage: fillscope -slug <market-slug> [-config config.toml]")
		os.Exit(2)
	}

	// Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	if *concurrency > 0 {
		cfg.Ingest.MaxConcurrent = *concurrency
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("fillscope starting",
		slog.String("slug", *slug),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, logger)
	defer application.Close()

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, *slug); err != nil {
		// Run wraps its errors, so only errors.Is sees the cancellation.
		if errors.Is(err, context.Canceled) {
			logger.Info("shut down gracefully")
			return
		}
		logger.Error("run failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("fillscope finished")
}
