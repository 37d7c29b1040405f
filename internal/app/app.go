// Package app provides the top-level application lifecycle for fillscope. It
// wires together the feed client, metadata resolver, caches, and exporter,
// and runs one batch analysis per invocation.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/fillscope/internal/config"
	"github.com/alanyoungcy/fillscope/internal/domain"
	"github.com/alanyoungcy/fillscope/internal/ingest"
	"github.com/alanyoungcy/fillscope/internal/service"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and executes one analysis run for the given
// market slug. The report is exported when CSV export is configured.
func (a *App) Run(ctx context.Context, slug string) error {
	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	if block, err := deps.Feed.FetchLatestBlock(ctx); err != nil {
		a.logger.Warn("could not determine feed head block", slog.String("error", err.Error()))
	} else {
		a.logger.Info("feed indexed", slog.Int64("latest_block", block))
	}

	ingestor := ingest.New(deps.Feed, deps.FillCache, ingest.Config{
		PageSize:            a.cfg.Ingest.PageSize,
		PageDelay:           a.cfg.Ingest.PageDelay.Duration,
		RateLimitCooldown:   a.cfg.Ingest.RateLimitCooldown.Duration,
		MaxRateLimitRetries: a.cfg.Ingest.MaxRateLimitRetries,
		MaxConcurrent:       a.cfg.Ingest.MaxConcurrent,
	}, a.logger)

	analyzer := service.NewAnalyzer(deps.Resolver, deps.OutcomeCache, ingestor, a.logger)

	report, err := analyzer.Analyze(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNoTokens) || errors.Is(err, domain.ErrNoFills) {
			a.logger.Warn("nothing to process", slog.String("slug", slug))
		}
		return fmt.Errorf("app: analyze %q: %w", slug, err)
	}

	for _, s := range report.Summaries {
		a.logger.Info("market summary",
			slog.String("market", s.BaseName),
			slog.Bool("binary", s.IsBinary),
			slog.Float64("trades", s.TotalFills),
			slog.Float64("volume", s.TotalVolume),
			slog.Float64("current_price", s.CurrentPrice),
			slog.Float64("avg_price", s.AvgPrice),
		)
	}

	if deps.Exporter != nil {
		if err := deps.Exporter.Export(ctx, report); err != nil {
			return fmt.Errorf("app: export report: %w", err)
		}
	}

	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
