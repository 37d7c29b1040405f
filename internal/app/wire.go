package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/fillscope/internal/blob/s3"
	"github.com/alanyoungcy/fillscope/internal/cache/redis"
	"github.com/alanyoungcy/fillscope/internal/config"
	"github.com/alanyoungcy/fillscope/internal/domain"
	"github.com/alanyoungcy/fillscope/internal/export"
	"github.com/alanyoungcy/fillscope/internal/platform/goldsky"
	"github.com/alanyoungcy/fillscope/internal/platform/polymarket"
	"github.com/alanyoungcy/fillscope/internal/service"
	"github.com/alanyoungcy/fillscope/internal/store/postgres"
)

// Dependencies bundles every dependency an analysis run needs. Optional
// collaborators (caches, exporter) are nil when not configured.
type Dependencies struct {
	Feed     *goldsky.Client
	Resolver service.OutcomeResolver

	FillCache    domain.FillCache
	OutcomeCache domain.OutcomeCache
	Exporter     *export.Exporter
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Feed:     goldsky.NewClient(cfg.Goldsky.URL, cfg.Goldsky.APIKey),
		Resolver: polymarket.NewGammaClient(cfg.Polymarket.GammaHost),
	}

	// --- PostgreSQL fill cache (optional) ---
	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		fillStore := postgres.NewFillCacheStore(pgClient.Pool(), cfg.Ingest.CacheTTL.Duration)
		purgeStaleFills(ctx, fillStore, cfg.Ingest.CacheTTL.Duration, logger)

		deps.FillCache = fillStore
		logger.Info("fill cache enabled",
			slog.Duration("ttl", cfg.Ingest.CacheTTL.Duration),
		)
	}

	// --- Redis outcome cache (optional) ---
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.OutcomeCache = redis.NewOutcomeCache(redisClient)
		logger.Info("outcome cache enabled", slog.String("addr", cfg.Redis.Addr))
	}

	// --- S3 CSV export (optional) ---
	if cfg.Export.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Exporter = export.NewExporter(s3blob.NewWriter(s3Client), cfg.Export.Prefix, logger)
		logger.Info("csv export enabled",
			slog.String("bucket", cfg.S3.Bucket),
			slog.String("prefix", cfg.Export.Prefix),
		)
	}

	return deps, cleanup, nil
}

// stalePurger removes cache entries fetched before a cutoff.
type stalePurger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// purgeStaleFills deletes fill cache rows already past the TTL so the table
// does not accumulate dead tokens across runs. A zero TTL means entries never
// expire and nothing is purged; purge failures are logged, never fatal.
func purgeStaleFills(ctx context.Context, store stalePurger, ttl time.Duration, logger *slog.Logger) {
	if ttl <= 0 {
		return
	}

	purged, err := store.Purge(ctx, time.Now().Add(-ttl))
	if err != nil {
		logger.Warn("fill cache purge failed", slog.String("error", err.Error()))
		return
	}
	if purged > 0 {
		logger.Info("stale fill cache entries purged", slog.Int64("entries", purged))
	}
}
