// Package ingest reconstructs the complete fill history of outcome tokens
// from the paginated, cursor-less order-fill event feed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

// PageFetcher retrieves one page of raw fill events for a token, ordered by
// timestamp descending, using first/skip offset pagination.
type PageFetcher interface {
	FetchTokenFills(ctx context.Context, tokenID string, first, skip int) ([]domain.RawFill, error)
}

// Config holds the pagination and retry parameters of the ingestor.
type Config struct {
	// PageSize is the number of events requested per page.
	PageSize int

	// PageDelay is the pause between successive page requests for one token,
	// to avoid overwhelming the upstream feed.
	PageDelay time.Duration

	// RateLimitCooldown is the pause before re-issuing a page request that was
	// rejected with domain.ErrRateLimited. The skip offset is not advanced.
	RateLimitCooldown time.Duration

	// MaxRateLimitRetries caps how often a single page is re-issued after
	// rate limiting. Zero means retry indefinitely, which is the production
	// default; rate limiting is the only unbounded-retry path in the system.
	MaxRateLimitRetries int

	// MaxConcurrent is the ceiling on tokens fetched in parallel.
	MaxConcurrent int
}

// withDefaults fills zero-valued fields with production defaults.
func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 1000
	}
	if c.PageDelay <= 0 {
		c.PageDelay = 200 * time.Millisecond
	}
	if c.RateLimitCooldown <= 0 {
		c.RateLimitCooldown = 10 * time.Second
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	return c
}

// sleepFunc pauses for d or returns early with the context error. Injected in
// tests so rate-limit scenarios run without real delays.
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ingestor fetches complete fill histories per token. Pages for one token are
// fetched strictly sequentially in skip order; distinct tokens run
// concurrently up to Config.MaxConcurrent.
type Ingestor struct {
	fetcher PageFetcher
	cache   domain.FillCache // optional; nil disables caching
	cfg     Config
	sleep   sleepFunc
	logger  *slog.Logger
}

// New creates an Ingestor. cache may be nil to disable the read-through fill
// cache.
func New(fetcher PageFetcher, cache domain.FillCache, cfg Config, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		fetcher: fetcher,
		cache:   cache,
		cfg:     cfg.withDefaults(),
		sleep:   sleepCtx,
		logger:  logger.With(slog.String("component", "ingest")),
	}
}

// FetchAll returns the complete, unfiltered fill history for one token by
// walking pages until exhaustion. A cached history is returned without any
// network traffic; a fresh fetch is written back to the cache on success.
func (in *Ingestor) FetchAll(ctx context.Context, tokenID string) ([]domain.RawFill, error) {
	if in.cache != nil {
		cached, err := in.cache.Get(ctx, tokenID)
		switch {
		case err == nil:
			in.logger.Debug("fill cache hit",
				slog.String("token_id", tokenID),
				slog.Int("fills", len(cached)),
			)
			return cached, nil
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrCacheExpired):
			// fall through to the network
		default:
			in.logger.Warn("fill cache read failed, fetching from feed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}

	fills, err := in.fetchAllPages(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	if in.cache != nil {
		if err := in.cache.Put(ctx, tokenID, fills); err != nil {
			in.logger.Warn("fill cache write failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}

	return fills, nil
}

// fetchAllPages walks the feed in skip order. Termination: an empty page ends
// the walk; a partial page (shorter than PageSize) is appended and then ends
// it. A rate-limited page is re-issued with the same skip after a cool-down.
func (in *Ingestor) fetchAllPages(ctx context.Context, tokenID string) ([]domain.RawFill, error) {
	var all []domain.RawFill
	skip := 0
	rateLimitHits := 0

	for {
		page, err := in.fetcher.FetchTokenFills(ctx, tokenID, in.cfg.PageSize, skip)
		if err != nil {
			if errors.Is(err, domain.ErrRateLimited) {
				rateLimitHits++
				if in.cfg.MaxRateLimitRetries > 0 && rateLimitHits > in.cfg.MaxRateLimitRetries {
					return nil, fmt.Errorf("ingest: token %s: rate limit retries exhausted after %d attempts: %w",
						tokenID, rateLimitHits-1, err)
				}
				in.logger.Warn("feed rate limited, retrying same page",
					slog.String("token_id", tokenID),
					slog.Int("skip", skip),
					slog.Int("attempt", rateLimitHits),
					slog.Duration("cooldown", in.cfg.RateLimitCooldown),
				)
				if err := in.sleep(ctx, in.cfg.RateLimitCooldown); err != nil {
					return nil, fmt.Errorf("ingest: token %s: %w", tokenID, err)
				}
				continue
			}
			return nil, fmt.Errorf("ingest: token %s page at skip %d: %w", tokenID, skip, err)
		}
		rateLimitHits = 0

		if len(page) == 0 {
			break
		}

		all = append(all, page...)

		if len(page) < in.cfg.PageSize {
			break
		}

		skip += in.cfg.PageSize

		if err := in.sleep(ctx, in.cfg.PageDelay); err != nil {
			return nil, fmt.Errorf("ingest: token %s: %w", tokenID, err)
		}
	}

	in.logger.Debug("token history fetched",
		slog.String("token_id", tokenID),
		slog.Int("fills", len(all)),
		slog.Int("pages", skip/in.cfg.PageSize+1),
	)

	return all, nil
}

// FetchMany fetches the fill histories of all given tokens with at most
// Config.MaxConcurrent fetches in flight. Each task writes only its own
// result slot; the slots are merged into the returned map after every task
// has finished.
//
// Per-token failures are isolated: the failing token is logged and mapped to
// an empty history, and the batch always completes for all requested tokens.
func (in *Ingestor) FetchMany(ctx context.Context, tokenIDs []string) map[string][]domain.RawFill {
	results := make([][]domain.RawFill, len(tokenIDs))
	failed := make([]bool, len(tokenIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(in.cfg.MaxConcurrent)

	for i, tokenID := range tokenIDs {
		g.Go(func() error {
			fills, err := in.FetchAll(ctx, tokenID)
			if err != nil {
				in.logger.Warn("token fetch failed, continuing with empty history",
					slog.String("token_id", tokenID),
					slog.String("error", err.Error()),
				)
				failed[i] = true
				return nil
			}
			results[i] = fills
			return nil
		})
	}

	// Workers never return an error; Wait only serves as the completion
	// barrier before the slots are merged.
	_ = g.Wait()

	byToken := make(map[string][]domain.RawFill, len(tokenIDs))
	failedCount := 0
	for i, tokenID := range tokenIDs {
		if results[i] == nil {
			results[i] = []domain.RawFill{}
		}
		byToken[tokenID] = results[i]
		if failed[i] {
			failedCount++
		}
	}

	in.logger.Info("batch fetch complete",
		slog.Int("tokens", len(tokenIDs)),
		slog.Int("failed", failedCount),
	)

	return byToken
}
