// Package service orchestrates the analysis pipeline: metadata resolution,
// fill ingestion, pricing, pair matching, and aggregation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/fillscope/internal/aggregate"
	"github.com/alanyoungcy/fillscope/internal/domain"
	"github.com/alanyoungcy/fillscope/internal/grouping"
	"github.com/alanyoungcy/fillscope/internal/pricing"
)

// OutcomeResolver maps a market slug to its token-to-outcome-label mapping.
type OutcomeResolver interface {
	ResolveTokenOutcomes(ctx context.Context, slug string) (domain.TokenOutcomes, error)
}

// FillFetcher retrieves complete fill histories for a set of tokens. Failed
// tokens map to empty histories; the batch always completes.
type FillFetcher interface {
	FetchMany(ctx context.Context, tokenIDs []string) map[string][]domain.RawFill
}

// Analyzer runs point-in-time batch reconstructions of a market's trading
// activity.
type Analyzer struct {
	resolver OutcomeResolver
	cache    domain.OutcomeCache // optional; nil disables metadata caching
	fetcher  FillFetcher
	logger   *slog.Logger
}

// NewAnalyzer creates an Analyzer. cache may be nil.
func NewAnalyzer(resolver OutcomeResolver, cache domain.OutcomeCache, fetcher FillFetcher, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		resolver: resolver,
		cache:    cache,
		fetcher:  fetcher,
		logger:   logger.With(slog.String("component", "analyzer")),
	}
}

// Analyze reconstructs the full fill history of every outcome token of the
// market identified by slug and returns the processed fills, matched market
// groups, and summary rows.
//
// A market with no resolvable tokens returns domain.ErrNoTokens; a market
// whose tokens produced zero priceable fills returns domain.ErrNoFills. Both
// are expected terminal states for the caller to report, not faults.
// Individual token fetch failures degrade to empty histories and never abort
// the run.
func (a *Analyzer) Analyze(ctx context.Context, slug string) (*domain.MarketReport, error) {
	outcomes, err := a.resolveOutcomes(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("analysis: resolve outcomes for %q: %w", slug, err)
	}
	if len(outcomes) == 0 {
		return nil, fmt.Errorf("analysis: market %q: %w", slug, domain.ErrNoTokens)
	}

	tokenIDs := make([]string, 0, len(outcomes))
	for tokenID := range outcomes {
		tokenIDs = append(tokenIDs, tokenID)
	}
	sort.Strings(tokenIDs)

	a.logger.Info("starting analysis run",
		slog.String("slug", slug),
		slog.Int("tokens", len(tokenIDs)),
	)

	tokenFills := a.fetcher.FetchMany(ctx, tokenIDs)

	fills := pricing.ProcessMarketFills(tokenFills, outcomes)
	if len(fills) == 0 {
		return nil, fmt.Errorf("analysis: market %q: %w", slug, domain.ErrNoFills)
	}

	groups := grouping.Group(fills)
	summaries := aggregate.Summarize(groups)

	report := &domain.MarketReport{
		Slug:        slug,
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Outcomes:    outcomes,
		Fills:       fills,
		Groups:      groups,
		Summaries:   summaries,
	}

	a.logger.Info("analysis run complete",
		slog.String("slug", slug),
		slog.String("run_id", report.RunID),
		slog.Int("fills", len(fills)),
		slog.Int("groups", len(groups)),
	)

	return report, nil
}

// resolveOutcomes returns the token mapping for slug, consulting the outcome
// cache first and writing fresh resolutions back to it.
func (a *Analyzer) resolveOutcomes(ctx context.Context, slug string) (domain.TokenOutcomes, error) {
	if a.cache != nil {
		cached, err := a.cache.Get(ctx, slug)
		switch {
		case err == nil:
			return cached, nil
		case errors.Is(err, domain.ErrNotFound):
			// fall through to the resolver
		default:
			a.logger.Warn("outcome cache read failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
		}
	}

	outcomes, err := a.resolver.ResolveTokenOutcomes(ctx, slug)
	if err != nil {
		return nil, err
	}

	if a.cache != nil && len(outcomes) > 0 {
		if err := a.cache.Set(ctx, slug, outcomes); err != nil {
			a.logger.Warn("outcome cache write failed",
				slog.String("slug", slug),
				slog.String("error", err.Error()),
			)
		}
	}

	return outcomes, nil
}
