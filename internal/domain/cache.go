package domain

import "context"

// OutcomeCache caches the resolved token-to-outcome mapping per market slug so
// repeated analysis runs skip the metadata API.
type OutcomeCache interface {
	// Get returns the cached mapping for slug, or ErrNotFound.
	Get(ctx context.Context, slug string) (TokenOutcomes, error)

	// Set stores the mapping for slug.
	Set(ctx context.Context, slug string, outcomes TokenOutcomes) error
}

// FillCache stores the complete raw fill history of a token as an opaque blob.
// The engine never inspects the stored layout; it only round-trips the fill
// slice. Implementations report ErrNotFound for a missing token and
// ErrCacheExpired for a stale entry.
type FillCache interface {
	// Get returns the cached fill history for tokenID.
	Get(ctx context.Context, tokenID string) ([]RawFill, error)

	// Put replaces the cached fill history for tokenID.
	Put(ctx context.Context, tokenID string, fills []RawFill) error
}
