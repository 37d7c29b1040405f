package domain

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	// ErrNoTokens means the metadata resolver produced no outcome tokens for
	// the requested market slug; there is nothing to fetch.
	ErrNoTokens = errors.New("no outcome tokens resolved")
	// ErrNoFills means the whole market produced zero priceable fills. This is
	// an expected terminal state, not a fault.
	ErrNoFills      = errors.New("no fills to process")
	ErrCacheExpired = errors.New("cache entry expired")
)
