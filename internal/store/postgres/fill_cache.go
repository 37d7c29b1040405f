package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

// FillCacheStore implements domain.FillCache on a single fill_cache table.
// Each row holds one token's complete raw fill history as an opaque JSONB
// blob; the store never inspects the blob's contents beyond round-tripping it.
type FillCacheStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration // zero means entries never expire
}

// NewFillCacheStore creates a FillCacheStore backed by the given pool. Entries
// older than ttl are reported as domain.ErrCacheExpired; a zero ttl disables
// expiry.
func NewFillCacheStore(pool *pgxpool.Pool, ttl time.Duration) *FillCacheStore {
	return &FillCacheStore{pool: pool, ttl: ttl}
}

// Get returns the cached fill history for tokenID. Missing tokens return
// domain.ErrNotFound; stale entries return domain.ErrCacheExpired.
func (s *FillCacheStore) Get(ctx context.Context, tokenID string) ([]domain.RawFill, error) {
	var blob []byte
	var fetchedAt time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT fills, fetched_at FROM fill_cache WHERE token_id = $1",
		tokenID,
	).Scan(&blob, &fetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: get fill cache %s: %w", tokenID, err)
	}

	if s.ttl > 0 && time.Since(fetchedAt) > s.ttl {
		return nil, domain.ErrCacheExpired
	}

	var fills []domain.RawFill
	if err := json.Unmarshal(blob, &fills); err != nil {
		return nil, fmt.Errorf("postgres: decode fill cache %s: %w", tokenID, err)
	}
	return fills, nil
}

// Put replaces the cached fill history for tokenID and stamps it with the
// current time.
func (s *FillCacheStore) Put(ctx context.Context, tokenID string, fills []domain.RawFill) error {
	blob, err := json.Marshal(fills)
	if err != nil {
		return fmt.Errorf("postgres: encode fill cache %s: %w", tokenID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO fill_cache (token_id, fills, fetched_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (token_id) DO UPDATE
		SET fills = EXCLUDED.fills, fetched_at = NOW()`,
		tokenID, blob,
	)
	if err != nil {
		return fmt.Errorf("postgres: put fill cache %s: %w", tokenID, err)
	}
	return nil
}

// Purge removes cache entries older than the given cutoff and returns the
// number deleted.
func (s *FillCacheStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM fill_cache WHERE fetched_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge fill cache: %w", err)
	}
	return tag.RowsAffected(), nil
}
