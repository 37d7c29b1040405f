package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

const outcomeTTL = 15 * time.Minute

// OutcomeCache implements domain.OutcomeCache using Redis string values with
// JSON-serialized token-to-outcome mappings.
//
// Key schema:
//
//	outcomes:{slug} - JSON object of token id to outcome label
type OutcomeCache struct {
	rdb *redis.Client
}

// NewOutcomeCache creates an OutcomeCache backed by the given Client.
func NewOutcomeCache(c *Client) *OutcomeCache {
	return &OutcomeCache{rdb: c.Underlying()}
}

func outcomeKey(slug string) string { return "outcomes:" + slug }

// Get retrieves the cached mapping for slug. It returns domain.ErrNotFound
// when the key does not exist.
func (oc *OutcomeCache) Get(ctx context.Context, slug string) (domain.TokenOutcomes, error) {
	data, err := oc.rdb.Get(ctx, outcomeKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get outcomes %s: %w", slug, err)
	}

	var outcomes domain.TokenOutcomes
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return nil, fmt.Errorf("redis: unmarshal outcomes %s: %w", slug, err)
	}
	return outcomes, nil
}

// Set stores the mapping for slug with a 15-minute TTL.
func (oc *OutcomeCache) Set(ctx context.Context, slug string, outcomes domain.TokenOutcomes) error {
	data, err := json.Marshal(outcomes)
	if err != nil {
		return fmt.Errorf("redis: marshal outcomes %s: %w", slug, err)
	}

	if err := oc.rdb.Set(ctx, outcomeKey(slug), data, outcomeTTL).Err(); err != nil {
		return fmt.Errorf("redis: set outcomes %s: %w", slug, err)
	}
	return nil
}
