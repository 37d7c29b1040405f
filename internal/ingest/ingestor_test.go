package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fillscope/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pageCall records one FetchTokenFills invocation.
type pageCall struct {
	tokenID string
	skip    int
}

// fakeFeed serves scripted pages per token and records every call. A nil page
// script entry yields domain.ErrRateLimited for that call.
type fakeFeed struct {
	mu    sync.Mutex
	pages map[string][][]domain.RawFill
	next  map[string]int
	calls []pageCall

	errFor map[string]error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		pages:  make(map[string][][]domain.RawFill),
		next:   make(map[string]int),
		errFor: make(map[string]error),
	}
}

func (f *fakeFeed) FetchTokenFills(_ context.Context, tokenID string, _ int, skip int) ([]domain.RawFill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, pageCall{tokenID: tokenID, skip: skip})

	if err, ok := f.errFor[tokenID]; ok {
		return nil, err
	}

	script := f.pages[tokenID]
	i := f.next[tokenID]
	if i >= len(script) {
		return []domain.RawFill{}, nil
	}
	f.next[tokenID] = i + 1

	if script[i] == nil {
		return nil, fmt.Errorf("feed: http 429: %w", domain.ErrRateLimited)
	}
	return script[i], nil
}

func rawFills(n int, tsBase int64) []domain.RawFill {
	fills := make([]domain.RawFill, n)
	for i := range fills {
		fills[i] = domain.RawFill{Timestamp: tsBase - int64(i)}
	}
	return fills
}

// noSleep replaces the real sleeper and records requested durations.
func noSleep(slept *[]time.Duration) sleepFunc {
	var mu sync.Mutex
	return func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		*slept = append(*slept, d)
		return nil
	}
}

func newTestIngestor(feed PageFetcher, cache domain.FillCache, cfg Config, slept *[]time.Duration) *Ingestor {
	in := New(feed, cache, cfg, discardLogger())
	in.sleep = noSleep(slept)
	return in
}

func TestFetchAll_FullThenPartialPage(t *testing.T) {
	feed := newFakeFeed()
	feed.pages["tok"] = [][]domain.RawFill{
		rawFills(2, 1000),
		rawFills(1, 500),
	}

	var slept []time.Duration
	in := newTestIngestor(feed, nil, Config{PageSize: 2, PageDelay: 200 * time.Millisecond}, &slept)

	fills, err := in.FetchAll(context.Background(), "tok")

	require.NoError(t, err)
	assert.Len(t, fills, 3)
	// Partial second page terminates the walk without a third request.
	require.Len(t, feed.calls, 2)
	assert.Equal(t, 0, feed.calls[0].skip)
	assert.Equal(t, 2, feed.calls[1].skip)
	// One inter-page delay, none after the final page.
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, slept)
}

func TestFetchAll_ExactMultipleEndsOnEmptyPage(t *testing.T) {
	feed := newFakeFeed()
	feed.pages["tok"] = [][]domain.RawFill{
		rawFills(2, 1000),
		rawFills(2, 500),
	}

	var slept []time.Duration
	in := newTestIngestor(feed, nil, Config{PageSize: 2}, &slept)

	fills, err := in.FetchAll(context.Background(), "tok")

	require.NoError(t, err)
	assert.Len(t, fills, 4)
	// Two full pages cannot prove exhaustion; a third, empty page does.
	require.Len(t, feed.calls, 3)
	assert.Equal(t, 4, feed.calls[2].skip)
}

func TestFetchAll_EmptyHistory(t *testing.T) {
	feed := newFakeFeed()

	var slept []time.Duration
	in := newTestIngestor(feed, nil, Config{PageSize: 2}, &slept)

	fills, err := in.FetchAll(context.Background(), "tok")

	require.NoError(t, err)
	assert.Empty(t, fills)
	assert.Empty(t, slept)
}

func TestFetchAll_RateLimitRetriesSamePage(t *testing.T) {
	feed := newFakeFeed()
	feed.pages["tok"] = [][]domain.RawFill{
		rawFills(2, 1000),
		nil, // 429 on the second page
		rawFills(1, 500),
	}

	var slept []time.Duration
	in := newTestIngestor(feed, nil, Config{
		PageSize:          2,
		PageDelay:         200 * time.Millisecond,
		RateLimitCooldown: 10 * time.Second,
	}, &slept)

	fills, err := in.FetchAll(context.Background(), "tok")

	require.NoError(t, err)
	assert.Len(t, fills, 3)
	// The rate-limited request is re-issued with an unchanged skip offset.
	require.Len(t, feed.calls, 3)
	assert.Equal(t, 2, feed.calls[1].skip)
	assert.Equal(t, 2, feed.calls[2].skip)
	assert.Contains(t, slept, 10*time.Second)
}

func TestFetchAll_RateLimitRetriesExhausted(t *testing.T) {
	feed := newFakeFeed()
	feed.errFor["tok"] = fmt.Errorf("feed: http 429: %w", domain.ErrRateLimited)

	var slept []time.Duration
	in := newTestIngestor(feed, nil, Config{
		PageSize:            2,
		MaxRateLimitRetries: 3,
	}, &slept)

	_, err := in.FetchAll(context.Background(), "tok")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	// Initial attempt plus three retries.
	assert.Len(t, feed.calls, 4)
}

func TestFetchAll_NonRateLimitErrorFailsFast(t *testing.T) {
	feed := newFakeFeed()
	feed.errFor["tok"] = errors.New("boom")

	var slept []time.Duration
	in := newTestIngestor(feed, nil, Config{PageSize: 2}, &slept)

	_, err := in.FetchAll(context.Background(), "tok")

	require.Error(t, err)
	assert.Len(t, feed.calls, 1)
	assert.Empty(t, slept)
}

// memFillCache is an in-memory domain.FillCache.
type memFillCache struct {
	mu    sync.Mutex
	fills map[string][]domain.RawFill

	getErr error
	putErr error
	puts   int
}

func newMemFillCache() *memFillCache {
	return &memFillCache{fills: make(map[string][]domain.RawFill)}
}

func (c *memFillCache) Get(_ context.Context, tokenID string) ([]domain.RawFill, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	fills, ok := c.fills[tokenID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return fills, nil
}

func (c *memFillCache) Put(_ context.Context, tokenID string, fills []domain.RawFill) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	if c.putErr != nil {
		return c.putErr
	}
	c.fills[tokenID] = fills
	return nil
}

func TestFetchAll_CacheHitSkipsFeed(t *testing.T) {
	feed := newFakeFeed()
	cache := newMemFillCache()
	cache.fills["tok"] = rawFills(3, 1000)

	var slept []time.Duration
	in := newTestIngestor(feed, cache, Config{PageSize: 2}, &slept)

	fills, err := in.FetchAll(context.Background(), "tok")

	require.NoError(t, err)
	assert.Len(t, fills, 3)
	assert.Empty(t, feed.calls)
}

func TestFetchAll_CacheMissFetchesAndWritesBack(t *testing.T) {
	feed := newFakeFeed()
	feed.pages["tok"] = [][]domain.RawFill{rawFills(1, 1000)}
	cache := newMemFillCache()

	var slept []time.Duration
	in := newTestIngestor(feed, cache, Config{PageSize: 2}, &slept)

	fills, err := in.FetchAll(context.Background(), "tok")

	require.NoError(t, err)
	assert.Len(t, fills, 1)
	assert.Equal(t, 1, cache.puts)
	assert.Len(t, cache.fills["tok"], 1)
}

func TestFetchAll_CacheExpiredFallsThroughToFeed(t *testing.T) {
	feed := newFakeFeed()
	feed.pages["tok"] = [][]domain.RawFill{rawFills(1, 1000)}
	cache := newMemFillCache()
	cache.getErr = domain.ErrCacheExpired

	var slept []time.Duration
	in := newTestIngestor(feed, cache, Config{PageSize: 2}, &slept)

	fills, err := in.FetchAll(context.Background(), "tok")

	require.NoError(t, err)
	assert.Len(t, fills, 1)
	assert.Len(t, feed.calls, 1)
}

func TestFetchAll_CacheWriteFailureIsNotFatal(t *testing.T) {
	feed := newFakeFeed()
	feed.pages["tok"] = [][]domain.RawFill{rawFills(1, 1000)}
	cache := newMemFillCache()
	cache.putErr = errors.New("disk full")

	var slept []time.Duration
	in := newTestIngestor(feed, cache, Config{PageSize: 2}, &slept)

	fills, err := in.FetchAll(context.Background(), "tok")

	require.NoError(t, err)
	assert.Len(t, fills, 1)
}

func TestFetchMany_AllTokensPresent(t *testing.T) {
	feed := newFakeFeed()
	feed.pages["a"] = [][]domain.RawFill{rawFills(1, 1000)}
	feed.pages["b"] = [][]domain.RawFill{rawFills(2, 2000), rawFills(1, 500)}

	var slept []time.Duration
	in := newTestIngestor(feed, nil, Config{PageSize: 2, MaxConcurrent: 2}, &slept)

	byToken := in.FetchMany(context.Background(), []string{"a", "b", "c"})

	require.Len(t, byToken, 3)
	assert.Len(t, byToken["a"], 1)
	assert.Len(t, byToken["b"], 3)
	assert.NotNil(t, byToken["c"])
	assert.Empty(t, byToken["c"])
}

func TestFetchMany_FailingTokenIsolated(t *testing.T) {
	feed := newFakeFeed()
	feed.pages["good"] = [][]domain.RawFill{rawFills(1, 1000)}
	feed.errFor["bad"] = errors.New("boom")

	var slept []time.Duration
	in := newTestIngestor(feed, nil, Config{PageSize: 2}, &slept)

	byToken := in.FetchMany(context.Background(), []string{"good", "bad"})

	require.Len(t, byToken, 2)
	assert.Len(t, byToken["good"], 1)
	assert.Empty(t, byToken["bad"])
}
