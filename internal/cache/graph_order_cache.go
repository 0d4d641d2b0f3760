package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

const keyPrefix = "magnet:graph-order:"

// GraphOrderCache caches depgraph.Graph.ComputationOrder results keyed by a
// hash of the requested subset. Subset order doesn't affect the result
// (ComputationOrder always returns topological order), so the cache key is
// built from the sorted subset to maximize hit rate.
type GraphOrderCache struct {
	client *Client
	ttl    time.Duration
}

// NewGraphOrderCache constructs a cache with the given entry TTL.
func NewGraphOrderCache(client *Client, ttl time.Duration) *GraphOrderCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &GraphOrderCache{client: client, ttl: ttl}
}

// Key derives the cache key for a parameter subset.
func Key(subset []string) string {
	sorted := append([]string(nil), subset...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\x00")))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached order for subset, and false on a miss or any
// Redis error (fail-open: the caller should recompute).
func (c *GraphOrderCache) Get(ctx context.Context, subset []string) ([]string, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.raw.Get(ctx, Key(subset)).Result()
	if err != nil {
		// Covers both redis.Nil (real miss) and any transient Redis error —
		// either way the caller falls back to direct recomputation.
		return nil, false
	}

	var order []string
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, false
	}
	return order, true
}

// Put stores order under subset's key. Errors are swallowed; caching is
// best-effort.
func (c *GraphOrderCache) Put(ctx context.Context, subset []string, order []string) {
	if c == nil || c.client == nil {
		return
	}
	encoded, err := json.Marshal(order)
	if err != nil {
		return
	}
	_ = c.client.raw.Set(ctx, Key(subset), encoded, c.ttl).Err()
}

// Invalidate drops the cached entry for subset, used when the graph itself
// changes (which spec §5 treats as exceptional — the graph is immutable
// once built — but tests and hot-reload tooling still need it).
func (c *GraphOrderCache) Invalidate(ctx context.Context, subset []string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.raw.Del(ctx, Key(subset)).Err()
}

// OrderFunc computes a fresh computation order for subset, matching
// depgraph.Graph.ComputationOrder's signature.
type OrderFunc func(subset []string) ([]string, error)

// GetOrCompute returns the cached order for subset if present, otherwise
// calls compute, caches a successful result, and returns it. A Redis
// outage never surfaces to the caller — compute always runs on a cache
// failure.
func (c *GraphOrderCache) GetOrCompute(ctx context.Context, subset []string, compute OrderFunc) ([]string, error) {
	if order, ok := c.Get(ctx, subset); ok {
		return order, nil
	}
	order, err := compute(subset)
	if err != nil {
		return nil, err
	}
	c.Put(ctx, subset, order)
	return order, nil
}
