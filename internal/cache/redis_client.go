// Package cache provides a Redis-backed cache for dependency-graph
// computation orders. The graph is immutable once built (spec §5), so this
// is a pure performance cache, not a correctness dependency: every
// operation fails open to direct recomputation on a miss or a Redis
// outage.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magnet-design/magnet-core/internal/config"
)

// Client wraps the Redis client used by GraphOrderCache.
type Client struct {
	raw *redis.Client
}

// NewClient creates a Redis client from RedisConfig and verifies
// connectivity with a bounded ping.
func NewClient(cfg config.RedisConfig) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	raw := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{raw: raw}, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error { return c.raw.Close() }

// Health reports whether Redis is reachable.
func (c *Client) Health(ctx context.Context) error { return c.raw.Ping(ctx).Err() }
