package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CacheKey is the Redis key holding the last computed insights.
const CacheKey = "insights:latest"

// Cache stores computed insights between writes. Any write to students,
// attendance or results must call Invalidate.
type Cache interface {
	// Get returns the cached insights, or nil on a miss.
	Get(ctx context.Context) (*Insights, error)
	Set(ctx context.Context, in Insights) error
	Invalidate(ctx context.Context) error
}

// =============================================================================
// REDIS
// =============================================================================

// RedisCache keeps insights as one JSON string with a TTL.
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache connects to addr and pings it.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{Client: client, TTL: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context) (*Insights, error) {
	raw, err := c.Client.Get(ctx, CacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read insights cache: %w", err)
	}
	var in Insights
	if err := json.Unmarshal(raw, &in); err != nil {
		// A payload from an older layout is a miss, not a failure.
		return nil, nil
	}
	return &in, nil
}

func (c *RedisCache) Set(ctx context.Context, in Insights) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if err := c.Client.Set(ctx, CacheKey, raw, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to write insights cache: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.Client.Del(ctx, CacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate insights cache: %w", err)
	}
	return nil
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.Client.Close()
}

// =============================================================================
// NOOP
// =============================================================================

// NoCache always misses. Used when no Redis address is configured.
type NoCache struct{}

func (NoCache) Get(context.Context) (*Insights, error) { return nil, nil }
func (NoCache) Set(context.Context, Insights) error     { return nil }
func (NoCache) Invalidate(context.Context) error        { return nil }
