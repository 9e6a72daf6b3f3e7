package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/oggyb/matchengine/internal/config"
	"github.com/redis/go-redis/v9"
)

// IntCache is satisfied by *RedisCache, narrowed to the read-through
// integer caching used by the strategy resolver and the distributed
// daily-suggestion limiter.
type IntCache interface {
	GetInt(ctx context.Context, key string) (int64, bool, error)
	SetInt(ctx context.Context, key string, value int64, ttl time.Duration) error
}

// StringCache is satisfied by *RedisCache, narrowed to the read-through
// string caching the match-statistics endpoint uses to cache a
// JSON-encoded Stats payload ahead of its DB fallback.
type StringCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisCache is a thin wrapper over go-redis used for the engine's
// caching concerns: the strategy resolver's brief active-user-count
// cache, the engine's match-statistics cache, and an optional distributed
// backend for the daily-suggestion limiter — the default limiter is
// process-local, but all three share this client when a shared store is
// configured.
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes a Redis client from config. Only Addr is
// mandatory; Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

func (c *RedisCache) Decr(ctx context.Context, key string) (int64, error) {
	return c.Client.Decr(ctx, key).Result()
}

// GetInt reads an integer value, returning (0, false, nil) on cache miss
// rather than an error — the calling convention every read-through cache
// user in this package relies on.
func (c *RedisCache) GetInt(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cached value for %q is not an integer: %w", key, err)
	}
	return n, true, nil
}

// SetInt caches an integer with the given TTL.
func (c *RedisCache) SetInt(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}
