package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matchengine/internal/cache"
	"github.com/oggyb/matchengine/internal/config"
)

func setupCacheTest(t *testing.T) *cache.RedisCache {
	t.Helper()
	srv := miniredis.RunT(t)
	cfg := config.New()
	cfg.Redis.Addr = srv.Addr()
	return cache.NewRedisCache(cfg)
}

func TestSetAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := setupCacheTest(t)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestGetMissingKeyReturnsRedisNilError(t *testing.T) {
	ctx := context.Background()
	c := setupCacheTest(t)

	_, err := c.Get(ctx, "missing")
	require.Error(t, err)
}

func TestDelRemovesKey(t *testing.T) {
	ctx := context.Background()
	c := setupCacheTest(t)
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	require.NoError(t, c.Del(ctx, "k"))
	_, err := c.Get(ctx, "k")
	require.Error(t, err)
}

func TestIncrAndDecr(t *testing.T) {
	ctx := context.Background()
	c := setupCacheTest(t)

	n, err := c.Incr(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = c.Incr(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = c.Decr(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestGetIntMissReturnsFalseNotError(t *testing.T) {
	ctx := context.Background()
	c := setupCacheTest(t)

	_, ok, err := c.GetInt(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetIntThenGetIntRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := setupCacheTest(t)

	require.NoError(t, c.SetInt(ctx, "count", 42, time.Minute))

	n, ok, err := c.GetInt(ctx, "count")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(42), n)
}

func TestGetIntOnNonIntegerValueErrors(t *testing.T) {
	ctx := context.Background()
	c := setupCacheTest(t)
	require.NoError(t, c.Set(ctx, "notanumber", "hello", time.Minute))

	_, _, err := c.GetInt(ctx, "notanumber")
	require.Error(t, err)
}

func TestSetIntRespectsTTLExpiry(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	cfg := config.New()
	cfg.Redis.Addr = srv.Addr()
	c := cache.NewRedisCache(cfg)

	require.NoError(t, c.SetInt(ctx, "count", 7, time.Second))
	srv.FastForward(2 * time.Second)

	_, ok, err := c.GetInt(ctx, "count")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPingSucceedsAgainstRunningServer(t *testing.T) {
	ctx := context.Background()
	c := setupCacheTest(t)
	require.NoError(t, c.Ping(ctx))
}
