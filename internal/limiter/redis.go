package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/oggyb/matchengine/internal/cache"
)

// Redis is the distributed Limiter variant: counts live in the shared
// cache keyed by (userId, date), so every instance behind a load
// balancer sees the same daily window. Used when the deployment runs
// more than one engine process.
type Redis struct {
	store   cache.IntCache
	limits  Limits
	nowFunc func() time.Time
}

func NewRedis(store cache.IntCache, limits Limits) *Redis {
	return &Redis{store: store, limits: limits, nowFunc: time.Now}
}

func (r *Redis) key(userID uint64, day time.Time) string {
	return fmt.Sprintf("dailysuggestions:%d:%s", userID, day.Format("2006-01-02"))
}

func (r *Redis) CheckAndIncrement(userID uint64, isPremium bool) (bool, int) {
	ctx := context.Background()
	now := r.nowFunc().UTC()
	key := r.key(userID, now)
	max := maxFor(isPremium, r.limits)

	shown, _, err := r.store.GetInt(ctx, key)
	if err != nil {
		// Store unavailable: fail open rather than blocking every
		// suggestion request on a cache outage.
		return true, max
	}
	if shown >= int64(max) {
		return false, 0
	}

	ttl := time.Duration(r.limits.RefreshIntervalHours) * time.Hour
	newCount := shown + 1
	if err := r.store.SetInt(ctx, key, newCount, ttl); err != nil {
		return true, max
	}
	return true, max - int(newCount)
}

func (r *Redis) StatusFor(userID uint64, isPremium bool) Status {
	ctx := context.Background()
	now := r.nowFunc().UTC()
	key := r.key(userID, now)
	max := maxFor(isPremium, r.limits)

	shown, ok, err := r.store.GetInt(ctx, key)
	if err != nil || !ok {
		shown = 0
	}
	remaining := int64(max) - shown
	if remaining < 0 {
		remaining = 0
	}

	lastReset := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return Status{
		ShownToday:     int(shown),
		Max:            max,
		Remaining:      int(remaining),
		LastResetDate:  lastReset,
		NextResetDate:  lastReset.Add(time.Duration(r.limits.RefreshIntervalHours) * time.Hour),
		QueueExhausted: shown >= int64(max),
	}
}
