package strategy

import (
	"context"
	"strings"
	"time"

	"github.com/oggyb/matchengine/internal/cache"
	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/logger"
	"github.com/oggyb/matchengine/internal/repository"
)

const activeCountCacheKey = "resolver:active_profile_count"
const activeCountCacheTTL = 30 * time.Second

// Resolver picks one of {Live, Pre-computed, Auto→{Live,Pre-computed}}
// per request. Pure in the sense that resolving never mutates state
// beyond the brief active-count cache; it reads live configuration off
// the watcher so overrides and thresholds apply immediately.
type Resolver struct {
	live        *Live
	preComputed *PreComputed
	profiles    *repository.ProfileRepository
	activeCount cache.IntCache
	cfg         *config.Watcher
}

func NewResolver(live *Live, preComputed *PreComputed, profiles *repository.ProfileRepository, activeCount cache.IntCache, cfg *config.Watcher) *Resolver {
	return &Resolver{live: live, preComputed: preComputed, profiles: profiles, activeCount: activeCount, cfg: cfg}
}

// Resolve picks a Strategy for override (possibly empty, meaning "use
// configuration").
func (r *Resolver) Resolve(ctx context.Context, override string) Strategy {
	cfg := r.cfg.Current()

	name := strings.ToLower(strings.TrimSpace(override))
	if name == "" {
		name = strings.ToLower(cfg.Strategy)
	}

	switch name {
	case "live":
		return r.live
	case "precomputed":
		return r.preComputed
	case "auto":
		return r.resolveAuto(ctx, cfg)
	default:
		logger.Warn("unknown strategy name, falling back to Live", "strategy", name)
		return r.live
	}
}

func (r *Resolver) resolveAuto(ctx context.Context, cfg *config.Config) Strategy {
	activeUsers, err := r.cachedActiveCount(ctx)
	if err != nil {
		logger.Warn("auto strategy population lookup failed, falling back to Live", "err", err)
		return r.live
	}
	if activeUsers <= int64(cfg.AutoStrategyThresholds.LiveMaxUsers) {
		return r.live
	}
	return r.preComputed
}

func (r *Resolver) cachedActiveCount(ctx context.Context) (int64, error) {
	if r.activeCount != nil {
		if v, ok, err := r.activeCount.GetInt(ctx, activeCountCacheKey); err == nil && ok {
			return v, nil
		}
	}

	count, err := r.profiles.CountActive(ctx)
	if err != nil {
		return 0, err
	}

	if r.activeCount != nil {
		_ = r.activeCount.SetInt(ctx, activeCountCacheKey, count, activeCountCacheTTL)
	}
	return count, nil
}
