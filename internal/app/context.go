// Package app wires every component into one context struct, the single
// place cmd/server constructs before booting the gRPC/metrics surfaces
// and the background workers.
package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/background"
	"github.com/oggyb/matchengine/internal/cache"
	"github.com/oggyb/matchengine/internal/compat"
	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/desirability"
	"github.com/oggyb/matchengine/internal/engine"
	"github.com/oggyb/matchengine/internal/filter"
	"github.com/oggyb/matchengine/internal/limiter"
	"github.com/oggyb/matchengine/internal/repository"
	"github.com/oggyb/matchengine/internal/strategy"
	"github.com/oggyb/matchengine/internal/upstream"
)

// Context holds every shared dependency the server and background
// workers need. Built once at startup by New.
type Context struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Config     *config.Watcher

	Profiles     *repository.ProfileRepository
	Matches      *repository.MatchRepository
	Scores       *repository.ScoreRepository
	DailyPicks   *repository.DailyPickRepository
	Interactions *repository.InteractionRepository
	Metrics      *repository.MetricRepository

	Swipe    upstream.SwipeService
	Safety   upstream.SafetyService
	Notifier upstream.Notifier

	Pipeline *filter.Pipeline
	Scorer   *compat.Scorer

	Live        *strategy.Live
	PreComputed *strategy.PreComputed
	DailyPick   *strategy.DailyPick
	Resolver    *strategy.Resolver

	Desirability *desirability.Calculator
	Limiter      limiter.Limiter

	Refresher *background.Refresher
	Generator *background.Generator

	Engine *engine.Engine
}

// New wires every component from its dependencies. cfg is the
// hot-reloadable watcher; database and redisCache are already connected.
func New(database *gorm.DB, redisCache *cache.RedisCache, log *slog.Logger, cfg *config.Watcher) *Context {
	current := cfg.Current()

	c := &Context{
		DB:         database,
		RedisCache: redisCache,
		Logger:     log,
		Config:     cfg,
	}

	c.Profiles = repository.NewProfileRepository(database)
	c.Matches = repository.NewMatchRepository(database)
	c.Scores = repository.NewScoreRepository(database)
	c.DailyPicks = repository.NewDailyPickRepository(database)
	c.Interactions = repository.NewInteractionRepository(database)
	c.Metrics = repository.NewMetricRepository(database)

	c.Swipe = upstream.NewHTTPSwipeClient(current.Upstream.SwipeBaseURL, current.Upstream.Timeout)
	c.Safety = upstream.NewHTTPSafetyClient(current.Upstream.SafetyBaseURL, current.Upstream.Timeout)
	c.Notifier = upstream.LogNotifier{}

	c.Pipeline = filter.Default()
	c.Scorer = compat.New(c.Scores, cfg)

	c.Live = strategy.NewLive(database, c.Profiles, c.Pipeline, c.Scorer, c.Swipe, c.Safety, cfg)
	c.PreComputed = strategy.NewPreComputed(c.Profiles, c.Scores, c.Pipeline, c.Swipe, c.Safety, c.Live, cfg)
	c.DailyPick = strategy.NewDailyPick(c.Profiles, c.DailyPicks, c.Live)
	c.Resolver = strategy.NewResolver(c.Live, c.PreComputed, c.Profiles, redisCache, cfg)

	c.Desirability = desirability.New(c.Metrics, c.Profiles)

	c.Limiter = limiter.NewMemory(limiter.Limits{
		MaxDailySuggestions:        current.DailySuggestionLimits.MaxDailySuggestions,
		PremiumMaxDailySuggestions: current.DailySuggestionLimits.PremiumMaxDailySuggestions,
		RefreshIntervalHours:       current.DailySuggestionLimits.RefreshIntervalHours,
	})

	c.Refresher = background.NewRefresher(c.Profiles, c.Scores, c.Pipeline, c.Scorer, c.Desirability, c.Swipe, c.Safety, cfg, nil)
	c.Generator = background.NewGenerator(c.Profiles, c.DailyPicks, c.Live, cfg)

	c.Engine = engine.New(c.Resolver, c.DailyPick, c.Profiles, c.Matches, c.Interactions, c.Scores, c.Notifier, c.Limiter, c.RedisCache, cfg)

	return c
}

