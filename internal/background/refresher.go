// Package background holds the two long-running suture.Service workers:
// the score refresher and the daily-pick generator.
package background

import (
	"context"
	"sync"
	"time"

	"github.com/oggyb/matchengine/internal/compat"
	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/desirability"
	"github.com/oggyb/matchengine/internal/filter"
	"github.com/oggyb/matchengine/internal/logger"
	"github.com/oggyb/matchengine/internal/metrics"
	"github.com/oggyb/matchengine/internal/repository"
	"github.com/oggyb/matchengine/internal/upstream"
)

const refresherInitialDelay = 10 * time.Second

// Refresher implements suture.Service. It periodically recomputes
// PrecomputedScore rows for the stalest active profiles, then runs the
// desirability calculator over the same batch.
type Refresher struct {
	profiles      *repository.ProfileRepository
	scores        *repository.ScoreRepository
	pipeline      *filter.Pipeline
	scorer        *compat.Scorer
	desirability  *desirability.Calculator
	swipe         upstream.SwipeService
	safety        upstream.SafetyService
	cfg           *config.Watcher
	loadAvg       LoadAverageFunc

	mu            sync.Mutex
	lastProcessed uint64
}

// LoadAverageFunc returns the 1-minute load average and logical CPU
// count. ok is false on platforms exposing no such signal, in which case
// the CPU guard never skips a cycle.
type LoadAverageFunc func() (load1 float64, cpuCount int, ok bool)

func NewRefresher(
	profiles *repository.ProfileRepository,
	scores *repository.ScoreRepository,
	pipeline *filter.Pipeline,
	scorer *compat.Scorer,
	calc *desirability.Calculator,
	swipe upstream.SwipeService,
	safety upstream.SafetyService,
	cfg *config.Watcher,
	loadAvg LoadAverageFunc,
) *Refresher {
	if loadAvg == nil {
		loadAvg = LinuxLoadAverage
	}
	return &Refresher{
		profiles:     profiles,
		scores:       scores,
		pipeline:     pipeline,
		scorer:       scorer,
		desirability: calc,
		swipe:        swipe,
		safety:       safety,
		cfg:          cfg,
		loadAvg:      loadAvg,
	}
}

func (r *Refresher) Serve(ctx context.Context) error {
	select {
	case <-time.After(refresherInitialDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		cfg := r.cfg.Current()
		if !cfg.BackgroundScoring.Enabled {
			if !sleep(ctx, time.Duration(cfg.BackgroundScoring.RefreshIntervalMinutes)*time.Minute) {
				return ctx.Err()
			}
			continue
		}

		if r.shouldSkipForCPU(cfg) {
			metrics.RefreshCycleSkippedCPU.Inc()
		} else if err := r.runCycle(ctx, cfg); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		if !sleep(ctx, time.Duration(cfg.BackgroundScoring.RefreshIntervalMinutes)*time.Minute) {
			return ctx.Err()
		}
	}
}

func (r *Refresher) shouldSkipForCPU(cfg *config.Config) bool {
	load1, cpuCount, ok := r.loadAvg()
	if !ok || cpuCount == 0 {
		return false
	}
	loadPercent := load1 / float64(cpuCount) * 100
	return loadPercent > cfg.BackgroundScoring.SkipRefreshWhenCPUAbove
}

func (r *Refresher) runCycle(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	defer func() { metrics.RefreshCycleDurationSeconds.Observe(time.Since(start).Seconds()) }()

	r.mu.Lock()
	cursor := r.lastProcessed
	r.mu.Unlock()

	ids, err := r.profiles.StaleFirstPage(ctx, cfg.BackgroundScoring.OnlyRefreshActiveUsers, cursor, cfg.BackgroundScoring.MaxUsersPerCycle)
	if err != nil {
		logger.Warn("refresher: staleness page failed", "err", err)
		return err
	}
	if len(ids) == 0 {
		r.mu.Lock()
		r.lastProcessed = 0
		r.mu.Unlock()
		return nil
	}

	sem := make(chan struct{}, cfg.BackgroundScoring.MaxConcurrentScoring)
	var wg sync.WaitGroup
	var processed int64
	var mu sync.Mutex

	for _, userID := range ids {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			defer func() { <-sem }()
			r.refreshOne(ctx, userID, cfg)
			mu.Lock()
			processed++
			mu.Unlock()
		}(userID)
	}
	wg.Wait()
	metrics.RefreshCycleUsersScored.Add(float64(processed))

	r.mu.Lock()
	r.lastProcessed = ids[len(ids)-1]
	r.mu.Unlock()

	if r.desirability != nil {
		if err := r.desirability.RecalculateBatch(ctx, ids); err != nil {
			logger.Warn("refresher: desirability batch failed, continuing", "err", err)
		}
	}
	return nil
}

func (r *Refresher) refreshOne(ctx context.Context, userID uint64, cfg *config.Config) {
	requester, err := r.profiles.Get(ctx, userID)
	if err != nil {
		return
	}

	swipedIDs, _ := r.swipe.SwipedIDs(ctx, userID)
	blockedIDs, _ := r.safety.BlockedIDs(ctx, userID)

	limit := cfg.MaxLimit * 3
	if limit > 150 {
		limit = 150
	}

	fctx := &filter.Context{Requester: requester, SwipedIDs: swipedIDs, BlockedIDs: blockedIDs}
	candidates, _, err := r.pipeline.Run(ctx, r.profiles.Query(ctx), fctx, limit)
	if err != nil {
		return
	}

	now := time.Now()
	rows := make([]db.PrecomputedScore, 0, len(candidates))
	for _, c := range candidates {
		res := r.scorer.Compute(requester, &c, cfg)
		activity := compat.ActivityDecay(c.LastActiveAt, now, cfg.Scoring.ActivityScoreHalfLifeDays)
		overall := 0.7*res.Overall + 0.15*activity + 0.15*c.DesirabilityScore

		rows = append(rows, db.PrecomputedScore{
			UserID:       userID,
			TargetUserID: c.UserID,
			OverallScore: overall,
			// LifestyleScore stores the compat sub-score here, not the
			// lifestyle component — the write-through path's primary
			// retrievable signal, kept as-is rather than redesigned.
			LifestyleScore: res.Overall,
			ActivityScore:  activity,
			LocationScore:  res.Sub.Location,
			AgeScore:       res.Sub.Age,
			InterestsScore: res.Sub.Interests,
			EducationScore: res.Sub.Education,
		})
	}

	if err := r.scores.UpsertBatch(ctx, rows); err != nil {
		logger.Warn("refresher: upsert batch failed", "userId", userID, "err", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
