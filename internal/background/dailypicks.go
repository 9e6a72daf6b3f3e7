package background

import (
	"context"
	"time"

	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/logger"
	"github.com/oggyb/matchengine/internal/metrics"
	"github.com/oggyb/matchengine/internal/repository"
	"github.com/oggyb/matchengine/internal/strategy"
)

const (
	dailyPickInitialDelay = 15 * time.Second
	dailyPickMinRunGap    = time.Hour
)

// batchPlan is one row of the adaptive-batching table.
type batchPlan struct {
	minUsers  int
	batchSize int
	delay     time.Duration
}

var batchPlans = []batchPlan{
	{minUsers: 100000, batchSize: 500, delay: time.Second},
	{minUsers: 10000, batchSize: 200, delay: 500 * time.Millisecond},
	{minUsers: 1000, batchSize: 100, delay: 100 * time.Millisecond},
	{minUsers: 0, batchSize: 0, delay: 0}, // < 1000: all in one batch
}

func planFor(population int) batchPlan {
	for _, p := range batchPlans {
		if population >= p.minUsers {
			return p
		}
	}
	return batchPlans[len(batchPlans)-1]
}

// Generator implements suture.Service. It wakes once per day at a
// configured UTC time and materializes DailyPick rows for every active
// user using the Live strategy.
type Generator struct {
	profiles   *repository.ProfileRepository
	dailyPicks *repository.DailyPickRepository
	live       *strategy.Live
	cfg        *config.Watcher

	lastRunAt time.Time
}

func NewGenerator(
	profiles *repository.ProfileRepository,
	dailyPicks *repository.DailyPickRepository,
	live *strategy.Live,
	cfg *config.Watcher,
) *Generator {
	return &Generator{profiles: profiles, dailyPicks: dailyPicks, live: live, cfg: cfg}
}

func (g *Generator) Serve(ctx context.Context) error {
	select {
	case <-time.After(dailyPickInitialDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		cfg := g.cfg.Current()
		if !cfg.DailyPicks.Enabled {
			if !sleep(ctx, time.Minute) {
				return ctx.Err()
			}
			continue
		}

		if !g.dueToRun(cfg) {
			if !sleep(ctx, time.Minute) {
				return ctx.Err()
			}
			continue
		}

		if err := g.run(ctx, cfg); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		g.lastRunAt = time.Now().UTC()

		if !sleep(ctx, dailyPickMinRunGap) {
			return ctx.Err()
		}
	}
}

func (g *Generator) dueToRun(cfg *config.Config) bool {
	if !g.lastRunAt.IsZero() && time.Since(g.lastRunAt) < dailyPickMinRunGap {
		return false
	}
	now := time.Now().UTC()
	target, err := time.Parse("15:04", cfg.DailyPicks.GenerationTimeUTC)
	if err != nil {
		return false
	}
	scheduled := time.Date(now.Year(), now.Month(), now.Day(), target.Hour(), target.Minute(), 0, 0, time.UTC)
	return !now.Before(scheduled)
}

func (g *Generator) run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	defer func() { metrics.DailyPickGenerationDurationSeconds.Observe(time.Since(start).Seconds()) }()

	now := time.Now().UTC()
	if _, err := g.dailyPicks.DeleteExpired(ctx, now); err != nil {
		logger.Warn("daily-pick generator: delete expired failed", "err", err)
		return err
	}

	activeCount, err := g.profiles.CountActive(ctx)
	if err != nil {
		logger.Warn("daily-pick generator: count active failed", "err", err)
		return err
	}
	plan := planFor(int(activeCount))
	batchSize := plan.batchSize
	if batchSize == 0 {
		batchSize = int(activeCount)
		if batchSize == 0 {
			batchSize = 1
		}
	}

	var cursor uint64
	var generated int
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ids, err := g.profiles.ActiveIDsPage(ctx, cursor, batchSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			break
		}
		for _, userID := range ids {
			g.generateForUser(ctx, userID, cfg, now)
			generated++
		}
		cursor = ids[len(ids)-1]

		if plan.delay > 0 {
			if !sleep(ctx, plan.delay) {
				return ctx.Err()
			}
		}
	}

	metrics.DailyPickUsersGenerated.Add(float64(generated))
	return nil
}

func (g *Generator) generateForUser(ctx context.Context, userID uint64, cfg *config.Config, now time.Time) {
	req := strategy.Request{
		Limit:    cfg.DailyPicks.PicksPerUser * 2,
		MinScore: 10,
	}
	result, err := g.live.GetCandidates(ctx, userID, req)
	if err != nil {
		logger.Warn("daily-pick generator: live strategy failed", "userId", userID, "err", err)
		return
	}

	n := cfg.DailyPicks.PicksPerUser
	if len(result.Candidates) < n {
		n = len(result.Candidates)
	}

	rows := make([]db.DailyPick, 0, n)
	expiresAt := now.Add(time.Duration(cfg.DailyPicks.ExpiryHours) * time.Hour)
	for i := 0; i < n; i++ {
		c := result.Candidates[i]
		rows = append(rows, db.DailyPick{
			UserID:          userID,
			CandidateUserID: c.UserID,
			Score:           c.FinalScore,
			Rank:            i + 1,
			GeneratedAt:     now,
			ExpiresAt:       expiresAt,
			Seen:            false,
			Acted:           false,
		})
	}

	if err := g.dailyPicks.InsertBatch(ctx, rows); err != nil {
		logger.Warn("daily-pick generator: insert batch failed", "userId", userID, "err", err)
	}
}
