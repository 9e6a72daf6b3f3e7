package strategy

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/compat"
	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/filter"
	"github.com/oggyb/matchengine/internal/repository"
	"github.com/oggyb/matchengine/internal/upstream"
)

// Live computes candidates on demand: filter pipeline, then scoring,
// then a shadow-restrict trust multiplier, all in the request path.
type Live struct {
	db       *gorm.DB
	profiles *repository.ProfileRepository
	pipeline *filter.Pipeline
	scorer   *compat.Scorer
	swipe    upstream.SwipeService
	safety   upstream.SafetyService
	cfg      *config.Watcher
}

func NewLive(
	database *gorm.DB,
	profiles *repository.ProfileRepository,
	pipeline *filter.Pipeline,
	scorer *compat.Scorer,
	swipe upstream.SwipeService,
	safety upstream.SafetyService,
	cfg *config.Watcher,
) *Live {
	return &Live{db: database, profiles: profiles, pipeline: pipeline, scorer: scorer, swipe: swipe, safety: safety, cfg: cfg}
}

func (l *Live) Name() string { return "Live" }

func (l *Live) GetCandidates(ctx context.Context, userID uint64, req Request) (Result, error) {
	start := time.Now()
	cfg := l.cfg.Current()

	requester, err := l.profiles.Get(ctx, userID)
	if err != nil {
		return Result{StrategyName: l.Name(), Elapsed: time.Since(start)}, nil
	}

	swipedIDs, _ := l.swipe.SwipedIDs(ctx, userID)
	blockedIDs, _ := l.safety.BlockedIDs(ctx, userID)

	filterLimit := req.Limit * 3
	if maxCap := cfg.MaxLimit * 3; filterLimit > maxCap {
		filterLimit = maxCap
	}

	fctx := &filter.Context{
		Requester:    requester,
		SwipedIDs:    swipedIDs,
		BlockedIDs:   blockedIDs,
		ActiveWithin: req.ActiveWithin,
		OnlyVerified: req.OnlyVerified,
	}

	candidates, _, err := l.pipeline.Run(ctx, l.profiles.Query(ctx), fctx, filterLimit)
	if err != nil {
		return Result{StrategyName: l.Name(), Elapsed: time.Since(start)}, err
	}

	effectiveMin := req.MinScore
	if effectiveMin <= 0 {
		effectiveMin = cfg.Scoring.MinimumCompatibilityThreshold
	}

	halfLife := cfg.Scoring.ActivityScoreHalfLifeDays
	now := time.Now()

	type scored struct {
		candidate db.Profile
		compat    float64
		activity  float64
	}

	var scoredRows []scored
	for _, c := range candidates {
		res := l.scorer.Compute(requester, &c, cfg)
		if res.Overall < effectiveMin {
			continue
		}
		activity := compat.ActivityDecay(c.LastActiveAt, now, halfLife)
		scoredRows = append(scoredRows, scored{candidate: c, compat: res.Overall, activity: activity})
	}

	trustScores := make(map[uint64]int, len(scoredRows))
	ids := make([]uint64, 0, len(scoredRows))
	for _, s := range scoredRows {
		ids = append(ids, s.candidate.UserID)
	}
	if fetched, err := l.swipe.TrustScores(ctx, ids); err == nil {
		trustScores = fetched
	}

	out := make([]Candidate, 0, len(scoredRows))
	for _, s := range scoredRows {
		base := 0.7*s.compat + 0.15*s.activity + 0.15*s.candidate.DesirabilityScore

		trust, ok := trustScores[s.candidate.UserID]
		if !ok {
			trust = 100
		}
		multiplier := 0.5 + float64(trust)/200.0
		final := base * multiplier

		out = append(out, Candidate{
			UserID:             s.candidate.UserID,
			Age:                s.candidate.Age,
			Gender:             s.candidate.Gender,
			City:               s.candidate.City,
			Country:            s.candidate.Country,
			Interests:          []string(s.candidate.Interests),
			IsVerified:         s.candidate.IsVerified,
			CompatibilityScore: s.compat,
			ActivityScore:      s.activity,
			DesirabilityScore:  s.candidate.DesirabilityScore,
			FinalScore:         final,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}

	return Result{
		Candidates:    out,
		TotalFiltered: len(candidates),
		TotalScored:   len(scoredRows),
		StrategyName:  l.Name(),
		Elapsed:       time.Since(start),
	}, nil
}
