package strategy

import (
	"context"
	"time"

	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/filter"
	"github.com/oggyb/matchengine/internal/repository"
	"github.com/oggyb/matchengine/internal/upstream"
)

// PreComputed serves from the PrecomputedScore cache, re-validating
// against the filter pipeline's dealbreakers, and falls back to Live
// whenever the cache can't fully satisfy the request.
type PreComputed struct {
	profiles *repository.ProfileRepository
	scores   *repository.ScoreRepository
	pipeline *filter.Pipeline
	swipe    upstream.SwipeService
	safety   upstream.SafetyService
	live     *Live
	cfg      *config.Watcher
}

func NewPreComputed(
	profiles *repository.ProfileRepository,
	scores *repository.ScoreRepository,
	pipeline *filter.Pipeline,
	swipe upstream.SwipeService,
	safety upstream.SafetyService,
	live *Live,
	cfg *config.Watcher,
) *PreComputed {
	return &PreComputed{profiles: profiles, scores: scores, pipeline: pipeline, swipe: swipe, safety: safety, live: live, cfg: cfg}
}

func (p *PreComputed) Name() string { return "PreComputed" }

func (p *PreComputed) GetCandidates(ctx context.Context, userID uint64, req Request) (Result, error) {
	start := time.Now()
	cfg := p.cfg.Current()

	requester, err := p.profiles.Get(ctx, userID)
	if err != nil {
		return Result{StrategyName: p.Name(), Elapsed: time.Since(start)}, nil
	}

	ttl := time.Duration(cfg.Scoring.ScoreCacheHours) * time.Hour
	rows, err := p.scores.TopValid(ctx, userID, ttl, req.Limit*3)
	if err != nil || len(rows) == 0 {
		res, err := p.live.GetCandidates(ctx, userID, req)
		res.StrategyName = "Live"
		return res, err
	}

	swipedIDs, _ := p.swipe.SwipedIDs(ctx, userID)
	blockedIDs, _ := p.safety.BlockedIDs(ctx, userID)

	candidateIDs := make([]uint64, 0, len(rows))
	scoreByID := make(map[uint64]db.PrecomputedScore, len(rows))
	for _, row := range rows {
		candidateIDs = append(candidateIDs, row.TargetUserID)
		scoreByID[row.TargetUserID] = row
	}

	fctx := &filter.Context{
		Requester:    requester,
		SwipedIDs:    swipedIDs,
		BlockedIDs:   blockedIDs,
		ActiveWithin: req.ActiveWithin,
		OnlyVerified: req.OnlyVerified,
	}
	base := p.profiles.Query(ctx).Where("user_id IN ?", candidateIDs)
	survivors, _, err := p.pipeline.Run(ctx, base, fctx, len(candidateIDs))
	if err != nil {
		return Result{StrategyName: p.Name(), Elapsed: time.Since(start)}, err
	}

	effectiveMin := req.MinScore
	if effectiveMin <= 0 {
		effectiveMin = cfg.Scoring.MinimumCompatibilityThreshold
	}

	out := make([]Candidate, 0, len(survivors))
	seen := make(map[uint64]struct{}, len(survivors))
	for _, c := range survivors {
		row, ok := scoreByID[c.UserID]
		if !ok || row.OverallScore < effectiveMin {
			continue
		}
		out = append(out, Candidate{
			UserID:             c.UserID,
			Age:                c.Age,
			Gender:             c.Gender,
			City:               c.City,
			Country:            c.Country,
			Interests:          []string(c.Interests),
			IsVerified:         c.IsVerified,
			CompatibilityScore: row.OverallScore,
			ActivityScore:      row.ActivityScore,
			DesirabilityScore:  c.DesirabilityScore,
			FinalScore:         row.OverallScore,
		})
		seen[c.UserID] = struct{}{}
	}

	sortByFinalScoreDesc(out)
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}

	result := Result{
		Candidates:    out,
		TotalFiltered: len(survivors),
		TotalScored:   len(survivors),
		StrategyName:  p.Name(),
		Elapsed:       time.Since(start),
	}

	if len(out) < req.Limit {
		remaining := req.Limit - len(out)
		supplementReq := req
		supplementReq.Limit = remaining
		liveResult, err := p.live.GetCandidates(ctx, userID, supplementReq)
		if err == nil {
			for _, c := range liveResult.Candidates {
				if _, dup := seen[c.UserID]; dup {
					continue
				}
				result.Candidates = append(result.Candidates, c)
				seen[c.UserID] = struct{}{}
				if len(result.Candidates) >= req.Limit {
					break
				}
			}
			result.TotalScored += liveResult.TotalScored
		}
	}

	return result, nil
}
