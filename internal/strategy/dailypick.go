package strategy

import (
	"context"
	"time"

	"github.com/oggyb/matchengine/internal/repository"
)

// DailyPick serves from the materialized DailyPick table, falling back to
// Live when today's queue is empty.
type DailyPick struct {
	profiles   *repository.ProfileRepository
	dailyPicks *repository.DailyPickRepository
	live       *Live
}

func NewDailyPick(profiles *repository.ProfileRepository, dailyPicks *repository.DailyPickRepository, live *Live) *DailyPick {
	return &DailyPick{profiles: profiles, dailyPicks: dailyPicks, live: live}
}

func (d *DailyPick) Name() string { return "DailyPick" }

func (d *DailyPick) GetCandidates(ctx context.Context, userID uint64, req Request) (Result, error) {
	start := time.Now()
	now := time.Now().UTC()

	rows, err := d.dailyPicks.PendingForUser(ctx, userID, now, req.Limit)
	if err != nil {
		return Result{StrategyName: d.Name(), Elapsed: time.Since(start)}, err
	}
	if len(rows) == 0 {
		res, err := d.live.GetCandidates(ctx, userID, req)
		res.StrategyName = "Live"
		return res, err
	}

	candidateIDs := make([]uint64, 0, len(rows))
	scoreByID := make(map[uint64]float64, len(rows))
	for _, row := range rows {
		candidateIDs = append(candidateIDs, row.CandidateUserID)
		scoreByID[row.CandidateUserID] = row.Score
	}

	candidates, err := d.profiles.GetMany(ctx, candidateIDs)
	if err != nil {
		return Result{StrategyName: d.Name(), Elapsed: time.Since(start)}, err
	}

	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		score := scoreByID[c.UserID]
		out = append(out, Candidate{
			UserID:             c.UserID,
			Age:                c.Age,
			Gender:             c.Gender,
			City:               c.City,
			Country:            c.Country,
			Interests:          []string(c.Interests),
			IsVerified:         c.IsVerified,
			CompatibilityScore: score,
			DesirabilityScore:  c.DesirabilityScore,
			FinalScore:         score,
		})
	}
	sortByFinalScoreDesc(out)

	totalUnseen, err := d.dailyPicks.CountUnseenToday(ctx, userID, now)
	if err != nil {
		totalUnseen = int64(len(rows))
	}

	if err := d.dailyPicks.MarkSeen(ctx, userID, candidateIDs); err != nil {
		return Result{StrategyName: d.Name(), Elapsed: time.Since(start)}, err
	}

	servedCount := int64(len(rows))
	suggestionsRemaining := totalUnseen - servedCount
	if suggestionsRemaining < 0 {
		suggestionsRemaining = 0
	}

	return Result{
		Candidates:           out,
		TotalFiltered:        len(rows),
		TotalScored:          len(rows),
		StrategyName:         d.Name(),
		Elapsed:              time.Since(start),
		QueueExhausted:       totalUnseen <= servedCount,
		SuggestionsRemaining: int(suggestionsRemaining),
	}, nil
}
