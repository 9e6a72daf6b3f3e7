// Package engine is the facade every external interface calls
// through: candidate production, match statistics, the daily-suggestion
// limiter, the mutual-match sink, and the internal activity/account
// endpoints. It owns no business logic of its own beyond input
// clamping and wiring — every real computation lives in compat,
// strategy, desirability, or repository.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oggyb/matchengine/internal/cache"
	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/desirability"
	engineerrors "github.com/oggyb/matchengine/internal/errors"
	"github.com/oggyb/matchengine/internal/limiter"
	"github.com/oggyb/matchengine/internal/logger"
	"github.com/oggyb/matchengine/internal/repository"
	"github.com/oggyb/matchengine/internal/strategy"
	"github.com/oggyb/matchengine/internal/upstream"
)

const matchStatsCacheTTL = 10 * time.Minute

func matchStatsCacheKey(userID uint64) string {
	return fmt.Sprintf("matchstats:%d", userID)
}

// CandidateOptions is the clamped, already-validated request shape the
// Candidate endpoint builds from raw query parameters.
type CandidateOptions struct {
	Limit        int
	MinScore     float64
	ActiveWithin *int
	OnlyVerified bool
	Strategy     string // "", "live", "precomputed", "auto"
}

// GetDailyPicks serves the Daily-pick endpoint: today's materialized
// queue for userID, falling back to Live when that queue is empty or
// exhausted. Distinct from GetCandidates/Resolve, which never selects
// DailyPick — that strategy is only reachable through this dedicated
// entry point, the way the daily-pick generator's output is only ever
// consumed here.
func (e *Engine) GetDailyPicks(ctx context.Context, userID uint64, opts CandidateOptions) CandidateResult {
	result, err := e.dailyPick.GetCandidates(ctx, userID, strategy.Request{
		Limit:        opts.Limit,
		MinScore:     opts.MinScore,
		ActiveWithin: opts.ActiveWithin,
		OnlyVerified: opts.OnlyVerified,
	})
	if err != nil {
		logger.Warn("daily-pick production failed", "userId", userID, "strategy", result.StrategyName, "kind", engineerrors.Classify(err).String(), "err", err)
	}
	if err != nil || len(result.Candidates) == 0 {
		return CandidateResult{
			StrategyUsed:   result.StrategyName,
			QueueExhausted: true,
		}
	}

	return CandidateResult{
		Candidates:           result.Candidates,
		StrategyUsed:         result.StrategyName,
		TotalFiltered:        result.TotalFiltered,
		TotalScored:          result.TotalScored,
		Elapsed:              result.Elapsed,
		QueueExhausted:       result.QueueExhausted,
		SuggestionsRemaining: result.SuggestionsRemaining,
	}
}

// CandidateResult mirrors strategy.Result but is the stable shape the
// external interface actually returns.
type CandidateResult struct {
	Candidates           []strategy.Candidate
	StrategyUsed         string
	TotalFiltered        int
	TotalScored          int
	Elapsed              time.Duration
	QueueExhausted       bool
	SuggestionsRemaining int
}

type Engine struct {
	resolver     *strategy.Resolver
	dailyPick    *strategy.DailyPick
	profiles     *repository.ProfileRepository
	matches      *repository.MatchRepository
	interactions *repository.InteractionRepository
	scores       *repository.ScoreRepository
	notifier     upstream.Notifier
	dailyLimiter limiter.Limiter
	statsCache   cache.StringCache
	cfg          *config.Watcher
}

func New(
	resolver *strategy.Resolver,
	dailyPick *strategy.DailyPick,
	profiles *repository.ProfileRepository,
	matches *repository.MatchRepository,
	interactions *repository.InteractionRepository,
	scores *repository.ScoreRepository,
	notifier upstream.Notifier,
	dailyLimiter limiter.Limiter,
	statsCache cache.StringCache,
	cfg *config.Watcher,
) *Engine {
	return &Engine{
		resolver:     resolver,
		dailyPick:    dailyPick,
		profiles:     profiles,
		matches:      matches,
		interactions: interactions,
		scores:       scores,
		notifier:     notifier,
		dailyLimiter: dailyLimiter,
		statsCache:   statsCache,
		cfg:          cfg,
	}
}

// ClampCandidateOptions applies input-clamping rules to raw query
// parameters. Never returns an error — every out-of-range value is
// silently replaced, per the InputClamp error kind.
func ClampCandidateOptions(rawLimit, rawMinScore *float64, rawActiveWithin *int, onlyVerified bool, strategyName string, cfg *config.Config) CandidateOptions {
	limit := cfg.DefaultLimit
	if rawLimit != nil {
		limit = clampInt(int(*rawLimit), 1, 50)
	}

	minScore := cfg.DefaultMinScore
	if rawMinScore != nil {
		minScore = clampFloat(*rawMinScore, 0, 100)
	}

	var activeWithin *int
	if rawActiveWithin != nil {
		v := clampInt(*rawActiveWithin, 1, 365)
		activeWithin = &v
	}

	return CandidateOptions{
		Limit:        limit,
		MinScore:     minScore,
		ActiveWithin: activeWithin,
		OnlyVerified: onlyVerified,
		Strategy:     strategyName,
	}
}

// GetCandidates is the Candidate endpoint's core operation. A
// non-existent or inactive requester yields an empty, not-error, result
// with queueExhausted=true, per the NotFound error kind.
func (e *Engine) GetCandidates(ctx context.Context, userID uint64, opts CandidateOptions) CandidateResult {
	strat := e.resolver.Resolve(ctx, opts.Strategy)

	req := strategy.Request{
		Limit:        opts.Limit,
		MinScore:     opts.MinScore,
		ActiveWithin: opts.ActiveWithin,
		OnlyVerified: opts.OnlyVerified,
	}

	result, err := strat.GetCandidates(ctx, userID, req)
	if err != nil {
		logger.Warn("candidate production failed", "userId", userID, "strategy", result.StrategyName, "kind", engineerrors.Classify(err).String(), "err", err)
	}
	if err != nil || len(result.Candidates) == 0 {
		return CandidateResult{
			StrategyUsed:   result.StrategyName,
			QueueExhausted: true,
		}
	}

	return CandidateResult{
		Candidates:           result.Candidates,
		StrategyUsed:         result.StrategyName,
		TotalFiltered:        result.TotalFiltered,
		TotalScored:          result.TotalScored,
		Elapsed:              result.Elapsed,
		QueueExhausted:       result.QueueExhausted,
		SuggestionsRemaining: result.SuggestionsRemaining,
	}
}

// MatchStatistics serves the Match statistics endpoint. Reads go
// through a Redis cache ahead of the DB, mirroring the cache-then-DB
// pattern used elsewhere for read-heavy aggregates; a nil statsCache
// (no Redis configured) falls straight through to the DB every time.
func (e *Engine) MatchStatistics(ctx context.Context, userID uint64) (repository.Stats, error) {
	key := matchStatsCacheKey(userID)

	if e.statsCache != nil {
		if cached, err := e.statsCache.Get(ctx, key); err == nil && cached != "" {
			var stats repository.Stats
			if err := json.Unmarshal([]byte(cached), &stats); err == nil {
				return stats, nil
			}
		}
	}

	stats, err := e.matches.StatsForUser(ctx, userID)
	if err != nil {
		return repository.Stats{}, err
	}

	if e.statsCache != nil {
		if encoded, err := json.Marshal(stats); err == nil {
			_ = e.statsCache.Set(ctx, key, encoded, matchStatsCacheTTL)
		}
	}

	return stats, nil
}

// invalidateMatchStats drops the cached statistics for both sides of a
// match event so the next read recomputes from the DB.
func (e *Engine) invalidateMatchStats(ctx context.Context, userIDs ...uint64) {
	if e.statsCache == nil {
		return
	}
	for _, id := range userIDs {
		if err := e.statsCache.Del(ctx, matchStatsCacheKey(id)); err != nil {
			logger.Warn("match stats cache invalidation failed", "userId", id, "err", err)
		}
	}
}

// DailySuggestionStatus serves the Daily-suggestion status endpoint.
func (e *Engine) DailySuggestionStatus(userID uint64, isPremium bool) limiter.Status {
	return e.dailyLimiter.StatusFor(userID, isPremium)
}

// CheckAndIncrementSuggestion is the limiter's mutating half, called
// once a candidate is actually shown to the user.
func (e *Engine) CheckAndIncrementSuggestion(userID uint64, isPremium bool) (allowed bool, remaining int) {
	return e.dailyLimiter.CheckAndIncrement(userID, isPremium)
}

// RecordMutualMatch implements the Mutual-match sink: canonicalize,
// upsert (no-op on duplicate), best-effort notify.
func (e *Engine) RecordMutualMatch(ctx context.Context, user1ID, user2ID uint64, compatibilityScore *float64, source string) error {
	if err := e.matches.UpsertMutualMatch(ctx, user1ID, user2ID, compatibilityScore, source); err != nil {
		return err
	}
	e.invalidateMatchStats(ctx, user1ID, user2ID)
	e.notifier.NotifyMatch(ctx, user1ID, user2ID)
	e.notifier.NotifyMatch(ctx, user2ID, user1ID)
	return nil
}

// RecordSwipe appends a swipe decision, applies the real-time Elo-style
// adjustment to the target's desirability score when both profiles
// exist, and invalidates any cached PrecomputedScore rows that touch the
// target.
func (e *Engine) RecordSwipe(ctx context.Context, userID, targetID uint64, isLike bool) error {
	typ := db.InteractionPass
	if isLike {
		typ = db.InteractionLike
	}
	if err := e.interactions.Record(ctx, userID, targetID, typ); err != nil {
		return err
	}
	if swiper, err := e.profiles.Get(ctx, userID); err == nil {
		if target, err := e.profiles.Get(ctx, targetID); err == nil {
			adjusted := desirability.RealTimeAdjust(swiper.DesirabilityScore, target.DesirabilityScore, isLike)
			if err := e.profiles.UpdateDesirability(ctx, targetID, adjusted); err != nil {
				return err
			}
		}
	}
	return e.scores.Invalidate(ctx, targetID)
}

// PingActivity updates a single profile's lastActiveAt (internal
// endpoint). Unknown users are silently ignored.
func (e *Engine) PingActivity(ctx context.Context, userID uint64) error {
	_, err := e.profiles.UpdateLastActive(ctx, userID, time.Now().UTC())
	return err
}

// PingActivityBatch updates lastActiveAt for many users and reports
// (updated, total).
func (e *Engine) PingActivityBatch(ctx context.Context, userIDs []uint64) (updated, total int, err error) {
	return e.profiles.UpdateLastActiveBatch(ctx, userIDs, time.Now().UTC())
}

// DeleteMatchesForUser implements the Match-deletion endpoint.
func (e *Engine) DeleteMatchesForUser(ctx context.Context, userID uint64) (int64, error) {
	count, err := e.matches.DeleteAllForUser(ctx, userID)
	if err == nil {
		e.invalidateMatchStats(ctx, userID)
	}
	return count, err
}

// CascadeDeleteAccount implements the Cascade account-delete endpoint
//: soft-delete the profile, then delete its matches.
func (e *Engine) CascadeDeleteAccount(ctx context.Context, userID uint64) error {
	if err := e.profiles.SoftDelete(ctx, userID); err != nil {
		kind := engineerrors.Classify(err)
		logger.Warn("cascade delete failed on profile soft-delete", "userId", userID, "kind", kind.String(), "err", err)
		return engineerrors.New(kind, "engine.CascadeDeleteAccount", err)
	}
	_, err := e.matches.DeleteAllForUser(ctx, userID)
	if err == nil {
		e.invalidateMatchStats(ctx, userID)
	}
	return err
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
