// Package desirability maintains the per-profile desirabilityScore used
// as one of Live's three ranking inputs.
package desirability

import (
	"context"
	"math"
	"time"

	"github.com/oggyb/matchengine/internal/repository"
)

const (
	minSwipesForSignal = 20
	defaultScore        = 50.0
	priorPseudocounts   = 10.0
	priorMean           = 0.3
	decayHalfLifeDays   = 30.0
	persistDeltaFloor   = 0.1
	eloKFactor          = 32.0
)

// Calculator recalculates desirabilityScore in batch from AlgorithmMetric
// history, and offers a stateless real-time adjustment helper for swipe
// events.
type Calculator struct {
	metrics  *repository.MetricRepository
	profiles *repository.ProfileRepository
}

func New(metrics *repository.MetricRepository, profiles *repository.ProfileRepository) *Calculator {
	return &Calculator{metrics: metrics, profiles: profiles}
}

// RecalculateBatch recomputes and persists desirabilityScore for every
// userID that has a current score worth comparing against, skipping
// persistence when the delta is below the noise floor. A user whose
// recalculation fails is skipped and the batch goes on; the error is not
// reported, and the function always returns nil — callers (the
// background refresher) treat the whole call as non-fatal anyway.
func (c *Calculator) RecalculateBatch(ctx context.Context, userIDs []uint64) error {
	now := time.Now().UTC()
	for _, userID := range userIDs {
		if err := c.recalculateOne(ctx, userID, now); err != nil {
			continue
		}
	}
	return nil
}

func (c *Calculator) recalculateOne(ctx context.Context, userID uint64, now time.Time) error {
	metric, err := c.metrics.Latest(ctx, userID)
	if err != nil {
		return err
	}

	newScore := Recalculate(metric.SwipesReceived, metric.LikesReceived, metric.CalculatedAt, now)

	current, err := c.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}

	if math.Abs(newScore-current.DesirabilityScore) <= persistDeltaFloor {
		return nil
	}
	return c.profiles.UpdateDesirability(ctx, userID, newScore)
}

// Recalculate is the pure batch-recalculation formula: below the
// minimum signal volume, returns the neutral default; otherwise a
// Bayesian-smoothed like rate decayed toward the mean by elapsed time
// since the metric was computed.
func Recalculate(swipesReceived, likesReceived int, metricCalculatedAt, now time.Time) float64 {
	if swipesReceived < minSwipesForSignal {
		return defaultScore
	}

	bayesianRate := (float64(likesReceived) + priorPseudocounts*priorMean) / (float64(swipesReceived) + priorPseudocounts)
	baseScore := bayesianRate * 100

	elapsedDays := now.Sub(metricCalculatedAt).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	decay := math.Pow(0.5, elapsedDays/decayHalfLifeDays)

	score := 50 + (baseScore-50)*decay
	return clamp(score, 0, 100)
}

// RealTimeAdjust is the Elo-style stateless adjustment applied when a
// swipe event lands: it nudges targetDesirability toward the
// outcome the swipe implied, relative to what the matchup "expected".
func RealTimeAdjust(swiperDesirability, targetDesirability float64, isLike bool) float64 {
	expected := 1 / (1 + math.Pow(10, (swiperDesirability-targetDesirability)/400))
	actual := 0.0
	if isLike {
		actual = 1.0
	}
	delta := eloKFactor * (actual - expected)
	return clamp(targetDesirability+delta, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
