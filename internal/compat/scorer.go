// Package compat implements the weighted multi-factor compatibility
// scorer: sub-scores in [0,100] combined with the requester's own
// weights into an overall score, cached read-through in PrecomputedScore.
package compat

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/repository"
)

// SubScores is every [0,100] component the overall score combines.
type SubScores struct {
	Location  float64
	Age       float64
	Interests float64
	Education float64
	Lifestyle float64
	Activity  float64
}

// Result is the scorer's output for a single (requester, target) pair.
type Result struct {
	Overall float64
	Sub     SubScores
	// FromCache is true when Result was served by the read-through cache
	// rather than freshly computed ("if cached row is fresh and
	// valid, returns exactly its overallScore").
	FromCache bool
}

// Scorer computes and caches compatibility scores.
type Scorer struct {
	scores *repository.ScoreRepository
	cfg    *config.Watcher
}

func New(scores *repository.ScoreRepository, cfg *config.Watcher) *Scorer {
	return &Scorer{scores: scores, cfg: cfg}
}

// Score returns the compatibility of target as seen by requester,
// read-through caching the result. It never mutates either profile.
func (s *Scorer) Score(ctx context.Context, requester, target *db.Profile) (Result, error) {
	cfg := s.cfg.Current()
	ttl := time.Duration(cfg.Scoring.ScoreCacheHours) * time.Hour

	if cached, err := s.scores.GetFresh(ctx, requester.UserID, target.UserID, ttl); err == nil {
		return Result{
			Overall: cached.OverallScore,
			Sub: SubScores{
				Location:  cached.LocationScore,
				Age:       cached.AgeScore,
				Interests: cached.InterestsScore,
				Education: cached.EducationScore,
				Activity:  cached.ActivityScore,
			},
			FromCache: true,
		}, nil
	}

	res := s.Compute(requester, target, cfg)

	_ = s.scores.Upsert(ctx, &db.PrecomputedScore{
		UserID:         requester.UserID,
		TargetUserID:   target.UserID,
		OverallScore:   res.Overall,
		LocationScore:  res.Sub.Location,
		AgeScore:       res.Sub.Age,
		InterestsScore: res.Sub.Interests,
		EducationScore: res.Sub.Education,
		LifestyleScore: res.Sub.Lifestyle,
		ActivityScore:  res.Sub.Activity,
	})

	return res, nil
}

// Compute computes the overall score and every sub-score without
// touching the cache at all — the primitive the background refresher
// uses directly, since it writes through with its own sub-score mix
// rather than the scorer's own cached upsert.
func (s *Scorer) Compute(requester, target *db.Profile, cfg *config.Config) Result {
	sub := SubScores{
		Location:  LocationScore(requester, target),
		Age:       AgeScore(requester, target),
		Interests: InterestsScore(requester.Interests, target.Interests),
		Education: EducationScore(requester.Education, target.Education),
		Lifestyle: LifestyleScore(requester, target, cfg),
		Activity:  ActivityScoreConstant,
	}

	weights := effectiveWeights(requester, cfg.Scoring.DefaultWeights)

	weighted := weights.Location*sub.Location +
		weights.Age*sub.Age +
		weights.Interests*sub.Interests +
		weights.Education*sub.Education +
		weights.Lifestyle*sub.Lifestyle

	const activityWeight = 0.5
	weighted += activityWeight * sub.Activity

	totalWeight := weights.Location + weights.Age + weights.Interests +
		weights.Education + weights.Lifestyle + activityWeight

	overall := 0.0
	if totalWeight > 0 {
		overall = weighted / totalWeight
	}
	overall = clamp(overall, 0, 100)
	overall = math.Round(overall*10) / 10

	return Result{Overall: overall, Sub: sub}
}

func effectiveWeights(requester *db.Profile, defaults config.Weights) config.Weights {
	w := config.Weights{
		Location:  requester.LocationWeight,
		Age:       requester.AgeWeight,
		Interests: requester.InterestsWeight,
		Education: requester.EducationWeight,
		Lifestyle: requester.LifestyleWeight,
	}
	if w == (config.Weights{}) {
		return defaults
	}
	return w
}

// ActivityScoreConstant is the scorer's own fallback activity sub-score.
// The source implementation returns this constant from one code path
// while the scoring strategies separately compute activity via
// exponential decay from lastActiveAt — by design decision, the
// decay form is what callers should actually use, so strategy/live.go and
// the refresher call ActivityDecay directly instead of relying on this
// constant. Compute/Score keep it only because the scorer has no
// "target's lastActiveAt as of now" context of its own to decay from when
// invoked outside a strategy (e.g. a bare compatibility lookup).
const ActivityScoreConstant = 75.0

// ActivityDecay is the exponential-decay activity sub-score, preferred
// over ActivityScoreConstant: 100 at zero elapsed time, half at
// halfLifeDays, clamped to [0,100].
func ActivityDecay(lastActiveAt time.Time, now time.Time, halfLifeDays float64) float64 {
	if halfLifeDays <= 0 {
		halfLifeDays = 7
	}
	elapsedDays := now.Sub(lastActiveAt).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	score := 100 * math.Exp(-math.Ln2*elapsedDays/halfLifeDays)
	return clamp(score, 0, 100)
}

// LocationScore is the haversine-distance sub-score. The filter pipeline
// must use a bounding box, but once a candidate has survived that
// coarse filter, the scorer is free to use the precise formula.
func LocationScore(requester, target *db.Profile) float64 {
	d := HaversineKm(requester.Latitude, requester.Longitude, target.Latitude, target.Longitude)
	if requester.MaxDistanceKm <= 0 || d > requester.MaxDistanceKm {
		return 0
	}
	return 100 * (1 - d/requester.MaxDistanceKm)
}

// HaversineKm is the great-circle distance between two lat/lon points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// AgeScore scores target's age against requester's [minAge,maxAge] window.
func AgeScore(requester, target *db.Profile) float64 {
	if target.Age < requester.MinAge || target.Age > requester.MaxAge {
		return 0
	}
	midpoint := float64(requester.MinAge+requester.MaxAge) / 2
	halfRange := float64(requester.MaxAge-requester.MinAge) / 2
	if halfRange <= 0 {
		return 100
	}
	return 100 - (math.Abs(float64(target.Age)-midpoint)/halfRange)*50
}

// InterestsScore is case-insensitive Jaccard similarity over interest
// sets; an empty set on either side is scored neutrally at 50.
func InterestsScore(a, b db.StringSlice) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 50
	}
	setA := toLowerSet(a)
	setB := toLowerSet(b)

	intersection := 0
	for k := range setA {
		if setB[k] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 50
	}
	return float64(intersection) / float64(union) * 100
}

func toLowerSet(s db.StringSlice) map[string]bool {
	out := make(map[string]bool, len(s))
	for _, v := range s {
		out[strings.ToLower(v)] = true
	}
	return out
}

// EducationScore scores the ordinal distance between two education
// levels; missing education on either side scores neutrally at 70.
func EducationScore(a, b db.EducationLevel) float64 {
	la, okA := db.EducationOrdinal[a]
	lb, okB := db.EducationOrdinal[b]
	if !okA || !okB {
		return 70
	}
	delta := math.Abs(float64(la - lb))
	score := 100 - 15*delta
	return math.Max(50, score)
}

// LifestyleScore combines the wantsChildren/hasChildren/smoking/drinking/
// religion mismatch penalties, floored at 0.
func LifestyleScore(requester, target *db.Profile, cfg *config.Config) float64 {
	score := 100.0

	if requester.WantsChildren != nil && target.WantsChildren != nil &&
		*requester.WantsChildren != *target.WantsChildren {
		score -= cfg.Scoring.WantsChildrenMismatchPenalty
	}

	if requester.HasChildren != nil && target.HasChildren != nil &&
		*requester.HasChildren != *target.HasChildren &&
		(*requester.HasChildren || *target.HasChildren) {
		score -= cfg.Scoring.HasChildrenMismatchPenalty
	}

	score -= ordinalPenalty(smokingOrdinal(requester.SmokingStatus), smokingOrdinal(target.SmokingStatus), cfg.Scoring.SmokingMismatchPenalty)
	score -= ordinalPenalty(drinkingOrdinal(requester.DrinkingStatus), drinkingOrdinal(target.DrinkingStatus), cfg.Scoring.DrinkingMismatchPenalty)

	if requester.Religion != "" && target.Religion != "" && requester.Religion != target.Religion {
		score -= cfg.Scoring.ReligionMismatchPenalty
	}

	return math.Max(0, score)
}

func ordinalPenalty(a, b int, max float64) float64 {
	if a < 0 || b < 0 {
		return 0
	}
	return max * math.Abs(float64(a-b)) / 2
}

func smokingOrdinal(s db.SmokingStatus) int {
	switch s {
	case db.SmokingNever:
		return 0
	case db.SmokingSometimes:
		return 1
	case db.SmokingOften:
		return 2
	default:
		return -1
	}
}

func drinkingOrdinal(s db.DrinkingStatus) int {
	switch s {
	case db.DrinkingNever:
		return 0
	case db.DrinkingSometimes:
		return 1
	case db.DrinkingOften:
		return 2
	default:
		return -1
	}
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
