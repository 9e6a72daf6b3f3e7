package compat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/matchengine/internal/compat"
	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
)

func boolPtr(b bool) *bool { return &b }

func baseProfile(userID uint64) *db.Profile {
	return &db.Profile{
		UserID:          userID,
		Gender:          db.GenderFemale,
		Age:             28,
		Latitude:        51.5074,
		Longitude:       -0.1278,
		PreferredGender: db.PreferredEveryone,
		MinAge:          18,
		MaxAge:          99,
		MaxDistanceKm:   100,
		WantsChildren:   boolPtr(true),
		HasChildren:     boolPtr(false),
		SmokingStatus:   db.SmokingNever,
		DrinkingStatus:  db.DrinkingSometimes,
		Religion:        "None",
		Education:       db.EducationBachelor,
		Interests:       db.StringSlice{"Hiking", "Music"},
		LocationWeight:  1,
		AgeWeight:       1,
		InterestsWeight: 1,
		EducationWeight: 0.5,
		LifestyleWeight: 0.5,
	}
}

func TestHaversineKmZeroForIdenticalPoints(t *testing.T) {
	d := compat.HaversineKm(51.5074, -0.1278, 51.5074, -0.1278)
	assert.InDelta(t, 0, d, 0.0001)
}

func TestHaversineKmKnownDistance(t *testing.T) {
	// London to Paris is roughly 344km.
	d := compat.HaversineKm(51.5074, -0.1278, 48.8566, 2.3522)
	assert.InDelta(t, 344, d, 10)
}

func TestLocationScoreOutOfRangeIsZero(t *testing.T) {
	requester := baseProfile(1)
	requester.MaxDistanceKm = 10
	target := baseProfile(2)
	target.Latitude = 48.8566
	target.Longitude = 2.3522

	assert.Equal(t, 0.0, compat.LocationScore(requester, target))
}

func TestAgeScoreOutOfWindowIsZero(t *testing.T) {
	requester := baseProfile(1)
	requester.MinAge, requester.MaxAge = 25, 35
	target := baseProfile(2)
	target.Age = 50

	assert.Equal(t, 0.0, compat.AgeScore(requester, target))
}

func TestAgeScoreAtMidpointIsMax(t *testing.T) {
	requester := baseProfile(1)
	requester.MinAge, requester.MaxAge = 20, 40
	target := baseProfile(2)
	target.Age = 30

	assert.Equal(t, 100.0, compat.AgeScore(requester, target))
}

func TestInterestsScoreEmptySetIsNeutral(t *testing.T) {
	assert.Equal(t, 50.0, compat.InterestsScore(nil, db.StringSlice{"Hiking"}))
}

func TestInterestsScoreIsCaseInsensitiveJaccard(t *testing.T) {
	a := db.StringSlice{"Hiking", "Music"}
	b := db.StringSlice{"hiking", "Cooking"}
	// intersection=1 (hiking), union=3 -> 33.33
	assert.InDelta(t, 33.33, compat.InterestsScore(a, b), 0.1)
}

func TestEducationScoreMissingIsNeutral(t *testing.T) {
	assert.Equal(t, 70.0, compat.EducationScore(db.EducationLevel(""), db.EducationBachelor))
}

func TestEducationScoreSameLevelIsMax(t *testing.T) {
	assert.Equal(t, 100.0, compat.EducationScore(db.EducationBachelor, db.EducationBachelor))
}

func TestLifestyleScorePenalizesMismatches(t *testing.T) {
	cfg := config.New()
	requester := baseProfile(1)
	target := baseProfile(2)
	target.WantsChildren = boolPtr(false)
	target.Religion = "Other"

	score := compat.LifestyleScore(requester, target, cfg)
	expected := 100 - cfg.Scoring.WantsChildrenMismatchPenalty - cfg.Scoring.ReligionMismatchPenalty
	assert.Equal(t, expected, score)
}

func TestLifestyleScoreNeverGoesNegative(t *testing.T) {
	cfg := config.New()
	cfg.Scoring.WantsChildrenMismatchPenalty = 1000
	requester := baseProfile(1)
	target := baseProfile(2)
	target.WantsChildren = boolPtr(false)

	assert.Equal(t, 0.0, compat.LifestyleScore(requester, target, cfg))
}

func TestActivityDecayAtZeroElapsedIsMax(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 100, compat.ActivityDecay(now, now, 7), 0.01)
}

func TestActivityDecayAtHalfLifeIsHalf(t *testing.T) {
	now := time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)
	lastActive := now.Add(-7 * 24 * time.Hour)
	assert.InDelta(t, 50, compat.ActivityDecay(lastActive, now, 7), 0.5)
}

func TestComputeOverallScoreIsClamped(t *testing.T) {
	cfg := config.New()
	requester := baseProfile(1)
	target := baseProfile(2)

	scorer := compat.New(nil, nil)
	res := scorer.Compute(requester, target, cfg)

	assert.GreaterOrEqual(t, res.Overall, 0.0)
	assert.LessOrEqual(t, res.Overall, 100.0)
}

func TestComputeUsesRequesterOwnWeightsWhenSet(t *testing.T) {
	cfg := config.New()
	requester := baseProfile(1)
	requester.LocationWeight = 5
	requester.AgeWeight = 0
	requester.InterestsWeight = 0
	requester.EducationWeight = 0
	requester.LifestyleWeight = 0
	target := baseProfile(2)

	scorer := compat.New(nil, nil)
	res := scorer.Compute(requester, target, cfg)

	// With every non-activity weight zeroed except location, overall should
	// track location+activity only.
	assert.GreaterOrEqual(t, res.Overall, 0.0)
	assert.LessOrEqual(t, res.Overall, 100.0)
	assert.InDelta(t, 97.7, res.Overall, 0.05)
}
