package strategy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/compat"
	"github.com/oggyb/matchengine/internal/config"
	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/filter"
	"github.com/oggyb/matchengine/internal/repository"
	"github.com/oggyb/matchengine/internal/strategy"
)

func setupPreComputedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.Profile{}, &db.PrecomputedScore{}))
	return database
}

func TestPreComputedServesFromCache(t *testing.T) {
	database := setupPreComputedTestDB(t)
	profiles := repository.NewProfileRepository(database)
	scores := repository.NewScoreRepository(database)
	pipeline := filter.Default()
	cfgWatcher := config.NewWatcher()
	scorer := compat.New(scores, cfgWatcher)
	live := strategy.NewLive(database, profiles, pipeline, scorer, fakeSwipe{}, fakeSafety{}, cfgWatcher)
	pc := strategy.NewPreComputed(profiles, scores, pipeline, fakeSwipe{}, fakeSafety{}, live, cfgWatcher)

	requester := db.Profile{
		UserID: 1, Gender: db.GenderMale, Age: 30, IsActive: true,
		PreferredGender: db.PreferredEveryone, MinAge: 18, MaxAge: 99, MaxDistanceKm: 500,
	}
	candidate := db.Profile{
		UserID: 2, Gender: db.GenderFemale, Age: 30, IsActive: true,
		PreferredGender: db.PreferredEveryone, MinAge: 18, MaxAge: 99, MaxDistanceKm: 500,
		DesirabilityScore: 80,
	}
	require.NoError(t, database.Create(&requester).Error)
	require.NoError(t, database.Create(&candidate).Error)

	require.NoError(t, scores.Upsert(context.Background(), &db.PrecomputedScore{
		UserID: 1, TargetUserID: 2, OverallScore: 90, ActivityScore: 100,
	}))

	res, err := pc.GetCandidates(context.Background(), 1, strategy.Request{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, "PreComputed", res.StrategyName)
	require.Len(t, res.Candidates, 1)
	require.Equal(t, uint64(2), res.Candidates[0].UserID)
	require.Equal(t, 90.0, res.Candidates[0].CompatibilityScore)
}

func TestPreComputedFallsBackToLiveWhenCacheEmpty(t *testing.T) {
	database := setupPreComputedTestDB(t)
	profiles := repository.NewProfileRepository(database)
	scores := repository.NewScoreRepository(database)
	pipeline := filter.Default()
	cfgWatcher := config.NewWatcher()
	scorer := compat.New(scores, cfgWatcher)
	live := strategy.NewLive(database, profiles, pipeline, scorer, fakeSwipe{}, fakeSafety{}, cfgWatcher)
	pc := strategy.NewPreComputed(profiles, scores, pipeline, fakeSwipe{}, fakeSafety{}, live, cfgWatcher)

	requester := db.Profile{
		UserID: 1, Gender: db.GenderMale, Age: 30, IsActive: true,
		PreferredGender: db.PreferredEveryone, MinAge: 18, MaxAge: 99, MaxDistanceKm: 500,
	}
	candidate := db.Profile{
		UserID: 2, Gender: db.GenderFemale, Age: 30, IsActive: true,
		PreferredGender: db.PreferredEveryone, MinAge: 18, MaxAge: 99, MaxDistanceKm: 500,
		DesirabilityScore: 80, LastActiveAt: time.Now(),
	}
	require.NoError(t, database.Create(&requester).Error)
	require.NoError(t, database.Create(&candidate).Error)

	res, err := pc.GetCandidates(context.Background(), 1, strategy.Request{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, "Live", res.StrategyName)
	require.Len(t, res.Candidates, 1)
}

func TestPreComputedDropsInvalidatedRows(t *testing.T) {
	database := setupPreComputedTestDB(t)
	profiles := repository.NewProfileRepository(database)
	scores := repository.NewScoreRepository(database)
	pipeline := filter.Default()
	cfgWatcher := config.NewWatcher()
	scorer := compat.New(scores, cfgWatcher)
	live := strategy.NewLive(database, profiles, pipeline, scorer, fakeSwipe{}, fakeSafety{}, cfgWatcher)
	pc := strategy.NewPreComputed(profiles, scores, pipeline, fakeSwipe{}, fakeSafety{}, live, cfgWatcher)

	requester := db.Profile{
		UserID: 1, Gender: db.GenderMale, Age: 30, IsActive: true,
		PreferredGender: db.PreferredEveryone, MinAge: 18, MaxAge: 99, MaxDistanceKm: 500,
	}
	candidate := db.Profile{
		UserID: 2, Gender: db.GenderFemale, Age: 30, IsActive: true,
		PreferredGender: db.PreferredEveryone, MinAge: 18, MaxAge: 99, MaxDistanceKm: 500,
	}
	require.NoError(t, database.Create(&requester).Error)
	require.NoError(t, database.Create(&candidate).Error)

	require.NoError(t, scores.Upsert(context.Background(), &db.PrecomputedScore{
		UserID: 1, TargetUserID: 2, OverallScore: 90,
	}))
	require.NoError(t, scores.Invalidate(context.Background(), 2))

	res, err := pc.GetCandidates(context.Background(), 1, strategy.Request{Limit: 10})
	require.NoError(t, err)
	// Cache row is now invalid, so PreComputed falls back to Live entirely.
	require.Equal(t, "Live", res.StrategyName)
}
