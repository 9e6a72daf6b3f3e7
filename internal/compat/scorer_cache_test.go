package compat_test

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
	"github.com/oggyb/matchengine/internal/repository"
)

func setupScorerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.PrecomputedScore{}))
	return database
}

func TestScoreIsReadThroughCached(t *testing.T) {
	database := setupScorerTestDB(t)
	scores := repository.NewScoreRepository(database)
	cfgWatcher := config.NewWatcher()
	scorer := compat.New(scores, cfgWatcher)

	requester := baseProfile(1)
	target := baseProfile(2)

	first, err := scorer.Score(context.Background(), requester, target)
	require.NoError(t, err)
	require.False(t, first.FromCache)

	second, err := scorer.Score(context.Background(), requester, target)
	require.NoError(t, err)
	require.True(t, second.FromCache)
	require.Equal(t, first.Overall, second.Overall)
}

func TestScoreRecomputesAfterInvalidation(t *testing.T) {
	database := setupScorerTestDB(t)
	scores := repository.NewScoreRepository(database)
	cfgWatcher := config.NewWatcher()
	scorer := compat.New(scores, cfgWatcher)

	requester := baseProfile(1)
	target := baseProfile(2)

	_, err := scorer.Score(context.Background(), requester, target)
	require.NoError(t, err)

	require.NoError(t, scores.Invalidate(context.Background(), target.UserID))

	res, err := scorer.Score(context.Background(), requester, target)
	require.NoError(t, err)
	require.False(t, res.FromCache)
}
