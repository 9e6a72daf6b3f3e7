package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/repository"
)

func setupMetricRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.AlgorithmMetric{}))
	return database
}

func TestLatestReturnsMostRecentRow(t *testing.T) {
	ctx := context.Background()
	database := setupMetricRepoTestDB(t)
	repo := repository.NewMetricRepository(database)
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, &db.AlgorithmMetric{UserID: 1, SwipesReceived: 10, LikesReceived: 2, CalculatedAt: now.Add(-time.Hour)}))
	require.NoError(t, repo.Insert(ctx, &db.AlgorithmMetric{UserID: 1, SwipesReceived: 20, LikesReceived: 8, CalculatedAt: now}))

	latest, err := repo.Latest(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 20, latest.SwipesReceived)
}

func TestLatestForUsersReturnsOnlyKnownUsers(t *testing.T) {
	ctx := context.Background()
	database := setupMetricRepoTestDB(t)
	repo := repository.NewMetricRepository(database)
	now := time.Now().UTC()

	require.NoError(t, repo.Insert(ctx, &db.AlgorithmMetric{UserID: 1, SwipesReceived: 10, LikesReceived: 2, CalculatedAt: now}))

	out, err := repo.LatestForUsers(ctx, []uint64{1, 2})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, ok := out[1]
	require.True(t, ok)
}
