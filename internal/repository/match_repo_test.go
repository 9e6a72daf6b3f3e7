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

func setupMatchRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.Match{}))
	return database
}

func TestUpsertMutualMatchCanonicalizesAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	database := setupMatchRepoTestDB(t)
	repo := repository.NewMatchRepository(database)
	score := 88.0

	require.NoError(t, repo.UpsertMutualMatch(ctx, 5, 2, &score, "swipe"))
	require.NoError(t, repo.UpsertMutualMatch(ctx, 2, 5, &score, "swipe"))

	var rows []db.Match
	require.NoError(t, database.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(2), rows[0].User1ID)
	require.Equal(t, uint64(5), rows[0].User2ID)
}

func TestStatsForUserAggregatesAcrossBothSides(t *testing.T) {
	ctx := context.Background()
	database := setupMatchRepoTestDB(t)
	repo := repository.NewMatchRepository(database)
	s1, s2 := 80.0, 60.0

	require.NoError(t, repo.UpsertMutualMatch(ctx, 1, 2, &s1, "swipe"))
	require.NoError(t, repo.UpsertMutualMatch(ctx, 1, 3, &s2, "swipe"))

	stats, err := repo.StatsForUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.TotalMatches)
	require.Equal(t, int64(2), stats.ActiveMatches)
	require.InDelta(t, 70.0, stats.AverageCompatibilityScore, 0.01)
}

func TestStatsForUserRanksTopReasonsByFrequency(t *testing.T) {
	ctx := context.Background()
	database := setupMatchRepoTestDB(t)
	repo := repository.NewMatchRepository(database)
	score := 75.0

	require.NoError(t, repo.UpsertMutualMatch(ctx, 1, 2, &score, "swipe"))
	require.NoError(t, repo.UpsertMutualMatch(ctx, 1, 3, &score, "swipe"))
	require.NoError(t, repo.UpsertMutualMatch(ctx, 1, 4, &score, "dailypick"))

	stats, err := repo.StatsForUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"swipe", "dailypick"}, stats.TopReasons)
}

func TestUnmatchDeactivatesWithoutDeleting(t *testing.T) {
	ctx := context.Background()
	database := setupMatchRepoTestDB(t)
	repo := repository.NewMatchRepository(database)
	score := 80.0

	require.NoError(t, repo.UpsertMutualMatch(ctx, 1, 2, &score, "swipe"))
	require.NoError(t, repo.Unmatch(ctx, 1, 2, 1, "not interested"))

	stats, err := repo.StatsForUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalMatches)
	require.Equal(t, int64(0), stats.ActiveMatches)
}

func TestDeleteAllForUserRemovesBothDirections(t *testing.T) {
	ctx := context.Background()
	database := setupMatchRepoTestDB(t)
	repo := repository.NewMatchRepository(database)
	score := 80.0

	require.NoError(t, repo.UpsertMutualMatch(ctx, 1, 2, &score, "swipe"))
	require.NoError(t, repo.UpsertMutualMatch(ctx, 3, 1, &score, "swipe"))

	count, err := repo.DeleteAllForUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
