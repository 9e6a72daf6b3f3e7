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

func setupDailyPickRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.DailyPick{}))
	return database
}

func TestDeleteExpiredRemovesOnlyPastRows(t *testing.T) {
	ctx := context.Background()
	database := setupDailyPickRepoTestDB(t)
	repo := repository.NewDailyPickRepository(database)
	now := time.Now().UTC()

	require.NoError(t, repo.InsertBatch(ctx, []db.DailyPick{
		{UserID: 1, CandidateUserID: 2, Score: 90, Rank: 1, GeneratedAt: now, ExpiresAt: now.Add(-time.Hour)},
		{UserID: 1, CandidateUserID: 3, Score: 80, Rank: 2, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
	}))

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	rows, err := repo.PendingForUser(ctx, 1, now, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(3), rows[0].CandidateUserID)
}

func TestPendingForUserExcludesActedRows(t *testing.T) {
	ctx := context.Background()
	database := setupDailyPickRepoTestDB(t)
	repo := repository.NewDailyPickRepository(database)
	now := time.Now().UTC()

	require.NoError(t, repo.InsertBatch(ctx, []db.DailyPick{
		{UserID: 1, CandidateUserID: 2, Score: 90, Rank: 1, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
	}))
	require.NoError(t, repo.MarkActed(ctx, 1, 2))

	rows, err := repo.PendingForUser(ctx, 1, now, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCountUnseenTodayAndMarkSeen(t *testing.T) {
	ctx := context.Background()
	database := setupDailyPickRepoTestDB(t)
	repo := repository.NewDailyPickRepository(database)
	now := time.Now().UTC()

	require.NoError(t, repo.InsertBatch(ctx, []db.DailyPick{
		{UserID: 1, CandidateUserID: 2, Score: 90, Rank: 1, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
		{UserID: 1, CandidateUserID: 3, Score: 80, Rank: 2, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
	}))

	count, err := repo.CountUnseenToday(ctx, 1, now)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	require.NoError(t, repo.MarkSeen(ctx, 1, []uint64{2}))

	count, err = repo.CountUnseenToday(ctx, 1, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestInsertBatchUpsertsOnConflict(t *testing.T) {
	ctx := context.Background()
	database := setupDailyPickRepoTestDB(t)
	repo := repository.NewDailyPickRepository(database)
	now := time.Now().UTC()

	require.NoError(t, repo.InsertBatch(ctx, []db.DailyPick{
		{UserID: 1, CandidateUserID: 2, Score: 90, Rank: 1, GeneratedAt: now, ExpiresAt: now.Add(time.Hour)},
	}))
	require.NoError(t, repo.InsertBatch(ctx, []db.DailyPick{
		{UserID: 1, CandidateUserID: 2, Score: 95, Rank: 1, GeneratedAt: now, ExpiresAt: now.Add(2 * time.Hour)},
	}))

	rows, err := repo.PendingForUser(ctx, 1, now, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 95.0, rows[0].Score)
}
