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

func setupInteractionRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.UserInteraction{}))
	return database
}

func TestRecordAppendsInteraction(t *testing.T) {
	ctx := context.Background()
	database := setupInteractionRepoTestDB(t)
	repo := repository.NewInteractionRepository(database)

	require.NoError(t, repo.Record(ctx, 1, 2, db.InteractionLike))
	require.NoError(t, repo.Record(ctx, 1, 3, db.InteractionPass))

	var rows []db.UserInteraction
	require.NoError(t, database.Find(&rows).Error)
	require.Len(t, rows, 2)
}

func TestCountSinceCountsLikesAndSwipesSeparately(t *testing.T) {
	ctx := context.Background()
	database := setupInteractionRepoTestDB(t)
	repo := repository.NewInteractionRepository(database)

	require.NoError(t, repo.Record(ctx, 1, 99, db.InteractionLike))
	require.NoError(t, repo.Record(ctx, 2, 99, db.InteractionLike))
	require.NoError(t, repo.Record(ctx, 3, 99, db.InteractionPass))

	swipes, likes, err := repo.CountSince(ctx, 99, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(3), swipes)
	require.Equal(t, int64(2), likes)
}

func TestCountSinceExcludesOlderRows(t *testing.T) {
	ctx := context.Background()
	database := setupInteractionRepoTestDB(t)
	repo := repository.NewInteractionRepository(database)
	require.NoError(t, repo.Record(ctx, 1, 99, db.InteractionLike))

	swipes, likes, err := repo.CountSince(ctx, 99, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(0), swipes)
	require.Equal(t, int64(0), likes)
}
