package desirability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/matchengine/internal/db"
	"github.com/oggyb/matchengine/internal/desirability"
	"github.com/oggyb/matchengine/internal/repository"
)

func setupBatchTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.Profile{}, &db.AlgorithmMetric{}))
	return database
}

func TestRecalculateBatchPersistsAboveNoiseFloor(t *testing.T) {
	ctx := context.Background()
	database := setupBatchTestDB(t)
	profiles := repository.NewProfileRepository(database)
	metrics := repository.NewMetricRepository(database)
	calc := desirability.New(metrics, profiles)

	require.NoError(t, database.Create(&db.Profile{UserID: 1, Gender: db.GenderMale, Age: 30, DesirabilityScore: 50}).Error)
	require.NoError(t, metrics.Insert(ctx, &db.AlgorithmMetric{
		UserID: 1, SwipesReceived: 30, LikesReceived: 25, CalculatedAt: time.Now().UTC(),
	}))

	require.NoError(t, calc.RecalculateBatch(ctx, []uint64{1}))

	var p db.Profile
	require.NoError(t, database.First(&p, "user_id = ?", 1).Error)
	require.NotEqual(t, 50.0, p.DesirabilityScore)
	require.Greater(t, p.DesirabilityScore, 60.0)
}

func TestRecalculateBatchSkipsUsersWithoutMetrics(t *testing.T) {
	ctx := context.Background()
	database := setupBatchTestDB(t)
	profiles := repository.NewProfileRepository(database)
	metrics := repository.NewMetricRepository(database)
	calc := desirability.New(metrics, profiles)

	require.NoError(t, database.Create(&db.Profile{UserID: 1, Gender: db.GenderMale, Age: 30, DesirabilityScore: 50}).Error)

	require.NoError(t, calc.RecalculateBatch(ctx, []uint64{1}))

	var p db.Profile
	require.NoError(t, database.First(&p, "user_id = ?", 1).Error)
	require.Equal(t, 50.0, p.DesirabilityScore)
}
