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

func setupResolverTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(&db.Profile{}, &db.PrecomputedScore{}))
	return database
}

func newTestResolver(t *testing.T) (*strategy.Resolver, *config.Watcher) {
	database := setupResolverTestDB(t)
	profiles := repository.NewProfileRepository(database)
	scores := repository.NewScoreRepository(database)
	pipeline := filter.Default()
	cfgWatcher := config.NewWatcher()
	scorer := compat.New(scores, cfgWatcher)
	live := strategy.NewLive(database, profiles, pipeline, scorer, fakeSwipe{}, fakeSafety{}, cfgWatcher)
	pc := strategy.NewPreComputed(profiles, scores, pipeline, fakeSwipe{}, fakeSafety{}, live, cfgWatcher)
	resolver := strategy.NewResolver(live, pc, profiles, nil, cfgWatcher)
	return resolver, cfgWatcher
}

func TestResolverOverrideWinsOverConfig(t *testing.T) {
	resolver, _ := newTestResolver(t)
	s := resolver.Resolve(context.Background(), "precomputed")
	require.Equal(t, "PreComputed", s.Name())
}

func TestResolverUnknownOverrideFallsBackToLive(t *testing.T) {
	resolver, _ := newTestResolver(t)
	s := resolver.Resolve(context.Background(), "not-a-real-strategy")
	require.Equal(t, "Live", s.Name())
}

func TestResolverAutoBelowThresholdPicksLive(t *testing.T) {
	resolver, cfgWatcher := newTestResolver(t)
	cfgWatcher.Current().AutoStrategyThresholds.LiveMaxUsers = 10000
	cfgWatcher.Current().Strategy = "auto"
	s := resolver.Resolve(context.Background(), "")
	require.Equal(t, "Live", s.Name())
}

func TestResolverIsCaseInsensitive(t *testing.T) {
	resolver, _ := newTestResolver(t)
	s := resolver.Resolve(context.Background(), "LIVE")
	require.Equal(t, "Live", s.Name())
}
