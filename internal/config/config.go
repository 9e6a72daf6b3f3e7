package config

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Weights are the per-user scoring weights from combination step.
type Weights struct {
	Location  float64
	Age       float64
	Interests float64
	Education float64
	Lifestyle float64
}

// Config is the full hot-reloadable configuration surface for the
// engine. It is loaded once by New, or rebuilt by a Watcher whenever
// viper reports a change to the underlying file.
type Config struct {
	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver   string // mysql | postgres | sqlite
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	Metrics struct {
		Addr string
	}

	Upstream struct {
		SwipeBaseURL  string
		SafetyBaseURL string
		Timeout       time.Duration
	}

	// Strategy resolution.
	Strategy              string // auto | live | precomputed
	DefaultLimit          int
	MaxLimit              int
	DefaultMinScore       float64
	ActiveWithinDays      int
	FallbackToLiveOnError bool

	AutoStrategyThresholds struct {
		LiveMaxUsers int
	}

	BackgroundScoring struct {
		Enabled                 bool
		RefreshIntervalMinutes  int
		MaxUsersPerCycle        int
		OnlyRefreshActiveUsers  bool
		ScoreTTLHours           int
		SkipRefreshWhenCPUAbove float64
		MaxConcurrentScoring    int
	}

	DailyPicks struct {
		Enabled           bool
		PicksPerUser      int
		GenerationTimeUTC string // "HH:MM"
		ExpiryHours       int
	}

	Scoring struct {
		DefaultWeights                Weights
		MinimumCompatibilityThreshold float64
		ScoreCacheHours               int
		WantsChildrenMismatchPenalty  float64
		HasChildrenMismatchPenalty    float64
		SmokingMismatchPenalty        float64
		DrinkingMismatchPenalty       float64
		ReligionMismatchPenalty       float64
		ActivityScoreHalfLifeDays     float64
	}

	DailySuggestionLimits struct {
		MaxDailySuggestions       int
		PremiumMaxDailySuggestions int
		RefreshIntervalHours      int
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.component", "matchengine")
	v.SetDefault("log.source", false)

	v.SetDefault("db.driver", "mysql")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "3306")
	v.SetDefault("db.user", "root")
	v.SetDefault("db.password", "root")
	v.SetDefault("db.name", "matchengine")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("grpc.host", "127.0.0.1")
	v.SetDefault("grpc.port", "50051")

	v.SetDefault("metrics.addr", "127.0.0.1:9090")

	v.SetDefault("upstream.swipebaseurl", "http://swipe-service")
	v.SetDefault("upstream.safetybaseurl", "http://safety-service")
	v.SetDefault("upstream.timeout", "3s")

	v.SetDefault("strategy", "auto")
	v.SetDefault("defaultlimit", 20)
	v.SetDefault("maxlimit", 50)
	v.SetDefault("defaultminscore", 0.0)
	v.SetDefault("activewithindays", 30)
	v.SetDefault("fallbacktoliveonerror", true)

	v.SetDefault("autostrategythresholds.livemaxusers", 10000)

	v.SetDefault("backgroundscoring.enabled", true)
	v.SetDefault("backgroundscoring.refreshintervalminutes", 15)
	v.SetDefault("backgroundscoring.maxuserspercycle", 500)
	v.SetDefault("backgroundscoring.onlyrefreshactiveusers", true)
	v.SetDefault("backgroundscoring.scorettlhours", 24)
	v.SetDefault("backgroundscoring.skiprefreshwhencpuabove", 85.0)
	v.SetDefault("backgroundscoring.maxconcurrentscoring", 5)

	v.SetDefault("dailypicks.enabled", true)
	v.SetDefault("dailypicks.picksperuser", 10)
	v.SetDefault("dailypicks.generationtimeutc", "03:00")
	v.SetDefault("dailypicks.expiryhours", 24)

	v.SetDefault("scoring.defaultweights.location", 1.0)
	v.SetDefault("scoring.defaultweights.age", 1.0)
	v.SetDefault("scoring.defaultweights.interests", 1.0)
	v.SetDefault("scoring.defaultweights.education", 0.5)
	v.SetDefault("scoring.defaultweights.lifestyle", 0.5)
	v.SetDefault("scoring.minimumcompatibilitythreshold", 40.0)
	v.SetDefault("scoring.scorecachehours", 24)
	v.SetDefault("scoring.wantschildrenmismatchpenalty", 30.0)
	v.SetDefault("scoring.haschildrenmismatchpenalty", 15.0)
	v.SetDefault("scoring.smokingmismatchpenalty", 20.0)
	v.SetDefault("scoring.drinkingmismatchpenalty", 15.0)
	v.SetDefault("scoring.religionmismatchpenalty", 10.0)
	v.SetDefault("scoring.activityscorehalflifedays", 7.0)

	v.SetDefault("dailysuggestionlimits.maxdailysuggestions", 50)
	v.SetDefault("dailysuggestionlimits.premiummaxdailysuggestions", 150)
	v.SetDefault("dailysuggestionlimits.refreshintervalhours", 24)
}

type dbFields struct {
	Driver   string
	DSN      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func defaultDSN(driver string, db dbFields) string {
	switch driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			db.Host, db.Port, db.User, db.Password, db.Name,
		)
	case "sqlite":
		return db.Name
	default: // mysql
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			db.User, db.Password, db.Host, db.Port, db.Name,
		)
	}
}

func build(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.Log.Component = v.GetString("log.component")
	cfg.Log.Source = v.GetBool("log.source")

	cfg.DB.Driver = strings.ToLower(v.GetString("db.driver"))
	cfg.DB.DSN = v.GetString("db.dsn")
	cfg.DB.Host = v.GetString("db.host")
	cfg.DB.Port = v.GetString("db.port")
	cfg.DB.User = v.GetString("db.user")
	cfg.DB.Password = v.GetString("db.password")
	cfg.DB.Name = v.GetString("db.name")
	if cfg.DB.DSN == "" {
		cfg.DB.DSN = defaultDSN(cfg.DB.Driver, dbFields(cfg.DB))
	}

	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")

	cfg.GRPC.Host = v.GetString("grpc.host")
	cfg.GRPC.Port = v.GetString("grpc.port")

	cfg.Metrics.Addr = v.GetString("metrics.addr")

	cfg.Upstream.SwipeBaseURL = v.GetString("upstream.swipebaseurl")
	cfg.Upstream.SafetyBaseURL = v.GetString("upstream.safetybaseurl")
	cfg.Upstream.Timeout = v.GetDuration("upstream.timeout")

	cfg.Strategy = strings.ToLower(v.GetString("strategy"))
	cfg.DefaultLimit = v.GetInt("defaultlimit")
	cfg.MaxLimit = v.GetInt("maxlimit")
	cfg.DefaultMinScore = v.GetFloat64("defaultminscore")
	cfg.ActiveWithinDays = v.GetInt("activewithindays")
	cfg.FallbackToLiveOnError = v.GetBool("fallbacktoliveonerror")

	cfg.AutoStrategyThresholds.LiveMaxUsers = v.GetInt("autostrategythresholds.livemaxusers")

	cfg.BackgroundScoring.Enabled = v.GetBool("backgroundscoring.enabled")
	cfg.BackgroundScoring.RefreshIntervalMinutes = v.GetInt("backgroundscoring.refreshintervalminutes")
	cfg.BackgroundScoring.MaxUsersPerCycle = v.GetInt("backgroundscoring.maxuserspercycle")
	cfg.BackgroundScoring.OnlyRefreshActiveUsers = v.GetBool("backgroundscoring.onlyrefreshactiveusers")
	cfg.BackgroundScoring.ScoreTTLHours = v.GetInt("backgroundscoring.scorettlhours")
	cfg.BackgroundScoring.SkipRefreshWhenCPUAbove = v.GetFloat64("backgroundscoring.skiprefreshwhencpuabove")
	cfg.BackgroundScoring.MaxConcurrentScoring = v.GetInt("backgroundscoring.maxconcurrentscoring")

	cfg.DailyPicks.Enabled = v.GetBool("dailypicks.enabled")
	cfg.DailyPicks.PicksPerUser = v.GetInt("dailypicks.picksperuser")
	cfg.DailyPicks.GenerationTimeUTC = v.GetString("dailypicks.generationtimeutc")
	cfg.DailyPicks.ExpiryHours = v.GetInt("dailypicks.expiryhours")

	cfg.Scoring.DefaultWeights = Weights{
		Location:  v.GetFloat64("scoring.defaultweights.location"),
		Age:       v.GetFloat64("scoring.defaultweights.age"),
		Interests: v.GetFloat64("scoring.defaultweights.interests"),
		Education: v.GetFloat64("scoring.defaultweights.education"),
		Lifestyle: v.GetFloat64("scoring.defaultweights.lifestyle"),
	}
	cfg.Scoring.MinimumCompatibilityThreshold = v.GetFloat64("scoring.minimumcompatibilitythreshold")
	cfg.Scoring.ScoreCacheHours = v.GetInt("scoring.scorecachehours")
	cfg.Scoring.WantsChildrenMismatchPenalty = v.GetFloat64("scoring.wantschildrenmismatchpenalty")
	cfg.Scoring.HasChildrenMismatchPenalty = v.GetFloat64("scoring.haschildrenmismatchpenalty")
	cfg.Scoring.SmokingMismatchPenalty = v.GetFloat64("scoring.smokingmismatchpenalty")
	cfg.Scoring.DrinkingMismatchPenalty = v.GetFloat64("scoring.drinkingmismatchpenalty")
	cfg.Scoring.ReligionMismatchPenalty = v.GetFloat64("scoring.religionmismatchpenalty")
	cfg.Scoring.ActivityScoreHalfLifeDays = v.GetFloat64("scoring.activityscorehalflifedays")

	cfg.DailySuggestionLimits.MaxDailySuggestions = v.GetInt("dailysuggestionlimits.maxdailysuggestions")
	cfg.DailySuggestionLimits.PremiumMaxDailySuggestions = v.GetInt("dailysuggestionlimits.premiummaxdailysuggestions")
	cfg.DailySuggestionLimits.RefreshIntervalHours = v.GetInt("dailysuggestionlimits.refreshintervalhours")

	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MATCHENGINE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := strings.TrimSpace(os.Getenv("MATCHENGINE_CONFIG")); path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig() // missing/invalid file: fall back to env + defaults
	}
	return v
}

// New loads a single point-in-time Config snapshot without wiring hot
// reload. Callers that only need a snapshot — tests, the seed command —
// should use this.
func New() *Config {
	return build(newViper())
}

// Watcher holds a hot-reloadable Config snapshot. Readers call
// Current(), which never blocks a concurrent reload: the pointer is
// swapped atomically once viper reports the backing file changed.
type Watcher struct {
	v   *viper.Viper
	cur atomic.Pointer[Config]
}

// NewWatcher loads the initial snapshot and, if MATCHENGINE_CONFIG points
// at a real file, starts watching it for changes.
func NewWatcher() *Watcher {
	v := newViper()
	w := &Watcher{v: v}
	w.cur.Store(build(v))

	v.OnConfigChange(func(_ fsnotify.Event) {
		w.cur.Store(build(v))
	})
	v.WatchConfig()
	return w
}

// Current returns the latest snapshot. Safe for concurrent use.
func (w *Watcher) Current() *Config {
	return w.cur.Load()
}

// Reload rebuilds the snapshot from the underlying viper instance
// on demand, independent of the fsnotify callback. Tests use this to
// force a deterministic reload.
func (w *Watcher) Reload() {
	w.cur.Store(build(w.v))
}
