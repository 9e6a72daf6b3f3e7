package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/matchengine/internal/config"
)

// NewDB opens the configured driver and migrates the candidate store's
// schema. Driver choice is config-only: mysql (production default),
// postgres, or sqlite (tests / local dev).
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DB.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DB.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DB.DSN)
	default:
		dialector = mysql.Open(cfg.DB.DSN)
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := AutoMigrate(database); err != nil {
		return nil, err
	}

	return database, nil
}

// AutoMigrate syncs the schema for every entity the candidate store owns.
// Exposed separately so tests can migrate an in-memory sqlite connection
// without going through NewDB.
func AutoMigrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&Profile{},
		&Match{},
		&PrecomputedScore{},
		&DailyPick{},
		&UserInteraction{},
		&AlgorithmMetric{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
