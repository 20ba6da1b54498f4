package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"laundry-notifier/config"
	"laundry-notifier/internal/model"
)

const (
	sqlitePrefix = "sqlite:"
	memoryDSN    = "file::memory:?cache=shared"
)

// Init opens the database and runs migrations. An empty DSN selects an
// in-memory sqlite database; a DSN starting with "sqlite:" selects a sqlite
// file; anything else is handed to the postgres driver.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, kind := dialectorFor(cfg.DSN)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", kind, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	log.Printf("Running %s database migrations...", kind)
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the tables this service owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.PushSubscription{},
		&model.FinishRecord{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}

func dialectorFor(dsn string) (gorm.Dialector, string) {
	switch {
	case dsn == "":
		return sqlite.Open(memoryDSN), "sqlite"
	case strings.HasPrefix(dsn, sqlitePrefix):
		return sqlite.Open(strings.TrimPrefix(dsn, sqlitePrefix)), "sqlite"
	default:
		return postgres.Open(dsn), "postgres"
	}
}
