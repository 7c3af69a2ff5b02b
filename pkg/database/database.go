package database

import (
	"fmt"
	"strings"

	"taskflow/pkg/config"
	"taskflow/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres when DATABASE_URL is a postgres URL or unset,
// and to SQLite otherwise.
func Open(cfg *config.Config) (*gorm.DB, error) {
	url := cfg.DatabaseURL
	if url == "" || strings.HasPrefix(url, "postgres") {
		return NewPostgresDB(cfg)
	}
	return NewSQLiteDB(url)
}

func NewPostgresDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if dsn == "" {
		dsn = cfg.PostgresDSN()
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(logger.Warn))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// NewSQLiteDB opens a SQLite database. ":memory:" databases are pinned to a
// single connection so every query sees the same schema.
func NewSQLiteDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(logger.Silent))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}

	if strings.Contains(path, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates the shared tables plus any service-owned models.
func Migrate(db *gorm.DB, extra ...interface{}) error {
	all := append(models.All(), extra...)
	if err := db.AutoMigrate(all...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func gormConfig(level logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	}
}
