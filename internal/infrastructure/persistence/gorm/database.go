package gorm

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
	"github.com/alchemorsel/ingrediate/internal/infrastructure/persistence/migrations"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Open connects to the configured SQL database, registers read replicas and
// migrates the favorites schema. PostgreSQL schemas are versioned with
// migrations; SQLite is auto-migrated from the models.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		path := cfg.Path
		// Use in-memory database if no path provided
		if path == "" {
			path = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(ParseLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == "postgres" && len(cfg.Replicas) > 0 {
		replicas := make([]gorm.Dialector, len(cfg.Replicas))
		for i, dsn := range cfg.Replicas {
			replicas[i] = postgres.Open(dsn)
		}
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})
		if cfg.ConnMaxLifetime > 0 {
			resolver = resolver.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		if err := db.Use(resolver); err != nil {
			return nil, fmt.Errorf("failed to register read replicas: %w", err)
		}
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
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if cfg.Driver == "postgres" {
		migrator, err := migrations.New(sqlDB, log)
		if err != nil {
			return nil, err
		}
		if err := migrator.Up(); err != nil {
			return nil, err
		}
	} else if err := db.AutoMigrate(&FavoriteModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// ParseLogLevel maps a textual level onto a GORM log level, defaulting to silent
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "info":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}
