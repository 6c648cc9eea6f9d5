package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/models"
)

var db *gorm.DB

// Initialize sets up the catalog store connection and runs migrations.
// sqlite is the default; postgres is selected through configuration for
// setups that share a catalog across machines.
func Initialize() error {
	cfg := config.Get()

	dialector, err := openDialector(cfg)
	if err != nil {
		return err
	}

	gormLogger := logger.NewGormAdapter(logger.DatabaseLogger(), cfg.GetDatabaseLogLevel())

	db, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		// sqlite tolerates exactly one writer; keep the pool tiny.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func openDialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.Database.Driver {
	case "sqlite", "":
		return sqlite.Open(cfg.Database.Path), nil
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.DBName,
			cfg.Database.SSLMode,
		)
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

// Get returns the database instance
func Get() *gorm.DB {
	return db
}

// Set replaces the database instance (primarily for testing)
func Set(instance *gorm.DB) {
	db = instance
}

// HealthCheck verifies database connectivity
func HealthCheck() error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}

func runMigrations() error {
	return db.AutoMigrate(
		&models.CatalogItem{},
		&models.Category{},
		&models.CrawlLog{},
		&models.OrganizeRun{},
	)
}
