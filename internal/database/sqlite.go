package database

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/tcg-inventory/backend/internal/config"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

var DB *gorm.DB

// Initialize opens the configured store, migrates it and installs it as DB.
func Initialize(cfg config.DBConfig, verbose bool) error {
	db, err := Open(cfg, verbose)
	if err != nil {
		return err
	}
	log.Info().Str("driver", cfg.Driver).Msg("Database connected successfully")

	if err := Migrate(db); err != nil {
		return err
	}
	log.Info().Msg("Database migration completed")

	DB = db
	return nil
}

// Open connects without migrating.
func Open(cfg config.DBConfig, verbose bool) (*gorm.DB, error) {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.URL)
	case config.DriverSQLite, "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	return db, nil
}

// Migrate auto-migrates the schema and runs the data migrations.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Library{},
		&models.CardSet{},
		&models.Card{},
		&models.StockItem{},
		&models.MarketplaceListing{},
		&models.SaleTransaction{},
		&models.TransactionItem{},
		&models.ValueSnapshot{},
		&models.Preference{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return RunMigrations(db)
}

func GetDB() *gorm.DB {
	return DB
}
