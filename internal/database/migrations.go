package database

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// RunMigrations runs any custom data migrations after schema changes.
// Each step is safe to run repeatedly.
func RunMigrations(db *gorm.DB) error {
	if err := migrateStockDefaults(db); err != nil {
		return err
	}
	if err := normalizeMarketplaceNames(db); err != nil {
		return err
	}
	return nil
}

// migrateStockDefaults backfills condition and language on rows written
// before those columns had defaults.
func migrateStockDefaults(db *gorm.DB) error {
	if !db.Migrator().HasTable(&models.StockItem{}) {
		return nil
	}

	result := db.Exec(`UPDATE stock_items SET condition = 'NM' WHERE condition IS NULL OR condition = ''`)
	if result.Error != nil {
		log.Warn().Err(result.Error).Msg("failed to backfill stock condition")
	}

	result = db.Exec(`UPDATE stock_items SET language = 'English' WHERE language IS NULL OR language = ''`)
	if result.Error != nil {
		log.Warn().Err(result.Error).Msg("failed to backfill stock language")
	}
	return nil
}

// normalizeMarketplaceNames lower-cases listing names and drops duplicates
// that only differed by case, keeping the oldest row. This runs after
// AutoMigrate, so the unique index guards new writes already.
func normalizeMarketplaceNames(db *gorm.DB) error {
	var listings []models.MarketplaceListing
	if err := db.Order("id ASC").Find(&listings).Error; err != nil {
		return err
	}

	keep := make(map[string]models.MarketplaceListing)
	var duplicates []uint
	for _, l := range listings {
		key := fmt.Sprintf("%d|%s", l.StockID, models.NormalizeMarketplace(l.Marketplace))
		if _, ok := keep[key]; ok {
			duplicates = append(duplicates, l.ID)
			continue
		}
		keep[key] = l
	}

	// Duplicates go first so renames cannot collide with the unique index.
	if len(duplicates) > 0 {
		if err := db.Delete(&models.MarketplaceListing{}, duplicates).Error; err != nil {
			return err
		}
	}

	removed, renamed := len(duplicates), 0
	for _, l := range keep {
		name := models.NormalizeMarketplace(l.Marketplace)
		if name == l.Marketplace {
			continue
		}
		if err := db.Model(&models.MarketplaceListing{}).Where("id = ?", l.ID).Update("marketplace", name).Error; err != nil {
			return err
		}
		renamed++
	}

	if removed > 0 || renamed > 0 {
		log.Info().Int("renamed", renamed).Int("removed", removed).Msg("Normalized marketplace listing names")
	}
	return nil
}
