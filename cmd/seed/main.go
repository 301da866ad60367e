// seed loads a card catalog into the inventory store and optionally stocks
// part of it, so the tree has something to browse.
//
// Usage: seed [-data=<dir>] [-filler-sets=N] [-stock-every=N] [-dry-run]
//
// Without -data the bundled demo catalog is used. The catalog layout is
// libraries.json, sets.json and cards/<set id>.json. Seeding is idempotent:
// catalog rows are upserted and stock is only added to cards that have none.
package main

import (
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-inventory/backend/internal/config"
	"github.com/codyseavey/tcg-inventory/backend/internal/database"
	"github.com/codyseavey/tcg-inventory/backend/internal/logging"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

//go:embed demo
var demoCatalog embed.FS

// seedResult counts what a run wrote.
type seedResult struct {
	Libraries int
	Sets      int
	Cards     int
	Stock     int
}

func main() {
	dataDir := flag.String("data", "", "Catalog directory (defaults to the bundled demo catalog)")
	fillerSets := flag.Int("filler-sets", 0, "Extra empty sets to add to the first library")
	stockEvery := flag.Int("stock-every", 2, "Stock one copy of every Nth card (0 disables)")
	dryRun := flag.Bool("dry-run", false, "Load and validate the catalog without writing")
	flag.Parse()

	logging.Setup(os.Getenv("LOG_LEVEL"), "console")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	var fsys fs.FS
	if *dataDir != "" {
		fsys = os.DirFS(*dataDir)
	} else {
		fsys, err = fs.Sub(demoCatalog, "demo")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open demo catalog")
		}
	}

	cat, err := loadCatalog(fsys)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load catalog")
	}
	if *fillerSets > 0 && len(cat.Libraries) > 0 {
		cat.addFillerSets(cat.Libraries[0].ID, *fillerSets)
	}
	log.Info().
		Int("libraries", len(cat.Libraries)).
		Int("sets", len(cat.Sets)).
		Int("cards", len(cat.Cards)).
		Msg("Catalog loaded")

	if *dryRun {
		fmt.Println("Dry run, nothing written")
		return
	}

	if err := database.Initialize(cfg.DB, false); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	res, err := seed(database.GetDB(), cat, *stockEvery)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
	printSummary(res)
}

// seed upserts the catalog in one transaction. Every stockEvery-th card that
// has no stock yet gets one near mint copy, listed on tcgplayer at market.
func seed(db *gorm.DB, cat *catalog, stockEvery int) (seedResult, error) {
	var res seedResult
	err := db.Transaction(func(tx *gorm.DB) error {
		if len(cat.Libraries) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"name"}),
			}).Create(&cat.Libraries).Error
			if err != nil {
				return fmt.Errorf("upsert libraries: %w", err)
			}
			res.Libraries = len(cat.Libraries)
		}

		if len(cat.Sets) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"library_id", "name", "code", "is_upcoming", "released_at"}),
			}).CreateInBatches(&cat.Sets, 100).Error
			if err != nil {
				return fmt.Errorf("upsert sets: %w", err)
			}
			res.Sets = len(cat.Sets)
		}

		if len(cat.Cards) > 0 {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"set_id", "name", "card_number", "rarity", "price_usd"}),
			}).CreateInBatches(&cat.Cards, 100).Error
			if err != nil {
				return fmt.Errorf("upsert cards: %w", err)
			}
			res.Cards = len(cat.Cards)
		}

		if stockEvery <= 0 {
			return nil
		}
		for i, card := range cat.Cards {
			if i%stockEvery != 0 {
				continue
			}
			var count int64
			if err := tx.Model(&models.StockItem{}).Where("card_id = ?", card.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("count stock for %s: %w", card.ID, err)
			}
			if count > 0 {
				continue
			}
			item := models.StockItem{
				CardID:    card.ID,
				Quantity:  1,
				Condition: models.ConditionNearMint,
				Language:  models.LanguageEnglish,
				Cost:      card.PriceUSD.Mul(decimal.RequireFromString("0.6")).Round(2),
				Active:    true,
				Marketplaces: []models.MarketplaceListing{
					{Marketplace: "tcgplayer", Price: decimal.NewNullDecimal(card.PriceUSD)},
				},
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("stock %s: %w", card.ID, err)
			}
			res.Stock++
		}
		return nil
	})
	return res, err
}

func printSummary(res seedResult) {
	fmt.Println("\n=== Seed Summary ===")
	fmt.Printf("Libraries: %d\n", res.Libraries)
	fmt.Printf("Sets:      %d\n", res.Sets)
	fmt.Printf("Cards:     %d\n", res.Cards)
	fmt.Printf("New stock: %d\n", res.Stock)
}
