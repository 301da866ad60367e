package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

type catalogLibrary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type catalogSet struct {
	ID         string `json:"id"`
	LibraryID  string `json:"library_id"`
	Name       string `json:"name"`
	Code       string `json:"code"`
	IsUpcoming bool   `json:"is_upcoming"`
	ReleasedAt string `json:"released_at"` // YYYY-MM-DD
}

type catalogCard struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Number string          `json:"number"`
	Rarity string          `json:"rarity"`
	Price  decimal.Decimal `json:"price"`
}

// catalog is a card catalog in store form, ready to upsert.
type catalog struct {
	Libraries []models.Library
	Sets      []models.CardSet
	Cards     []models.Card
}

// loadCatalog reads libraries.json, sets.json and cards/<set id>.json from
// fsys. A set without a cards file is kept with no cards.
func loadCatalog(fsys fs.FS) (*catalog, error) {
	var libs []catalogLibrary
	if err := readJSON(fsys, "libraries.json", &libs); err != nil {
		return nil, err
	}
	var sets []catalogSet
	if err := readJSON(fsys, "sets.json", &sets); err != nil {
		return nil, err
	}

	cat := &catalog{}
	known := make(map[string]bool)
	for _, l := range libs {
		if l.ID == "" {
			return nil, fmt.Errorf("libraries.json: library without id")
		}
		known[l.ID] = true
		cat.Libraries = append(cat.Libraries, models.Library{ID: l.ID, Name: l.Name})
	}

	for _, s := range sets {
		if !known[s.LibraryID] {
			return nil, fmt.Errorf("set %s: unknown library %q", s.ID, s.LibraryID)
		}
		set := models.CardSet{ID: s.ID, LibraryID: s.LibraryID, Name: s.Name, Code: s.Code, IsUpcoming: s.IsUpcoming}
		if s.ReleasedAt != "" {
			released, err := time.Parse(time.DateOnly, s.ReleasedAt)
			if err != nil {
				return nil, fmt.Errorf("set %s: released_at: %w", s.ID, err)
			}
			set.ReleasedAt = &released
		}
		cat.Sets = append(cat.Sets, set)

		var cards []catalogCard
		err := readJSON(fsys, path.Join("cards", s.ID+".json"), &cards)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			log.Warn().Err(err).Str("set", s.ID).Msg("Skipping unreadable cards file")
			continue
		}
		for _, c := range cards {
			cat.Cards = append(cat.Cards, models.Card{
				ID:         c.ID,
				SetID:      s.ID,
				Name:       c.Name,
				CardNumber: c.Number,
				Rarity:     c.Rarity,
				PriceUSD:   c.Price,
			})
		}
	}
	return cat, nil
}

func readJSON(fsys fs.FS, name string, v any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// addFillerSets appends n empty sets to libraryID so the set list spans
// several pages.
func (c *catalog) addFillerSets(libraryID string, n int) {
	for i := 1; i <= n; i++ {
		c.Sets = append(c.Sets, models.CardSet{
			ID:        fmt.Sprintf("%s-filler-%03d", libraryID, i),
			LibraryID: libraryID,
			Name:      fmt.Sprintf("Promo Pack %03d", i),
		})
	}
}
