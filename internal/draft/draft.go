// Package draft keeps unsaved edits to stock variants and reconciles them
// with the store on commit.
package draft

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// Listing is a marketplace a variant is listed on, with an optional price.
type Listing struct {
	Marketplace string              `json:"marketplace" validate:"required"`
	Price       decimal.NullDecimal `json:"price" validate:"omitempty,gte=0"`
}

// Draft is the editable copy of a stock variant.
type Draft struct {
	StockID      uint                `json:"stock_id"`
	CardID       string              `json:"card_id"`
	Quantity     int                 `json:"quantity" validate:"gt=0"`
	Condition    models.Condition    `json:"condition" validate:"required"`
	Language     models.CardLanguage `json:"language" validate:"required"`
	Cost         decimal.Decimal     `json:"cost" validate:"gte=0"`
	SKU          string              `json:"sku"`
	Location     string              `json:"location"`
	Marketplaces []Listing           `json:"marketplaces" validate:"dive"`
}

// FromStock clones the editable fields of item.
func FromStock(item models.StockItem) Draft {
	d := Draft{
		StockID:   item.ID,
		CardID:    item.CardID,
		Quantity:  item.Quantity,
		Condition: item.Condition,
		Language:  item.Language,
		Cost:      item.Cost,
		SKU:       item.SKU,
		Location:  item.Location,
	}
	for _, m := range item.Marketplaces {
		d.Marketplaces = append(d.Marketplaces, Listing{
			Marketplace: models.NormalizeMarketplace(m.Marketplace),
			Price:       m.Price,
		})
	}
	sortListings(d.Marketplaces)
	return d
}

func (d Draft) clone() Draft {
	d.Marketplaces = append([]Listing(nil), d.Marketplaces...)
	return d
}

func (d Draft) listing(marketplace string) (Listing, bool) {
	for _, l := range d.Marketplaces {
		if l.Marketplace == marketplace {
			return l, true
		}
	}
	return Listing{}, false
}

func sortListings(ls []Listing) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].Marketplace < ls[j].Marketplace })
}

// Changes is what a commit sends: the minimal field patch plus the
// marketplace set difference.
type Changes struct {
	Patch    models.StockPatch `json:"patch"`
	ToAdd    []Listing         `json:"to_add"`
	ToRemove []string          `json:"to_remove"`
	// ToUpdate holds listings whose price changed; they are re-sent as adds.
	ToUpdate []Listing `json:"to_update"`
}

func (c Changes) IsEmpty() bool {
	return c.Patch.IsEmpty() && len(c.ToAdd) == 0 && len(c.ToRemove) == 0 && len(c.ToUpdate) == 0
}

// Diff computes the changes that turn baseline into d.
func Diff(baseline, d Draft) Changes {
	var c Changes
	if d.Quantity != baseline.Quantity {
		q := d.Quantity
		c.Patch.Quantity = &q
	}
	if d.Condition != baseline.Condition {
		cond := d.Condition
		c.Patch.Condition = &cond
	}
	if !d.Cost.Equal(baseline.Cost) {
		cost := d.Cost
		c.Patch.Cost = &cost
	}
	if d.SKU != baseline.SKU {
		sku := d.SKU
		c.Patch.SKU = &sku
	}
	if d.Location != baseline.Location {
		loc := d.Location
		c.Patch.Location = &loc
	}
	if d.Language != baseline.Language {
		lang := d.Language
		c.Patch.Language = &lang
	}

	c.ToAdd = []Listing{}
	c.ToRemove = []string{}
	c.ToUpdate = []Listing{}
	for _, l := range d.Marketplaces {
		base, ok := baseline.listing(l.Marketplace)
		switch {
		case !ok:
			c.ToAdd = append(c.ToAdd, l)
		case !priceEqual(base.Price, l.Price):
			c.ToUpdate = append(c.ToUpdate, l)
		}
	}
	for _, l := range baseline.Marketplaces {
		if _, ok := d.listing(l.Marketplace); !ok {
			c.ToRemove = append(c.ToRemove, l.Marketplace)
		}
	}
	sortListings(c.ToAdd)
	sortListings(c.ToUpdate)
	sort.Strings(c.ToRemove)
	return c
}

// HasChanges compares field by field. Marketplaces compare as a set, so
// order does not matter, but a changed price does.
func HasChanges(original, d Draft) bool {
	return !Diff(original, d).IsEmpty()
}

func priceEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}
