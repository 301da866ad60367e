package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Condition string

const (
	ConditionNearMint      Condition = "NM"
	ConditionLightlyPlayed Condition = "LP"
	ConditionModerately    Condition = "MP"
	ConditionHeavilyPlayed Condition = "HP"
	ConditionDamaged       Condition = "DMG"
)

// AllConditions returns all valid conditions, best first
func AllConditions() []Condition {
	return []Condition{
		ConditionNearMint,
		ConditionLightlyPlayed,
		ConditionModerately,
		ConditionHeavilyPlayed,
		ConditionDamaged,
	}
}

// NormalizeCondition maps the long-form names sellers type into our codes.
// Returns "" for unknown values.
func NormalizeCondition(value string) Condition {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "NM", "NEAR MINT", "M", "MINT":
		return ConditionNearMint
	case "LP", "LIGHTLY PLAYED", "EX", "EXCELLENT":
		return ConditionLightlyPlayed
	case "MP", "MODERATELY PLAYED", "GD", "GOOD":
		return ConditionModerately
	case "HP", "HEAVILY PLAYED", "PL", "PLAYED":
		return ConditionHeavilyPlayed
	case "DMG", "DAMAGED", "PR", "POOR":
		return ConditionDamaged
	default:
		return ""
	}
}

// CardLanguage represents the language/region of a card
type CardLanguage string

const (
	LanguageEnglish  CardLanguage = "English"
	LanguageJapanese CardLanguage = "Japanese"
	LanguageGerman   CardLanguage = "German"
	LanguageFrench   CardLanguage = "French"
	LanguageItalian  CardLanguage = "Italian"
)

// NormalizeLanguage maps ISO codes and common spellings to CardLanguage.
// Returns LanguageEnglish as default for unknown/empty values.
func NormalizeLanguage(lang string) CardLanguage {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "japanese", "jp", "ja", "jpn":
		return LanguageJapanese
	case "german", "de", "deu", "ger":
		return LanguageGerman
	case "french", "fr", "fra", "fre":
		return LanguageFrench
	case "italian", "it", "ita":
		return LanguageItalian
	default:
		return LanguageEnglish
	}
}

// StockFilter restricts tree reads by stock level.
type StockFilter string

const (
	StockFilterAll        StockFilter = "all"
	StockFilterInStock    StockFilter = "in-stock"
	StockFilterOutOfStock StockFilter = "out-of-stock"
)

func ParseStockFilter(value string) (StockFilter, error) {
	switch f := StockFilter(strings.ToLower(strings.TrimSpace(value))); f {
	case "":
		return StockFilterAll, nil
	case StockFilterAll, StockFilterInStock, StockFilterOutOfStock:
		return f, nil
	default:
		return "", fmt.Errorf("unknown stock filter %q", value)
	}
}

// StockItem is one condition/language/SKU variant of a card the seller owns.
type StockItem struct {
	ID           uint                 `json:"id" gorm:"primaryKey;autoIncrement"`
	CardID       string               `json:"card_id" gorm:"not null;index"`
	Card         *Card                `json:"card,omitempty" gorm:"foreignKey:CardID"`
	Quantity     int                  `json:"quantity"`
	Condition    Condition            `json:"condition" gorm:"default:'NM'"`
	Language     CardLanguage         `json:"language" gorm:"default:'English'"`
	Cost         decimal.Decimal      `json:"cost" gorm:"type:numeric"`
	SKU          string               `json:"sku" gorm:"index"`
	Location     string               `json:"location"`
	Active       bool                 `json:"active" gorm:"index"`
	Marketplaces []MarketplaceListing `json:"marketplaces" gorm:"foreignKey:StockID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// MarketplaceListing associates a stock variant with a sales channel.
type MarketplaceListing struct {
	ID          uint                `json:"-" gorm:"primaryKey;autoIncrement"`
	StockID     uint                `json:"-" gorm:"not null;uniqueIndex:idx_stock_marketplace"`
	Marketplace string              `json:"marketplace" gorm:"not null;uniqueIndex:idx_stock_marketplace"`
	Price       decimal.NullDecimal `json:"price" gorm:"type:numeric"`
	CreatedAt   time.Time           `json:"-"`
}

// NormalizeMarketplace lower-cases and trims marketplace names so "eBay" and
// "ebay " refer to the same listing.
func NormalizeMarketplace(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// StockPatch carries only the fields that changed; nil means untouched.
type StockPatch struct {
	Quantity  *int             `json:"quantity,omitempty"`
	Condition *Condition       `json:"condition,omitempty"`
	Cost      *decimal.Decimal `json:"cost,omitempty"`
	SKU       *string          `json:"sku,omitempty"`
	Location  *string          `json:"location,omitempty"`
	Language  *CardLanguage    `json:"language,omitempty"`
}

func (p StockPatch) IsEmpty() bool {
	return p.Quantity == nil && p.Condition == nil && p.Cost == nil &&
		p.SKU == nil && p.Location == nil && p.Language == nil
}

// Columns converts the patch into a column map for a partial update.
func (p StockPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Quantity != nil {
		cols["quantity"] = *p.Quantity
	}
	if p.Condition != nil {
		cols["condition"] = *p.Condition
	}
	if p.Cost != nil {
		cols["cost"] = *p.Cost
	}
	if p.SKU != nil {
		cols["sku"] = *p.SKU
	}
	if p.Location != nil {
		cols["location"] = *p.Location
	}
	if p.Language != nil {
		cols["language"] = *p.Language
	}
	return cols
}

// Apply copies the patched fields onto item.
func (p StockPatch) Apply(item *StockItem) {
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Condition != nil {
		item.Condition = *p.Condition
	}
	if p.Cost != nil {
		item.Cost = *p.Cost
	}
	if p.SKU != nil {
		item.SKU = *p.SKU
	}
	if p.Location != nil {
		item.Location = *p.Location
	}
	if p.Language != nil {
		item.Language = *p.Language
	}
}

type CreateStockRequest struct {
	CardID       string          `json:"card_id" binding:"required"`
	Quantity     int             `json:"quantity"`
	Condition    Condition       `json:"condition"`
	Language     CardLanguage    `json:"language"`
	Cost         decimal.Decimal `json:"cost"`
	SKU          string          `json:"sku"`
	Location     string          `json:"location"`
	Marketplaces []string        `json:"marketplaces"`
}

// InventoryLeaf is one card with its stock details, the input to grouping.
type InventoryLeaf struct {
	CardID        string            `json:"card_id"`
	CardName      string            `json:"card_name"`
	Game          string            `json:"game"`
	SetName       string            `json:"set_name"`
	Rarity        string            `json:"rarity"`
	StockQuantity int               `json:"stock_quantity"`
	Details       []LeafDetail      `json:"details"`
	Tags          map[string]string `json:"tags,omitempty"`
}

type LeafDetail struct {
	StockID        uint            `json:"stock_id"`
	Condition      Condition       `json:"condition"`
	Language       CardLanguage    `json:"language"`
	Quantity       int             `json:"quantity"`
	EstimatedValue decimal.Decimal `json:"estimated_value"`
}

// Value is the sum of estimated value times quantity over the details.
func (l InventoryLeaf) Value() decimal.Decimal {
	total := decimal.Zero
	for _, d := range l.Details {
		total = total.Add(d.EstimatedValue.Mul(decimal.NewFromInt(int64(d.Quantity))))
	}
	return total
}
