package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Library is the top level of the catalog, one per game.
type Library struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

type CardSet struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	LibraryID  string     `json:"library_id" gorm:"not null;index"`
	Library    Library    `json:"-" gorm:"foreignKey:LibraryID"`
	Name       string     `json:"name" gorm:"not null"`
	Code       string     `json:"code"`
	IsUpcoming bool       `json:"is_upcoming"`
	ReleasedAt *time.Time `json:"released_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

type Card struct {
	ID             string          `json:"id" gorm:"primaryKey"`
	SetID          string          `json:"set_id" gorm:"not null;index"`
	Set            CardSet         `json:"-" gorm:"foreignKey:SetID"`
	Name           string          `json:"name" gorm:"not null;index"`
	CardNumber     string          `json:"card_number"`
	Rarity         string          `json:"rarity"`
	ImageURL       string          `json:"image_url"`
	PriceUSD       decimal.Decimal `json:"price_usd" gorm:"type:numeric"`
	PriceUpdatedAt *time.Time      `json:"price_updated_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// LibraryNode, SetNode and CardNode are tree rows. StockCount and TotalValue
// aggregate the active stock below the node.
type LibraryNode struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	StockCount int             `json:"stock_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

type SetNode struct {
	ID         string          `json:"id"`
	LibraryID  string          `json:"library_id"`
	Name       string          `json:"name"`
	IsUpcoming bool            `json:"is_upcoming"`
	StockCount int             `json:"stock_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

type CardNode struct {
	ID         string          `json:"id"`
	SetID      string          `json:"set_id"`
	Name       string          `json:"name"`
	Rarity     string          `json:"rarity"`
	CardNumber string          `json:"card_number"`
	PriceUSD   decimal.Decimal `json:"price_usd"`
	StockCount int             `json:"stock_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

type CardSearchResult struct {
	Cards   []CardNode `json:"cards"`
	HasMore bool       `json:"has_more"`
}
