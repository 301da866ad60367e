package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValueSnapshot stores the daily inventory value for historical tracking
type ValueSnapshot struct {
	ID            uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	SnapshotDate  time.Time       `json:"snapshot_date" gorm:"uniqueIndex;not null"`
	StockCount    int             `json:"stock_count"`
	DistinctCards int             `json:"distinct_cards"`
	TotalValue    decimal.Decimal `json:"total_value" gorm:"type:numeric"`
	TotalCost     decimal.Decimal `json:"total_cost" gorm:"type:numeric"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []ValueSnapshot `json:"snapshots"`
	Period    string          `json:"period"` // "week", "month", "3month", "year", "all"
}

// InventorySummary backs the summary totals view.
type InventorySummary struct {
	StockCount    int              `json:"stock_count"`
	DistinctCards int              `json:"distinct_cards"`
	TotalValue    decimal.Decimal  `json:"total_value"`
	TotalCost     decimal.Decimal  `json:"total_cost"`
	Libraries     []LibrarySummary `json:"libraries"`
}

type LibrarySummary struct {
	LibraryID  string          `json:"library_id"`
	Name       string          `json:"name"`
	StockCount int             `json:"stock_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}
