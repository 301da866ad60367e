// Package gateway is the contract between the inventory core and the backing
// store, plus a gorm implementation of it.
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// ListParams pages and filters a tree read.
type ListParams struct {
	Offset      int
	Limit       int
	StockFilter models.StockFilter
}

// UpdateResult reports whether an update matched a row.
type UpdateResult struct {
	Success bool `json:"success"`
}

// Gateway executes paged reads and mutations against the backing store. Every
// method may fail with a transient error; callers keep their state and retry.
type Gateway interface {
	ListLibraries(ctx context.Context, p ListParams) ([]models.LibraryNode, error)
	// ListSets lists every set when libraryID is empty.
	ListSets(ctx context.Context, libraryID string, p ListParams) ([]models.SetNode, error)
	// ListCards lists every card when setID is empty.
	ListCards(ctx context.Context, setID string, p ListParams) ([]models.CardNode, error)
	ListStockVariants(ctx context.Context, cardID string, activeOnly bool) ([]models.StockItem, error)
	SearchCardsByName(ctx context.Context, query string, p ListParams) ([]models.CardNode, error)
	ListInventoryLeaves(ctx context.Context, filter models.StockFilter) ([]models.InventoryLeaf, error)
	Summary(ctx context.Context) (*models.InventorySummary, error)

	GetStock(ctx context.Context, stockID uint) (*models.StockItem, error)
	CreateStock(ctx context.Context, req models.CreateStockRequest) (*models.StockItem, error)
	UpdateStock(ctx context.Context, stockID uint, patch models.StockPatch) (UpdateResult, error)
	// AddMarketplaceListing upserts; listing an already-listed marketplace updates its price.
	AddMarketplaceListing(ctx context.Context, stockID uint, marketplace string, price decimal.NullDecimal) error
	// RemoveMarketplaceListing is a no-op when the listing does not exist.
	RemoveMarketplaceListing(ctx context.Context, stockID uint, marketplace string) error
	CreateSaleTransaction(ctx context.Context, req models.CreateSaleRequest) (*models.SaleTransaction, error)
}
