package gateway

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/metrics"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// Throttled spaces out calls to the wrapped gateway with a token bucket so a
// burst of scrolling cannot overwhelm the backing store.
type Throttled struct {
	next    Gateway
	limiter *rate.Limiter
}

// NewThrottled wraps next. rps <= 0 returns next unchanged.
func NewThrottled(next Gateway, rps float64, burst int) Gateway {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) wait(ctx context.Context) error {
	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return errs.Wrap(errs.KindTransient, err, "gateway throttled")
	}
	metrics.GatewayThrottleWait.Observe(time.Since(start).Seconds())
	return nil
}

func (t *Throttled) ListLibraries(ctx context.Context, p ListParams) ([]models.LibraryNode, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.ListLibraries(ctx, p)
}

func (t *Throttled) ListSets(ctx context.Context, libraryID string, p ListParams) ([]models.SetNode, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.ListSets(ctx, libraryID, p)
}

func (t *Throttled) ListCards(ctx context.Context, setID string, p ListParams) ([]models.CardNode, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.ListCards(ctx, setID, p)
}

func (t *Throttled) ListStockVariants(ctx context.Context, cardID string, activeOnly bool) ([]models.StockItem, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.ListStockVariants(ctx, cardID, activeOnly)
}

func (t *Throttled) SearchCardsByName(ctx context.Context, query string, p ListParams) ([]models.CardNode, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.SearchCardsByName(ctx, query, p)
}

func (t *Throttled) ListInventoryLeaves(ctx context.Context, filter models.StockFilter) ([]models.InventoryLeaf, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.ListInventoryLeaves(ctx, filter)
}

func (t *Throttled) Summary(ctx context.Context) (*models.InventorySummary, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.Summary(ctx)
}

func (t *Throttled) GetStock(ctx context.Context, stockID uint) (*models.StockItem, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.GetStock(ctx, stockID)
}

func (t *Throttled) CreateStock(ctx context.Context, req models.CreateStockRequest) (*models.StockItem, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.CreateStock(ctx, req)
}

func (t *Throttled) UpdateStock(ctx context.Context, stockID uint, patch models.StockPatch) (UpdateResult, error) {
	if err := t.wait(ctx); err != nil {
		return UpdateResult{}, err
	}
	return t.next.UpdateStock(ctx, stockID, patch)
}

func (t *Throttled) AddMarketplaceListing(ctx context.Context, stockID uint, marketplace string, price decimal.NullDecimal) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	return t.next.AddMarketplaceListing(ctx, stockID, marketplace, price)
}

func (t *Throttled) RemoveMarketplaceListing(ctx context.Context, stockID uint, marketplace string) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	return t.next.RemoveMarketplaceListing(ctx, stockID, marketplace)
}

func (t *Throttled) CreateSaleTransaction(ctx context.Context, req models.CreateSaleRequest) (*models.SaleTransaction, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.CreateSaleTransaction(ctx, req)
}
