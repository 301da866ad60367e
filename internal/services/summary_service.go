package services

import (
	"context"

	"github.com/codyseavey/tcg-inventory/backend/internal/gateway"
	"github.com/codyseavey/tcg-inventory/backend/internal/metrics"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
	"github.com/codyseavey/tcg-inventory/backend/internal/querycache"
)

// SummaryService serves inventory totals through the query cache. Every
// stock mutation invalidates the summary key, so totals track edits.
type SummaryService struct {
	gw    gateway.Gateway
	cache *querycache.Cache
}

func NewSummaryService(gw gateway.Gateway, cache *querycache.Cache) *SummaryService {
	return &SummaryService{gw: gw, cache: cache}
}

var summaryKey = querycache.NewKey(querycache.KindSummary, "")

// Summary returns the current totals and refreshes the inventory gauges.
func (s *SummaryService) Summary(ctx context.Context) (*models.InventorySummary, error) {
	summary, err := querycache.Get[*models.InventorySummary](ctx, s.cache, summaryKey, s.gw.Summary)
	if err != nil {
		return nil, err
	}
	recordSummaryMetrics(summary)
	return summary, nil
}

func recordSummaryMetrics(summary *models.InventorySummary) {
	metrics.InventoryStockTotal.Set(float64(summary.StockCount))
	metrics.InventoryValueUSD.Set(summary.TotalValue.InexactFloat64())
	for _, lib := range summary.Libraries {
		metrics.InventoryStockByLibrary.WithLabelValues(lib.LibraryID).Set(float64(lib.StockCount))
		metrics.InventoryValueByLibrary.WithLabelValues(lib.LibraryID).Set(lib.TotalValue.InexactFloat64())
	}
}
