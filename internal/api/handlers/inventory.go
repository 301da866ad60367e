package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/codyseavey/tcg-inventory/backend/internal/browser"
	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/grouping"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
	"github.com/codyseavey/tcg-inventory/backend/internal/services"
)

const defaultAlertThreshold = 20

// InventoryHandler serves the grouped view, preferences, sales and totals.
type InventoryHandler struct {
	browser  *browser.Browser
	summary  *services.SummaryService
	snapshot *services.SnapshotService
	alerts   *services.PriceAlertService
}

func NewInventoryHandler(b *browser.Browser, summary *services.SummaryService, snapshot *services.SnapshotService, alerts *services.PriceAlertService) *InventoryHandler {
	return &InventoryHandler{browser: b, summary: summary, snapshot: snapshot, alerts: alerts}
}

type groupedResponse struct {
	GroupBy []grouping.Field   `json:"group_by"`
	Filter  models.StockFilter `json:"filter"`
	Groups  []*grouping.Node   `json:"groups"`
}

// GetGrouped folds the inventory by the saved grouping. ?sort=name orders
// groups and leaves alphabetically.
func (h *InventoryHandler) GetGrouped(c *gin.Context) {
	groups, err := h.browser.Grouped(c.Request.Context(), c.Query("sort") == "name")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groupedResponse{
		GroupBy: h.browser.GroupBy(),
		Filter:  h.browser.Filter(),
		Groups:  groups,
	})
}

func (h *InventoryHandler) GetPreferences(c *gin.Context) {
	c.JSON(http.StatusOK, h.browser.Preferences())
}

type preferencesRequest struct {
	StockFilter *string `json:"stock_filter"`
	GroupBy     *string `json:"group_by"`
	ToggleField *string `json:"toggle_field"`
}

// PutPreferences changes the stock filter and grouping. The new values take
// effect even when saving them fails; the save error is still reported.
func (h *InventoryHandler) PutPreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()

	if req.StockFilter != nil {
		f, err := models.ParseStockFilter(*req.StockFilter)
		if err != nil {
			badRequest(c, err)
			return
		}
		if err := h.browser.SetStockFilter(ctx, f); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.GroupBy != nil {
		fields, err := grouping.ParseFields(*req.GroupBy)
		if err != nil {
			badRequest(c, err)
			return
		}
		if _, err := h.browser.SetGrouping(ctx, fields); err != nil {
			respondError(c, err)
			return
		}
	}
	if req.ToggleField != nil {
		if _, err := h.browser.ToggleGroupField(ctx, grouping.Field(*req.ToggleField)); err != nil {
			respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, h.browser.Preferences())
}

func (h *InventoryHandler) CreateTransaction(c *gin.Context) {
	var req models.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	trx, err := h.browser.CreateSale(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, trx)
}

func (h *InventoryHandler) GetSummary(c *gin.Context) {
	summary, err := h.summary.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetValueHistory returns value snapshots for charting
func (h *InventoryHandler) GetValueHistory(c *gin.Context) {
	if h.snapshot == nil {
		respondError(c, errs.New(errs.KindTransient, "snapshot service not available"))
		return
	}

	period := c.DefaultQuery("period", "month")
	snapshots, err := h.snapshot.GetHistory(c.Request.Context(), period)
	if err != nil {
		respondError(c, errs.Transient(err, "load value history"))
		return
	}

	c.JSON(http.StatusOK, models.ValueHistoryResponse{
		Snapshots: snapshots,
		Period:    period,
	})
}

// GetPriceAlerts lists listings priced more than ?threshold= percent away
// from market.
func (h *InventoryHandler) GetPriceAlerts(c *gin.Context) {
	threshold := decimal.NewFromInt(defaultAlertThreshold)
	if raw := c.Query("threshold"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			badRequest(c, err)
			return
		}
		threshold = d
	}
	alerts, err := h.alerts.Alerts(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": threshold, "alerts": alerts})
}
