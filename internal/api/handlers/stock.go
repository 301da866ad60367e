package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-inventory/backend/internal/browser"
	"github.com/codyseavey/tcg-inventory/backend/internal/draft"
	"github.com/codyseavey/tcg-inventory/backend/internal/errs"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
)

// StockHandler covers stock creation and the draft edit lifecycle.
type StockHandler struct {
	browser *browser.Browser
	drafts  *draft.Engine
}

func NewStockHandler(b *browser.Browser) *StockHandler {
	return &StockHandler{browser: b, drafts: b.Drafts()}
}

func (h *StockHandler) CreateStock(c *gin.Context) {
	var req models.CreateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.browser.CreateStock(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// StartDraft opens an edit session, or returns the one already open.
func (h *StockHandler) StartDraft(c *gin.Context) {
	id, ok := stockIDParam(c)
	if !ok {
		return
	}
	sess, err := h.browser.StartEdit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *StockHandler) GetDraft(c *gin.Context) {
	id, ok := stockIDParam(c)
	if !ok {
		return
	}
	sess, err := h.drafts.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// PatchDraft sets scalar fields on the draft. The body maps field names to
// their text values, e.g. {"quantity": "3", "cost": "4.25"}.
func (h *StockHandler) PatchDraft(c *gin.Context) {
	id, ok := stockIDParam(c)
	if !ok {
		return
	}
	var fields map[string]string
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, err)
		return
	}
	if len(fields) == 0 {
		respondError(c, errs.New(errs.KindValidation, "no fields to update"))
		return
	}

	sess, err := h.drafts.UpdateFields(id, fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// DraftEvent applies a marketplace intent to the draft.
func (h *StockHandler) DraftEvent(c *gin.Context) {
	id, ok := stockIDParam(c)
	if !ok {
		return
	}
	var in draft.Intent
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	sess, err := h.drafts.Dispatch(id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// CommitDraft writes the draft. A partial failure answers 207 with the
// result, so the client sees what was applied next to what was not.
func (h *StockHandler) CommitDraft(c *gin.Context) {
	id, ok := stockIDParam(c)
	if !ok {
		return
	}
	res, err := h.drafts.Commit(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errs.Is(err, errs.KindPartial):
		c.JSON(http.StatusMultiStatus, gin.H{
			"result": res,
			"error":  errs.As(err).Message(),
			"code":   string(errs.KindPartial),
		})
	default:
		respondError(c, err)
	}
}

func (h *StockHandler) CancelDraft(c *gin.Context) {
	id, ok := stockIDParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"stock_id": id, "cancelled": h.drafts.Cancel(id)})
}
