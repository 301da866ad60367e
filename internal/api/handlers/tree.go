package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-inventory/backend/internal/browser"
)

// TreeHandler exposes node expansion, paging and collapse.
type TreeHandler struct {
	browser *browser.Browser
}

func NewTreeHandler(b *browser.Browser) *TreeHandler {
	return &TreeHandler{browser: b}
}

// respondPage writes a node page. When a later page fails the items loaded
// so far still go out, with the failure in the snapshot's error field.
func respondPage[T any](c *gin.Context, page browser.NodePage[T], err error) {
	if err != nil && len(page.Items) == 0 {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *TreeHandler) GetLibraries(c *gin.Context) {
	page, err := h.browser.Libraries(c.Request.Context())
	respondPage(c, page, err)
}

func (h *TreeHandler) MoreLibraries(c *gin.Context) {
	page, err := h.browser.MoreLibraries(c.Request.Context())
	respondPage(c, page, err)
}

func (h *TreeHandler) GetSets(c *gin.Context) {
	page, err := h.browser.ExpandLibrary(c.Request.Context(), c.Param("id"))
	respondPage(c, page, err)
}

func (h *TreeHandler) MoreSets(c *gin.Context) {
	page, err := h.browser.MoreSets(c.Request.Context(), c.Param("id"))
	respondPage(c, page, err)
}

// GetCards expands a set. ?library= ties it to its parent node so collapsing
// the library also forgets the set.
func (h *TreeHandler) GetCards(c *gin.Context) {
	page, err := h.browser.ExpandSet(c.Request.Context(), c.Query("library"), c.Param("id"))
	respondPage(c, page, err)
}

func (h *TreeHandler) MoreCards(c *gin.Context) {
	page, err := h.browser.MoreCards(c.Request.Context(), c.Param("id"))
	respondPage(c, page, err)
}

func (h *TreeHandler) GetStock(c *gin.Context) {
	page, err := h.browser.ExpandCard(c.Request.Context(), c.Query("set"), c.Param("id"))
	respondPage(c, page, err)
}

func (h *TreeHandler) Search(c *gin.Context) {
	page, err := h.browser.Search(c.Request.Context(), c.Query("q"))
	respondPage(c, page, err)
}

func (h *TreeHandler) MoreSearch(c *gin.Context) {
	page, err := h.browser.MoreSearch(c.Request.Context(), c.Query("q"))
	respondPage(c, page, err)
}

func (h *TreeHandler) Collapse(c *gin.Context) {
	key := c.Param("key")
	ok, err := h.browser.Collapse(key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "collapsed": ok})
}

type viewportRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// Viewport reports a sentinel entering or leaving the viewport.
func (h *TreeHandler) Viewport(c *gin.Context) {
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.browser.Observe(c.Request.Context(), c.Param("key"), *req.Visible)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
