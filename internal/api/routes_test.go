package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-inventory/backend/internal/browser"
	"github.com/codyseavey/tcg-inventory/backend/internal/config"
	"github.com/codyseavey/tcg-inventory/backend/internal/database"
	"github.com/codyseavey/tcg-inventory/backend/internal/gateway"
	"github.com/codyseavey/tcg-inventory/backend/internal/models"
	"github.com/codyseavey/tcg-inventory/backend/internal/preferences"
	"github.com/codyseavey/tcg-inventory/backend/internal/querycache"
	"github.com/codyseavey/tcg-inventory/backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DBConfig{
		Driver: config.DriverSQLite,
		Path:   fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	require.NoError(t, db.Create(&models.Library{ID: "mtg", Name: "Magic"}).Error)
	require.NoError(t, db.Create(&models.CardSet{ID: "lea", LibraryID: "mtg", Name: "Alpha"}).Error)
	require.NoError(t, db.Create(&[]models.Card{
		{ID: "lea-1", SetID: "lea", Name: "Black Lotus", Rarity: "Rare", PriceUSD: decimal.RequireFromString("100")},
		{ID: "lea-2", SetID: "lea", Name: "Llanowar Elves", Rarity: "Common", PriceUSD: decimal.RequireFromString("2")},
	}).Error)
	require.NoError(t, db.Create(&[]models.StockItem{
		{CardID: "lea-1", Quantity: 1, Condition: models.ConditionNearMint, Language: models.LanguageEnglish, Active: true,
			Marketplaces: []models.MarketplaceListing{{Marketplace: "tcgplayer", Price: decimal.NewNullDecimal(decimal.RequireFromString("50"))}}},
		{CardID: "lea-2", Quantity: 5, Condition: models.ConditionNearMint, Language: models.LanguageEnglish, Active: true},
	}).Error)

	cache, err := querycache.New(querycache.Options{Size: 128})
	require.NoError(t, err)
	t.Cleanup(cache.Wait)

	gw := gateway.NewGormGateway(db)
	prefs := preferences.NewService(preferences.NewGormStore(db))
	paging := config.PagingConfig{LibraryBatchSize: 10, SetBatchSize: 44, CardBatchSize: 1, SearchBatchSize: 20}

	return SetupRouter(Deps{
		Browser:  browser.New(context.Background(), gw, cache, prefs, paging),
		Summary:  services.NewSummaryService(gw, cache),
		Snapshot: services.NewSnapshotService(db, gw, 23, time.Hour),
		Alerts:   services.NewPriceAlertService(db, cache),
	})
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inv_http_requests_total")
}

func TestTreePaging(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/libraries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "libraries", body["key"])
	assert.Len(t, body["items"], 1)

	w = do(t, r, http.MethodGet, "/api/sets/lea/cards?library=mtg", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Len(t, body["items"], 1)
	assert.Equal(t, true, body["has_more"])

	w = do(t, r, http.MethodPost, "/api/sets/lea/cards/more", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Len(t, body["items"], 2)

	w = do(t, r, http.MethodPost, "/api/libraries/nope/sets/more", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["code"])
}

func TestCollapseAndViewport(t *testing.T) {
	r := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/sets/lea/cards", nil).Code)

	w := do(t, r, http.MethodPost, "/api/nodes/set:lea/viewport", map[string]any{"visible": true})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["fired"])
	assert.EqualValues(t, 2, body["item_count"])

	w = do(t, r, http.MethodPost, "/api/nodes/set:lea/viewport", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodDelete, "/api/nodes/set:lea", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["collapsed"])

	w = do(t, r, http.MethodDelete, "/api/nodes/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchValidation(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/search?q=", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])

	w = do(t, r, http.MethodGet, "/api/search?q=lotus", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)
}

func TestDraftLifecycle(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/stock/1/draft", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["token"])

	w = do(t, r, http.MethodPatch, "/api/stock/1/draft", map[string]string{"quantity": "3", "location": "Binder"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["has_changes"])

	w = do(t, r, http.MethodPatch, "/api/stock/1/draft", map[string]string{"quantity": "many"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/stock/1/draft/events", map[string]any{"type": "RequestAddMarketplace", "marketplace": "eBay"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/api/stock/1/draft/commit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	toAdd := body["changes"].(map[string]any)["to_add"].([]any)
	require.Len(t, toAdd, 1)
	assert.Equal(t, "ebay", toAdd[0].(map[string]any)["marketplace"])

	w = do(t, r, http.MethodGet, "/api/stock/1/draft", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "committed draft is closed")

	w = do(t, r, http.MethodGet, "/api/cards/lea-1/stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["items"].([]any)
	require.Len(t, items, 1)
	stock := items[0].(map[string]any)
	assert.EqualValues(t, 3, stock["quantity"])
	assert.Equal(t, "Binder", stock["location"])
}

func TestDraftValidationFailure(t *testing.T) {
	r := setupRouter(t)

	require.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/stock/2/draft", nil).Code)
	require.Equal(t, http.StatusOK, do(t, r, http.MethodPatch, "/api/stock/2/draft", map[string]string{"quantity": "0"}).Code)

	w := do(t, r, http.MethodPost, "/api/stock/2/draft/commit", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	details := decode(t, w)["details"].(map[string]any)
	assert.Contains(t, details, "quantity")

	w = do(t, r, http.MethodDelete, "/api/stock/2/draft", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["cancelled"])

	w = do(t, r, http.MethodPost, "/api/stock/abc/draft", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreferencesAndGrouped(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "all", decode(t, w)["stock_filter"])

	w = do(t, r, http.MethodPut, "/api/preferences", map[string]string{"stock_filter": "in-stock", "group_by": "rarity,game"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "in-stock", body["stock_filter"])
	assert.Equal(t, []any{"game", "rarity"}, body["group_by"])

	w = do(t, r, http.MethodPut, "/api/preferences", map[string]string{"group_by": "colour"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/inventory/grouped?sort=name", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode(t, w)["groups"].([]any)
	require.Len(t, groups, 1)
	game := groups[0].(map[string]any)
	assert.Equal(t, "Magic", game["value"])
	assert.Len(t, game["children"], 2)
}

func TestTransactionsAndSummary(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 6, decode(t, w)["stock_count"])

	w = do(t, r, http.MethodPost, "/api/transactions", map[string]any{
		"source": "in-person",
		"items":  []map[string]any{{"stock_id": 2, "quantity": 2, "unit_price": "1.50"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "3", decode(t, w)["subtotal"])

	w = do(t, r, http.MethodGet, "/api/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, decode(t, w)["stock_count"])

	w = do(t, r, http.MethodPost, "/api/transactions", map[string]any{"source": "in-person"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/summary/history?period=week", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "week", decode(t, w)["period"])
}

func TestPriceAlerts(t *testing.T) {
	r := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/price-alerts?threshold=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	alerts := decode(t, w)["alerts"].([]any)
	require.Len(t, alerts, 1)
	assert.Equal(t, "underpriced", alerts[0].(map[string]any)["kind"])

	w = do(t, r, http.MethodGet, "/api/price-alerts?threshold=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
