package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/tcg-inventory/backend/internal/api/handlers"
	"github.com/codyseavey/tcg-inventory/backend/internal/browser"
	"github.com/codyseavey/tcg-inventory/backend/internal/services"
)

// Deps is what the router needs from the rest of the service.
type Deps struct {
	Browser  *browser.Browser
	Summary  *services.SummaryService
	Snapshot *services.SnapshotService
	Alerts   *services.PriceAlertService

	CORSAllowedOrigins []string
	FrontendDistPath   string
}

func SetupRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), requestMetrics())

	serveFrontend := deps.FrontendDistPath != "" && dirExists(deps.FrontendDistPath)

	config := cors.DefaultConfig()
	config.AllowOrigins = deps.CORSAllowedOrigins
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	config.ExposeHeaders = []string{requestIDHeader}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	treeHandler := handlers.NewTreeHandler(deps.Browser)
	stockHandler := handlers.NewStockHandler(deps.Browser)
	inventoryHandler := handlers.NewInventoryHandler(deps.Browser, deps.Summary, deps.Snapshot, deps.Alerts)

	api := router.Group("/api")
	{
		// Tree routes
		api.GET("/libraries", treeHandler.GetLibraries)
		api.POST("/libraries/more", treeHandler.MoreLibraries)
		api.GET("/libraries/:id/sets", treeHandler.GetSets)
		api.POST("/libraries/:id/sets/more", treeHandler.MoreSets)
		api.GET("/sets/:id/cards", treeHandler.GetCards)
		api.POST("/sets/:id/cards/more", treeHandler.MoreCards)
		api.GET("/cards/:id/stock", treeHandler.GetStock)
		api.GET("/search", treeHandler.Search)
		api.POST("/search/more", treeHandler.MoreSearch)

		nodes := api.Group("/nodes")
		{
			nodes.DELETE("/:key", treeHandler.Collapse)
			nodes.POST("/:key/viewport", treeHandler.Viewport)
		}

		// Stock and draft routes
		stock := api.Group("/stock")
		{
			stock.POST("", stockHandler.CreateStock)
			stock.POST("/:id/draft", stockHandler.StartDraft)
			stock.GET("/:id/draft", stockHandler.GetDraft)
			stock.PATCH("/:id/draft", stockHandler.PatchDraft)
			stock.POST("/:id/draft/events", stockHandler.DraftEvent)
			stock.POST("/:id/draft/commit", stockHandler.CommitDraft)
			stock.DELETE("/:id/draft", stockHandler.CancelDraft)
		}

		api.GET("/inventory/grouped", inventoryHandler.GetGrouped)
		api.GET("/preferences", inventoryHandler.GetPreferences)
		api.PUT("/preferences", inventoryHandler.PutPreferences)
		api.POST("/transactions", inventoryHandler.CreateTransaction)
		api.GET("/summary", inventoryHandler.GetSummary)
		api.GET("/summary/history", inventoryHandler.GetValueHistory)
		api.GET("/price-alerts", inventoryHandler.GetPriceAlerts)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if serveFrontend {
		indexPath := filepath.Join(deps.FrontendDistPath, "index.html")
		router.Static("/assets", filepath.Join(deps.FrontendDistPath, "assets"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
