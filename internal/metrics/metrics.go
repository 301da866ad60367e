// Package metrics provides Prometheus metrics for the inventory service.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inv_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inv_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Gateway Metrics
	GatewayThrottleWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inv_gateway_throttle_wait_seconds",
			Help:    "Time spent waiting for the gateway rate limiter",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// Query Cache Metrics
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inv_cache_lookups_total",
			Help: "Query cache lookups by entity kind and outcome",
		},
		[]string{"kind", "result"}, // result: "hit", "stale", "miss"
	)

	CacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inv_cache_invalidations_total",
			Help: "Mutation-triggered cache invalidations",
		},
		[]string{"mutation"},
	)

	CacheEntriesInvalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inv_cache_entries_invalidated_total",
			Help: "Cache entries marked stale by invalidation",
		},
	)

	CacheBackgroundRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inv_cache_background_refreshes_total",
			Help: "Background refetches of stale cache entries",
		},
		[]string{"result"}, // "ok", "error"
	)

	// Pagination Metrics
	LoaderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inv_loader_fetches_total",
			Help: "Page fetches by tree level and outcome",
		},
		[]string{"level", "result"}, // result: "ok", "error", "discarded"
	)

	LoaderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inv_loader_fetch_duration_seconds",
			Help:    "Time taken to fetch one page of tree children",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"level"},
	)

	LoaderSkippedLoadMore = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inv_loader_skipped_load_more_total",
			Help: "loadMore calls ignored because a page was in flight or the node was exhausted",
		},
		[]string{"reason"}, // "loading", "exhausted", "collapsed"
	)

	ViewportFiresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inv_viewport_fires_total",
			Help: "Load-more requests triggered by a sentinel entering the viewport",
		},
	)

	// Edit Metrics
	DraftCommitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inv_draft_commits_total",
			Help: "Draft commits by outcome",
		},
		[]string{"result"}, // "ok", "noop", "validation", "failed", "partial"
	)

	MarketplaceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inv_marketplace_calls_total",
			Help: "Marketplace listing mutations by operation and outcome",
		},
		[]string{"op", "result"}, // op: "add", "remove"
	)

	// Inventory Metrics
	InventoryStockTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inv_stock_total",
			Help: "Total number of cards in stock",
		},
	)

	InventoryValueUSD = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inv_stock_value_usd",
			Help: "Total estimated value of stock in USD",
		},
	)

	InventoryStockByLibrary = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inv_stock_by_library",
			Help: "Number of cards in stock by library",
		},
		[]string{"library"},
	)

	InventoryValueByLibrary = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inv_stock_value_by_library_usd",
			Help: "Stock value in USD by library",
		},
		[]string{"library"},
	)
)
