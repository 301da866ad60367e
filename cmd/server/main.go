package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/codyseavey/tcg-inventory/backend/internal/api"
	"github.com/codyseavey/tcg-inventory/backend/internal/browser"
	"github.com/codyseavey/tcg-inventory/backend/internal/config"
	"github.com/codyseavey/tcg-inventory/backend/internal/database"
	"github.com/codyseavey/tcg-inventory/backend/internal/gateway"
	"github.com/codyseavey/tcg-inventory/backend/internal/logging"
	"github.com/codyseavey/tcg-inventory/backend/internal/preferences"
	"github.com/codyseavey/tcg-inventory/backend/internal/querycache"
	"github.com/codyseavey/tcg-inventory/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("info", "json")
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := database.Initialize(cfg.DB, cfg.IsDev()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	db := database.GetDB()

	gw := gateway.NewThrottled(gateway.NewGormGateway(db), cfg.Gateway.RPS, cfg.Gateway.Burst)

	cache, err := querycache.New(querycache.Options{
		Size:       cfg.Cache.Size,
		StaleTimes: querycache.DefaultStaleTimes(cfg.Cache.SearchStaleTime, cfg.Cache.PriceAlertStaleTime),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create query cache")
	}

	// Preferences go to redis when configured so instances share them.
	var store preferences.Store = preferences.NewGormStore(db)
	if cfg.Redis.URL != "" {
		redisStore, client, err := preferences.Connect(ctx, cfg.Redis.URL, cfg.Redis.KeyPrefix)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, keeping preferences in the database")
		} else {
			defer client.Close()
			store = redisStore
			log.Info().Msg("Preferences stored in redis")
		}
	}
	prefs := preferences.NewService(store)

	b := browser.New(ctx, gw, cache, prefs, cfg.Paging)
	summaryService := services.NewSummaryService(gw, cache)
	alertService := services.NewPriceAlertService(db, cache)

	// Snapshots read totals straight from the gateway so they never record a
	// stale cached summary.
	snapshotService := services.NewSnapshotService(db, gw, cfg.Snapshot.Hour, cfg.Snapshot.CheckInterval)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("PANIC in snapshot service")
			}
		}()
		snapshotService.Start(ctx)
	}()

	router := api.SetupRouter(api.Deps{
		Browser:            b,
		Summary:            summaryService,
		Snapshot:           snapshotService,
		Alerts:             alertService,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		FrontendDistPath:   cfg.FrontendDistPath,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	cache.Wait()

	log.Info().Msg("Server exited")
}
