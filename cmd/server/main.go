package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wareflow/parcel-engine/internal/api"
	"github.com/wareflow/parcel-engine/internal/core/service"
	"github.com/wareflow/parcel-engine/internal/infrastructure/billing"
	mongodb "github.com/wareflow/parcel-engine/internal/infrastructure/db/mongo"
	redisdb "github.com/wareflow/parcel-engine/internal/infrastructure/db/redis"
	"github.com/wareflow/parcel-engine/internal/infrastructure/monitor"
	"github.com/wareflow/parcel-engine/internal/infrastructure/notify"
	"github.com/wareflow/parcel-engine/internal/infrastructure/queue"
	"github.com/wareflow/parcel-engine/internal/pkg/config"
	"github.com/wareflow/parcel-engine/pkg/logger"
)

// @title Parcel Engine API
// @version 1.0
// @description Custody lifecycle engine for warehouse parcels.
// @BasePath /v1
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect failed")
		}
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	parcelRepo := mongodb.NewParcelRepository(db)
	tripRepo := mongodb.NewTripRepository(db)
	if err := parcelRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("parcel index creation failed")
	}
	if err := tripRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("trip index creation failed")
	}

	// --- External collaborators ---
	invoices := billing.NewClient(cfg.Billing.BaseURL, cfg.Engine.InvoiceTimeout)
	notifier := notify.NewClient(cfg.Notify.WebhookURL, cfg.Engine.NotifyTimeout)

	dedup := redisdb.NewNotifyDedup(rdb)
	dispatcher := queue.NewDispatcher(cfg.Engine.NotifyWorkers, notifier, dedup, cfg.Engine.NotifyTimeout, log)
	dispatcher.Start(ctx)

	// --- Services ---
	weights := service.NewWeightCalculator(cfg.Engine.VolumetricDivisor, cfg.Engine.IntakeBatchCeiling)
	evaluator := service.NewCollectionEvaluator(invoices, cfg.Engine.InvoiceTimeout, log)
	engine := service.NewLifecycleEngine(parcelRepo, evaluator, dispatcher, log)

	barcodeCache := redisdb.NewBarcodeCache(rdb)

	svcs := api.Services{
		Parcels:   service.NewParcelService(parcelRepo, invoices, weights, log),
		Lifecycle: engine,
		Scans:     service.NewScanResolver(parcelRepo, barcodeCache, engine, log),
		Bulk:      service.NewBulkCoordinator(parcelRepo, engine, cfg.Engine.BulkWorkers, log),
		Trips:     service.NewTripService(tripRepo, parcelRepo, engine, log),
	}

	gauge := monitor.NewStatusGauge(parcelRepo, cfg.Engine.StatusGaugeInterval, log)
	go gauge.Run(ctx)

	// --- HTTP server ---
	e := api.NewRouter(svcs, db, rdb, cfg.JWTSecret, log)

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
