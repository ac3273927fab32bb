package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/bid"
	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/dispatch"
	"github.com/clearfunnel/attribution-engine/internal/domain"
	"github.com/clearfunnel/attribution-engine/internal/export"
	"github.com/clearfunnel/attribution-engine/internal/handler"
	"github.com/clearfunnel/attribution-engine/internal/logger"
	"github.com/clearfunnel/attribution-engine/internal/metrics"
	"github.com/clearfunnel/attribution-engine/internal/oracle"
	"github.com/clearfunnel/attribution-engine/internal/pipeline"
	"github.com/clearfunnel/attribution-engine/internal/queue/sqs"
	"github.com/clearfunnel/attribution-engine/internal/service"
	"github.com/clearfunnel/attribution-engine/internal/sink"
	"github.com/clearfunnel/attribution-engine/internal/store/clickhouse"
	"github.com/clearfunnel/attribution-engine/internal/trust"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		if err := log.Sync(); err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Warehouse connection backing the bigquery sink and the export batcher.
	chClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func() {
		if err := chClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}()

	store := clickhouse.NewStore(chClient, log)
	if err := store.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize warehouse schema", zap.Error(err))
	}

	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	scoringOracle := oracle.NewClient(cfg.Oracle, log)
	trustEval := trust.NewEvaluator(cfg.Trust, log)
	bidEngine := bid.NewEngine(cfg.Bid)

	health := dispatch.NewHealthTracker(cfg.Dispatch, cfg.Metrics.RetentionHours)
	sinks := []sink.PlatformSink{
		sink.NewHTTPSink(domain.PlatformMeta, cfg.Dispatch.MetaEndpoint, log),
		sink.NewHTTPSink(domain.PlatformTikTok, cfg.Dispatch.TikTokEndpoint, log),
		sink.NewHTTPSink(domain.PlatformGoogle, cfg.Dispatch.GoogleEndpoint, log),
		sink.NewWarehouseSink(store, log),
	}
	dispatcher := dispatch.NewDispatcher(sinks, health, cfg.Dispatch, log)

	aggregator := metrics.NewAggregator(cfg.Metrics, log)
	history := pipeline.NewHistoryTracker(time.Duration(cfg.Trust.RateLimitWindowSec) * time.Second)
	defer history.Stop()

	exporter := export.NewBatcher(store, export.Config{
		MaxBatchSize: cfg.Export.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.Export.BatchTimeoutSec) * time.Second,
	}, log)
	go exporter.Start(ctx)

	eventPipeline, err := pipeline.New(scoringOracle, trustEval, bidEngine, dispatcher, aggregator, history, exporter, cfg.Dispatch, log)
	if err != nil {
		log.Fatal("Failed to create event pipeline", zap.Error(err))
	}

	ingestService := service.NewIngestService(eventPipeline, sqsClient, log)
	queryService := service.NewQueryService(aggregator, health, log)

	h := handler.NewHandler(ingestService, queryService, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	server := &http.Server{Addr: addr, Handler: h}

	go func() {
		log.Info("API server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down API service gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down server", zap.Error(err))
	}
	cancel()
}
