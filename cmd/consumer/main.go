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
	"github.com/clearfunnel/attribution-engine/internal/consumer"
	"github.com/clearfunnel/attribution-engine/internal/dispatch"
	"github.com/clearfunnel/attribution-engine/internal/domain"
	"github.com/clearfunnel/attribution-engine/internal/export"
	"github.com/clearfunnel/attribution-engine/internal/logger"
	"github.com/clearfunnel/attribution-engine/internal/metrics"
	"github.com/clearfunnel/attribution-engine/internal/oracle"
	"github.com/clearfunnel/attribution-engine/internal/pipeline"
	"github.com/clearfunnel/attribution-engine/internal/queue/sqs"
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

	log.Info("Starting consumer service",
		zap.String("environment", cfg.Service.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	c := consumer.NewConsumer(sqsClient, eventPipeline, log)
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := c.Start(ctx); err != nil {
			log.Error("Consumer stopped with error", zap.Error(err))
		}
	}()

	healthServer := startHealthServer(cfg.Service.HealthCheckPort, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down consumer service gracefully")
	cancel()
	<-consumerDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down health server", zap.Error(err))
	}
}

func startHealthServer(port string, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("Failed to write health response", zap.Error(err))
		}
	})

	server := &http.Server{Addr: fmt.Sprintf(":%s", port), Handler: mux}
	go func() {
		log.Info("Health check server starting", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start health check server", zap.Error(err))
		}
	}()
	return server
}
