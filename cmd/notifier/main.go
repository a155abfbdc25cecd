// Command notifier consumes notification events from Kafka and delivers
// them as emails.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bookstore-backend/internal/config"
	"bookstore-backend/internal/events"
	applog "bookstore-backend/internal/logger"
	"bookstore-backend/internal/metrics"
	"bookstore-backend/internal/notify"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := applog.New(cfg.App.Env, cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	if !cfg.KafkaEnabled() {
		logger.Fatal("KAFKA_BROKERS is not set, nothing to consume")
	}

	notifier, err := notify.FromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("building notifier failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.Addr(), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, notifier, logger)
	logger.Info("notifier consuming",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID))

	if err := consumer.Run(ctx); err != nil {
		logger.Error("consumer stopped", zap.Error(err))
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(sctx)
	if err := consumer.Close(); err != nil {
		logger.Warn("closing kafka reader failed", zap.Error(err))
	}
	logger.Info("notifier stopped")
}
