package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bookstore-backend/internal/api"
	"bookstore-backend/internal/assistant"
	"bookstore-backend/internal/auth"
	"bookstore-backend/internal/cache"
	"bookstore-backend/internal/config"
	"bookstore-backend/internal/database"
	"bookstore-backend/internal/events"
	applog "bookstore-backend/internal/logger"
	"bookstore-backend/internal/media"
	"bookstore-backend/internal/metrics"
	"bookstore-backend/internal/notify"
	"bookstore-backend/internal/repository"
	"bookstore-backend/internal/resilience"
	"bookstore-backend/internal/seed"
	"bookstore-backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const dispatchTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := applog.New(cfg.App.Env, cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bookstore exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	db, client, err := database.ConnectMongo(cfg.Mongo.URI, cfg.Mongo.Database, cfg.MongoTimeout, sugar)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()

	rdb, err := database.ConnectRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, sugar)
	if err != nil {
		return err
	}
	var kv cache.Cache
	if rdb != nil {
		kv = cache.NewRedis(rdb, "bookstore:")
		defer rdb.Close()
	} else {
		mem := cache.NewMemory()
		defer mem.StartSweeper(time.Minute)()
		kv = mem
	}

	store, err := repository.NewMongoStore(ctx, db)
	if err != nil {
		return err
	}
	if err := seed.Books(ctx, store.Books, logger); err != nil {
		logger.Error("seeding books failed", zap.Error(err))
	}

	metrics.Init()

	var pub events.Publisher
	if cfg.KafkaEnabled() {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		logger.Info("notifications go to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		notifier, err := notify.FromConfig(cfg, logger)
		if err != nil {
			return err
		}
		pub = events.NewInlineDispatcher(notifier, dispatchTimeout, logger)
		logger.Info("notifications delivered in process")
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("closing publisher failed", zap.Error(err))
		}
	}()

	var gen assistant.Generator
	if cfg.Gemini.APIKey != "" {
		breaker := resilience.NewBreaker("gemini", cfg.Breaker.MaxFailures, cfg.BreakerTimeout, logger, metrics.ObserveBreaker)
		g, err := assistant.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.MaxOutputTokens, cfg.GeminiTimeout, breaker)
		if err != nil {
			return err
		}
		gen = g
	} else {
		logger.Warn("GEMINI api key not set, chat assistant disabled")
	}

	var covers media.ObjectStore
	if cfg.S3.Bucket != "" {
		s3, err := media.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket, cfg.S3.Endpoint, cfg.S3.PublicBaseURL)
		if err != nil {
			return err
		}
		covers = s3
	} else {
		logger.Warn("S3 bucket not set, cover uploads disabled")
	}

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.TokenTTL)
	svc := service.New(service.Deps{
		Store:         store,
		Tokens:        tokens,
		Cache:         kv,
		Publisher:     pub,
		Generator:     gen,
		Covers:        covers,
		PopularTTL:    cfg.PopularTTL,
		ChatPerMinute: cfg.RateLimit.ChatMessagesPerMinute,
		Log:           logger,
	})

	limiter := api.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, logger)
	defer limiter.Stop()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(api.Options{
		Services:     svc,
		Tokens:       tokens,
		Log:          logger,
		CORSOrigins:  cfg.App.CORSOrigins,
		CookieSecure: cfg.JWT.CookieSecure,
		Limiter:      limiter,
		Health: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("bookstore listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
