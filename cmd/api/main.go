package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"agora/api/internal/app"
	"agora/api/internal/config"
	"agora/api/internal/events"
	"agora/api/internal/logging"
	"agora/api/internal/metrics"
	"agora/api/internal/search"
	"agora/api/internal/session"
	"agora/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is configured from cfg, so this one goes to a default logger.
		zap.NewExample().Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("logger setup failed", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolOptions{MaxOpenConns: cfg.DBMaxConns})
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	applied, err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir, logger)
	if err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}
	logger.Info("migrations up to date", zap.Int("applied", len(applied)))

	dataStore := store.NewPostgresStore(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts, logger)

	opts := app.Options{
		Search:  searchService,
		Metrics: metrics.New(),
		Logger:  logger,
	}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		logger.Info("using redis for token revocation")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisStore.Close()
		opts.Revoker = redisStore
	} else {
		logger.Info("using postgres for token revocation")
	}

	if strings.TrimSpace(cfg.AMQPURL) != "" {
		publisher, err := events.NewRabbit(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal("amqp connection failed", zap.Error(err))
		}
		defer publisher.Close()
		opts.Events = publisher
		logger.Info("publishing events", zap.String("exchange", cfg.AMQPExchange))
	}

	service := app.New(cfg, dataStore, opts)
	if err := service.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap error (will retry on next restart)", zap.Error(err))
	}
	go searchService.ReindexAllFromPG(ctx)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("agora api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
