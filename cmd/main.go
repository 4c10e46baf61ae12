package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "institution-chat/docs"
	"institution-chat/internal/api"
	"institution-chat/internal/auth"
	"institution-chat/internal/cache"
	"institution-chat/internal/chat"
	"institution-chat/internal/config"
	"institution-chat/internal/logger"
	"institution-chat/internal/manager"
	"institution-chat/internal/messaging"
	"institution-chat/internal/metrics"
	"institution-chat/internal/notify"
	"institution-chat/internal/pagination"
	"institution-chat/internal/realtime"
	"institution-chat/internal/storage"
	"institution-chat/internal/worker"
)

const relayPrefetch = 32

// @title Institution Chat API
// @version 1.0
// @description Direct messaging between members of an institution with realtime push
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	defer logger.Sync()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env", zap.Error(err))
	}

	// Init Metrics
	metrics.Init()

	// Load Configuration
	configPath := "config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	logger.Info("configuration loaded", zap.String("path", configPath))

	// Setup JWT Secret
	auth.SetSecret(cfg.Auth.JWTSecret)

	// Init PostgreSQL
	db, err := storage.NewStorage(cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to init DB", zap.Error(err))
	}
	defer db.Close()
	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}
	logger.Info("PostgreSQL connected")

	// Init Redis; the inbox works without it
	var latest chat.LatestCache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewLatestReplyCache(cfg.Redis.URL, cfg.Redis.LatestTTL)
		if err != nil {
			logger.Warn("redis unavailable, latest-reply cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			latest = rc
			logger.Info("Redis connected")
		}
	}

	// Init RabbitMQ
	rabbitClient, err := messaging.NewRabbitClient(cfg.RabbitMQ.URL, logger.Log)
	if err != nil {
		logger.Fatal("failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitClient.Close()
	logger.Info("RabbitMQ connected")

	// Push delivery: notifier -> exchange -> relay -> websocket
	pool := worker.NewWorkerPool("notify", cfg.Workers, cfg.Messaging.NotifyQueue, logger.Log)
	pool.Start()
	notifier := notify.NewAsyncNotifier(pool, rabbitClient, cfg.RabbitMQ.Exchange, cfg.Messaging.NotifyTimeout, logger.Log)

	hub := realtime.NewHub()
	relay := manager.NewRelayManager(rabbitClient, hub, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RelayQueue, relayPrefetch, logger.Log)
	if err := relay.Start(); err != nil {
		logger.Fatal("failed to start relay", zap.Error(err))
	}

	// Graceful Shutdown Setup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start background loop for updating queue depth metrics
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rabbitClient.UpdateQueueDepth(relay.QueueName())
			}
		}
	}()

	svc := chat.NewService(chat.Deps{
		Conversations: db,
		Replies:       db,
		Users:         db,
		Cache:         latest,
		Notifier:      notifier,
		Log:           logger.Log,
	}, chat.Options{
		MaxBodyLength:       cfg.Messaging.MaxBodyLength,
		SameInstitutionOnly: cfg.Messaging.SameInstitutionOnly,
		Limits: pagination.Limits{
			Default: cfg.Messaging.DefaultPerPage,
			Min:     cfg.Messaging.MinPerPage,
			Max:     cfg.Messaging.MaxPerPage,
		},
	})

	// Init API
	apiHandler := api.NewAPI(svc, hub, db, cfg.Server.ReadTimeout, logger.Log)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting API server", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done() // Wait for interrupt signal
	logger.Info("shutdown initiated")

	// Shutdown sequence
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	// Flush queued pushes, then stop relaying
	pool.Stop(shutdownCtx)
	relay.Shutdown()
	hub.Close()

	logger.Info("graceful shutdown complete")
}
