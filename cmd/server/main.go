// File: cmd/server/main.go
package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/iyunix/go-juri/internal/config"
	"github.com/iyunix/go-juri/internal/handlers"
	"github.com/iyunix/go-juri/internal/idgen"
	"github.com/iyunix/go-juri/internal/ratelimit"
	"github.com/iyunix/go-juri/internal/repository/conversation"
	"github.com/iyunix/go-juri/internal/repository/kv"
	"github.com/iyunix/go-juri/internal/services"
	"github.com/iyunix/go-juri/internal/services/chat"
	"github.com/iyunix/go-juri/internal/services/completion"
	"github.com/iyunix/go-juri/internal/services/render"
	"github.com/iyunix/go-juri/internal/services/store"
)

func main() {
	cfg := config.Load()

	logger := services.NewProductionLogger(os.Stdout, "juri", services.ParseLogLevel(cfg.LogLevel), cfg.IsProduction())

	if err := idgen.Init(cfg.NodeID); err != nil {
		log.Fatalf("Invalid NODE_ID: %v", err)
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}
	if err := db.AutoMigrate(&kv.Entry{}, &conversation.ConversationRecord{}, &conversation.MessageRecord{}); err != nil {
		log.Fatalf("DB Migration Error: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("DB Error: %v", err)
	}

	// --- Repositories ---
	kvRepo := kv.NewKVRepository(db)
	conversationRepo := conversation.NewConversationRepository(db)

	// --- Services ---
	chatStore := newStore(cfg, kvRepo, logger)

	completionCfg := completion.DefaultConfig()
	completionCfg.Backend = cfg.CompletionBackend
	completionCfg.QueryURL = cfg.QueryWebhookURL
	completionCfg.DocumentURL = cfg.DocumentWebhookURL
	completionCfg.OpenAIKey = cfg.OpenAIAPIKey
	completionCfg.OpenAIBaseURL = cfg.OpenAIBaseURL
	completionCfg.OpenAIModel = cfg.OpenAIModel
	completionCfg.Timeout = cfg.CompletionTimeout
	completionCfg.MaxFileSize = int64(cfg.MaxUploadMB) * 1024 * 1024
	completionCfg.SendConversationID = cfg.SendConversationID

	completer, err := completion.New(completionCfg, &http.Client{}, logger.With("component", "completion"))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize completion client: %v", err)
	}

	chatCfg := chat.DefaultConfig()
	chatCfg.AutosaveInterval = cfg.AutosaveInterval
	chatCfg.Files = completionCfg.FilePolicy

	controller, err := chat.NewController(context.Background(), chatCfg, chatStore, completer, logger.With("component", "chat"))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize chat controller: %v", err)
	}

	broker := handlers.NewEventBroker(logger)
	controller.OnChange(broker.Publish)

	limiterCfg := ratelimit.DefaultChatConfig()
	limiterCfg.RequestsPerSecond = cfg.RateLimitRPS
	limiterCfg.Burst = cfg.RateLimitBurst
	if err := limiterCfg.Validate(); err != nil {
		log.Fatalf("Invalid rate limit settings: %v", err)
	}
	limiter := ratelimit.NewMemoryRateLimiter(limiterCfg)
	defer limiter.Close()

	// --- Router Setup ---
	r := handlers.NewRouter(handlers.RouterDeps{
		Chat:          handlers.NewChatHandler(controller, render.New(), completionCfg.MaxFileSize, logger),
		Conversations: handlers.NewConversationHandler(conversationRepo, logger),
		Events:        broker,
		Logs:          handlers.NewLogHandler(logger.With("component", "frontend")),
		Health:        handlers.NewHealthHandler(sqlDB),
		Limiter:       limiter,
		Logger:        logger,
	})

	// Event streams end when this context is cancelled at shutdown.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	port := ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:              port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	logger.Info("server starting",
		"port", port,
		"completion_backend", cfg.CompletionBackend,
		"store_backend", cfg.StoreBackend,
		"environment", cfg.Environment,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server startup failed: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := controller.Close(ctx); err != nil {
		logger.Error("chat controller shutdown failed", "error", err)
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
	logger.Info("server stopped")
}

func newStore(cfg *config.Config, kvRepo kv.KVRepository, logger *services.ProductionLogger) store.Store {
	storeLogger := logger.With("component", "store")
	switch cfg.StoreBackend {
	case config.StoreRemote:
		return store.NewRemoteStore(cfg.RemoteStoreURL, &http.Client{Timeout: 15 * time.Second}, storeLogger)
	case config.StoreMemory:
		return store.NewMemoryStore()
	default:
		return store.NewLocalStore(kvRepo, storeLogger)
	}
}
