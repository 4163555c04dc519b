package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"

	"policyassist-backend/config"
	"policyassist-backend/handlers"
	"policyassist-backend/ingest"
	"policyassist-backend/logger"
	"policyassist-backend/repository"
	"policyassist-backend/service"
	"policyassist-backend/session"
	"policyassist-backend/storage"
	"policyassist-backend/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}
	logger.Setup(cfg)

	db, err := repository.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize Postgres: %v", err)
	}
	defer db.Close()
	slog.Info("postgres connection established")

	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		log.Fatalf("Failed to create snowflake node: %v", err)
	}

	sessions, closeSessions := initSessions(ctx, cfg.Redis)
	defer closeSessions()

	model, closeModel, err := service.NewModelClient(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize %s client: %v", cfg.LLM.Provider, err)
	}
	defer closeModel()
	slog.Info("model client initialized", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)

	docStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Repositories
	chunkRepo := repository.NewPolicyChunkRepository(db)
	messageRepo := repository.NewChatMessageRepository(db, node)
	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewPolicyDocumentRepository(db)
	runRepo := repository.NewIngestRunRepository(db)

	// Services
	answerService := service.NewAnswerService(
		service.AnswerWithCompleter(model),
		service.AnswerWithHistoryStore(messageRepo),
		service.AnswerWithHistoryLimit(cfg.Retrieval.HistoryLimit),
		service.AnswerWithTimeouts(cfg.Retrieval.CompletionTimeout, cfg.Retrieval.HistoryTimeout),
	)
	assistant := service.NewAssistantService(
		service.AssistantWithRetriever(service.NewRetriever(model, chunkRepo, cfg.Retrieval.SearchTimeout)),
		service.AssistantWithAnswerService(answerService),
		service.AssistantWithTopK(cfg.Retrieval.TopK),
	)
	auth := service.NewAuthService(userRepo, sessions)
	pipeline := ingest.NewPipeline(docStore, model, chunkRepo,
		ingest.WithDocumentTracker(documentRepo),
		ingest.WithRunTracker(runRepo),
	)

	router := handlers.NewRouter(handlers.Routes{
		ServiceName: cfg.OTel.ServiceName,
		Sessions:    auth,
		Auth:        handlers.NewAuthHandler(auth, cfg.IsProduction(), cfg.Redis.SessionTTL),
		Query:       handlers.NewQueryHandler(assistant),
		History:     handlers.NewHistoryHandler(messageRepo),
		Documents:   handlers.NewDocumentHandler(documentRepo, docStore, pipeline),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown failed", "error", err)
	}
}

// initSessions uses Redis when configured and falls back to process memory
func initSessions(ctx context.Context, cfg config.RedisConfig) (session.Store, func()) {
	if !cfg.Enabled() {
		slog.Warn("REDIS_URL not set, sessions are kept in memory")
		return session.NewMemoryStore(cfg.SessionTTL), func() {}
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	slog.Info("redis session store connected")
	return session.NewRedisStore(client, cfg.SessionTTL), func() { client.Close() }
}
