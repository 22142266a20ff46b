package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"induswealth/internal/amqp"
	"induswealth/internal/cache"
	"induswealth/internal/config"
	apphttp "induswealth/internal/http"
	"induswealth/internal/llm"
	"induswealth/internal/middleware/auth"
	"induswealth/internal/services"
	"induswealth/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	authSvc, err := services.NewAuthService(repo, cfg.JWTSecret)
	if err != nil {
		logger.Error("Failed to initialize auth service", "error", err)
		os.Exit(1)
	}

	normalizer, err := services.NewNormalizer(services.DefaultNormalizerConfig())
	if err != nil {
		logger.Error("Failed to initialize normalizer", "error", err)
		os.Exit(1)
	}
	simulator := services.NewSimulator()
	comparator := services.NewStrategyComparator(normalizer, simulator)

	// Insight text cache: Redis when configured, in-memory otherwise.
	textCache, err := cache.NewTextCache(cfg.CacheBackend, cfg.RedisAddr)
	if err != nil {
		logger.Error("Failed to initialize insight cache", "error", err, "backend", cfg.CacheBackend)
		os.Exit(1)
	}

	llmClient := llm.NewClient(cfg.OpenAIAPIKey, "", cfg.OpenAIModel)
	if !llmClient.Enabled() {
		logger.Info("OpenAI disabled - insights fall back to deterministic text")
	}
	insights := services.NewInsightService(llmClient, textCache)

	// AMQP is optional: without it, manual sync returns 503 and the worker
	// binary handles periodic refresh.
	var publisher apphttp.SyncPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable - manual sync disabled", "error", err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:              repo,
		Auth:               authSvc,
		AuthMW:             auth.NewMiddleware(cfg.JWTSecret),
		Comparator:         comparator,
		Insights:           insights,
		Publisher:          publisher,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting induswealth server", "port", cfg.Port, "cache_backend", cfg.CacheBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
