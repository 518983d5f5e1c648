// Package main is the entry point for the powderbook API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"powderbook/internal/domain/activity"
	"powderbook/internal/domain/auth"
	"powderbook/internal/infrastructure/docservice"
	v1 "powderbook/internal/infrastructure/http/v1"
	"powderbook/internal/infrastructure/storage/postgres"
	"powderbook/internal/infrastructure/storage/postgres/activity_repo"
	"powderbook/internal/infrastructure/storage/postgres/auth_repo"
	"powderbook/pkg/logger"
	"powderbook/pkg/numerator"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting powderbook server")

	// --- Database connection ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 25); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- JWT Service ---
	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")
	jwtConfig := auth.DefaultJWTConfig(jwtSecret)
	if ttl := getEnvDuration("JWT_ACCESS_TTL", 0); ttl > 0 {
		jwtConfig.AccessTokenTTL = ttl
	}
	jwtService := auth.NewJWTService(jwtConfig)

	// --- Activity log ---
	activityService := activity.NewService(activity_repo.NewActivityRepo(txManager))

	// --- Auth Service ---
	authService := auth.NewService(
		auth_repo.NewUserRepo(txManager),
		auth_repo.NewCompanyRepo(txManager),
		auth_repo.NewTokenRepo(txManager),
		txManager,
		jwtService,
		activityService,
		auth.DefaultServiceConfig(),
	)

	// --- Numerator Service ---
	numeratorService := numerator.New(pool)

	// --- Document renderer ---
	var renderer *docservice.Client
	if baseURL := getEnv("DOCSERVICE_URL", ""); baseURL != "" {
		renderer = docservice.NewClient(docservice.Config{
			BaseURL: baseURL,
			Timeout: getEnvDuration("DOCSERVICE_TIMEOUT", 30*time.Second),
		})
		log.Infow("document renderer configured", "url", baseURL)
	}

	// --- Idempotency ---
	var idempotencyStore *postgres.IdempotencyStore
	if getEnv("IDEMPOTENCY_ENABLED", "true") == "true" {
		ttl := getEnvDuration("IDEMPOTENCY_TTL", 10*time.Minute)
		idempotencyStore = postgres.NewIdempotencyStore(txManager, ttl)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:             pool,
		TxManager:        txManager,
		Logger:           log,
		JWTValidator:     jwtService,
		AuthService:      authService,
		Numerator:        numeratorService,
		Renderer:         renderer,
		IdempotencyStore: idempotencyStore,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// Periodic cleanup of expired idempotency keys and refresh tokens
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go runCleanup(cleanupCtx, log, idempotencyStore, auth_repo.NewTokenRepo(txManager))

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// runCleanup removes expired idempotency keys and refresh tokens hourly.
func runCleanup(ctx context.Context, log *logger.Logger, store *postgres.IdempotencyStore, tokens *auth_repo.TokenRepo) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if store != nil {
				if n, err := store.CleanupExpired(ctx); err != nil {
					log.Warnw("idempotency cleanup failed", "error", err)
				} else if n > 0 {
					log.Infow("idempotency keys cleaned", "removed", n)
				}
			}
			if n, err := tokens.CleanupExpiredTokens(ctx); err != nil {
				log.Warnw("token cleanup failed", "error", err)
			} else if n > 0 {
				log.Infow("refresh tokens cleaned", "removed", n)
			}
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
