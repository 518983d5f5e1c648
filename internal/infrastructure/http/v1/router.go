// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"powderbook/internal/domain/activity"
	"powderbook/internal/domain/allocation"
	"powderbook/internal/domain/auth"
	"powderbook/internal/domain/catalogs/client"
	"powderbook/internal/domain/catalogs/powder"
	"powderbook/internal/domain/catalogs/supplier"
	"powderbook/internal/domain/ledger"
	"powderbook/internal/domain/purchase"
	"powderbook/internal/domain/reports"
	"powderbook/internal/domain/usage"
	"powderbook/internal/infrastructure/docservice"
	"powderbook/internal/infrastructure/http/v1/handlers"
	"powderbook/internal/infrastructure/http/v1/middleware"
	"powderbook/internal/infrastructure/storage/postgres"
	"powderbook/internal/infrastructure/storage/postgres/activity_repo"
	"powderbook/internal/infrastructure/storage/postgres/catalog_repo"
	"powderbook/internal/infrastructure/storage/postgres/ledger_repo"
	"powderbook/internal/infrastructure/storage/postgres/purchase_repo"
	"powderbook/internal/infrastructure/storage/postgres/report_repo"
	"powderbook/internal/infrastructure/storage/postgres/usage_repo"
	"powderbook/pkg/logger"
	"powderbook/pkg/numerator"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// TxManager runs repository operations and transactions
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// AuthService for authentication endpoints
	AuthService *auth.Service

	// Numerator for document number generation
	Numerator *numerator.Service

	// Renderer produces PDF documents; nil disables the pdf endpoints
	Renderer *docservice.Client

	// IdempotencyStore enables replay protection for mutating
	// operations when set
	IdempotencyStore *postgres.IdempotencyStore
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Shared services
	baseHandler := handlers.NewBaseHandler()
	activityService := activity.NewService(activity_repo.NewActivityRepo(cfg.TxManager))

	batchRepo := ledger_repo.NewBatchRepo(cfg.TxManager)
	trailRepo := usage_repo.NewTrailRepo(cfg.TxManager)
	allocator := allocation.NewAllocator(batchRepo, trailRepo)

	ledgerService := ledger.NewService(batchRepo, cfg.TxManager, activityService)
	usageService := usage.NewService(usage_repo.NewUsageRepo(cfg.TxManager),
		allocator, cfg.TxManager, cfg.Numerator, activityService)
	purchaseService := purchase.NewService(purchase_repo.NewOrderRepo(cfg.TxManager),
		batchRepo, cfg.TxManager, cfg.Numerator, activityService)
	reportService := reports.NewService(report_repo.NewReportRepo(cfg.TxManager))

	// API v1
	v1 := router.Group("/api/v1")
	{
		registerAuthRoutes(v1, cfg, baseHandler)

		// Protected endpoints
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		// Replay protection for mutating operations
		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		registerCatalogRoutes(protected, cfg, baseHandler)

		handlers.NewStockHandler(baseHandler, ledgerService).RegisterRoutes(protected)
		handlers.NewUsageHandler(baseHandler, usageService).RegisterRoutes(protected)
		handlers.NewPurchaseHandler(baseHandler, purchaseService, cfg.AuthService, cfg.Renderer).RegisterRoutes(protected)
		handlers.NewReportsHandler(baseHandler, reportService, cfg.AuthService, cfg.Renderer).RegisterRoutes(protected)
		handlers.NewActivityHandler(baseHandler, activityService).RegisterRoutes(protected)

		if cfg.AuthService != nil {
			settings := protected.Group("/settings")
			authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)
			authHandler.RegisterSettingsRoutes(settings)
		}
	}

	return router
}

// registerAuthRoutes registers authentication endpoints.
func registerAuthRoutes(rg *gin.RouterGroup, cfg RouterConfig, baseHandler *handlers.BaseHandler) {
	if cfg.AuthService == nil {
		return
	}

	authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)

	// Public auth endpoints (no JWT required)
	publicAuth := rg.Group("/auth")

	// Protected auth endpoints (JWT required)
	protectedAuth := rg.Group("/auth")
	protectedAuth.Use(middleware.Auth(cfg.JWTValidator))

	authHandler.RegisterRoutes(publicAuth, protectedAuth)
}

// registerCatalogRoutes registers catalog endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig, baseHandler *handlers.BaseHandler) {
	catalogs := rg.Group("/catalog")

	// --- POWDERS ---
	{
		repo := catalog_repo.NewPowderRepo(cfg.TxManager)
		service := powder.NewService(repo, cfg.TxManager, cfg.Numerator)
		handler := handlers.NewPowderHandler(baseHandler, service)
		RegisterCatalogRoutes(catalogs.Group("/powders"), handler)
	}

	// --- SUPPLIERS ---
	{
		repo := catalog_repo.NewSupplierRepo(cfg.TxManager)
		service := supplier.NewService(repo, cfg.TxManager, cfg.Numerator)
		handler := handlers.NewSupplierHandler(baseHandler, service)
		RegisterCatalogRoutes(catalogs.Group("/suppliers"), handler)
	}

	// --- CLIENTS ---
	{
		repo := catalog_repo.NewClientRepo(cfg.TxManager)
		service := client.NewService(repo, cfg.TxManager, cfg.Numerator)
		handler := handlers.NewClientHandler(baseHandler, service)
		RegisterCatalogRoutes(catalogs.Group("/clients"), handler)
	}
}
