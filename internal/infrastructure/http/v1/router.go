// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/audit"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/inward"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/reconciliation"
	"stockbook/internal/domain/reports"
	"stockbook/internal/domain/sales"
	"stockbook/internal/infrastructure/http/v1/handlers"
	"stockbook/internal/infrastructure/http/v1/middleware"
	"stockbook/internal/infrastructure/storage/postgres"
	"stockbook/internal/infrastructure/storage/postgres/catalog_repo"
	"stockbook/internal/infrastructure/storage/postgres/document_repo"
	"stockbook/internal/infrastructure/storage/postgres/ledger_repo"
	"stockbook/internal/infrastructure/storage/postgres/report_repo"
	"stockbook/pkg/logger"
	"stockbook/pkg/numerator"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection (health checks)
	Pool *postgres.Pool

	// TxManager drives all transactional work
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Numerator for document number generation
	Numerator *numerator.Service

	// Auditor records document-level audit events
	Auditor audit.Recorder

	// VariancePolicy decides when a count needs a written reason.
	// Nil falls back to the default policy (any nonzero variance).
	VariancePolicy *reconciliation.VariancePolicy
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

	// Repositories and services share one TxManager; each request decides
	// its own transaction scope.
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	ledgerRepo := ledger_repo.NewLedgerRepo(cfg.TxManager)
	saleRepo := document_repo.NewSaleRepo(cfg.TxManager)
	inwardRepo := document_repo.NewInwardRepo(cfg.TxManager)
	reconciliationRepo := document_repo.NewReconciliationRepo(cfg.TxManager)
	reportsRepo := report_repo.NewReportsRepo(cfg.TxManager)

	productService := product.NewService(productRepo)
	ledgerService := ledger.NewService(ledgerRepo, productService)
	saleService := sales.NewService(saleRepo, productService, ledgerService, cfg.TxManager, cfg.Numerator, cfg.Auditor)
	inwardService := inward.NewService(inwardRepo, productService, ledgerService, cfg.TxManager, cfg.Numerator, cfg.Auditor)
	reconciliationService := reconciliation.NewService(
		reconciliationRepo, productService, ledgerService,
		cfg.TxManager, cfg.Numerator, cfg.Auditor, cfg.VariancePolicy,
	)
	reportsService := reports.NewService(reportsRepo, cfg.TxManager)

	base := handlers.NewBaseHandler()
	productHandler := handlers.NewProductHandler(base, productService)
	saleHandler := handlers.NewSaleHandler(base, saleService)
	inwardHandler := handlers.NewInwardHandler(base, inwardService)
	reconciliationHandler := handlers.NewReconciliationHandler(base, reconciliationService)
	ledgerHandler := handlers.NewLedgerHandler(base, ledgerService)
	reportsHandler := handlers.NewReportsHandler(base, reportsService)

	// API v1, JWT protected
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	{
		products := v1.Group("/products")
		{
			products.POST("", productHandler.Create)
			products.GET("", productHandler.List)
			products.GET("/:id", productHandler.Get)
			products.PUT("/:id", productHandler.Update)
		}

		salesGroup := v1.Group("/sales")
		{
			salesGroup.POST("", saleHandler.Apply)
			salesGroup.GET("", saleHandler.List)
			salesGroup.GET("/:id", saleHandler.Get)
		}

		inwardGroup := v1.Group("/inward")
		{
			inwardGroup.POST("", inwardHandler.Record)
			inwardGroup.GET("", inwardHandler.List)
			inwardGroup.GET("/:id", inwardHandler.Get)
		}

		recons := v1.Group("/reconciliations")
		{
			recons.POST("", reconciliationHandler.Create)
			recons.GET("", reconciliationHandler.List)
			recons.GET("/:id", reconciliationHandler.Get)
			recons.GET("/by-day/:day", reconciliationHandler.GetByDay)
			recons.PUT("/:id/items/:productId", reconciliationHandler.RecordCount)
			recons.POST("/:id/complete", reconciliationHandler.Complete)
			// Approval annotates the ledger; managers only.
			recons.POST("/:id/approve", middleware.RequireRole("manager"), reconciliationHandler.Approve)
		}

		ledgerGroup := v1.Group("/ledger")
		{
			ledgerGroup.GET("", ledgerHandler.ListRange)
			ledgerGroup.GET("/:productId/:day", ledgerHandler.GetDay)
		}

		reportsGroup := v1.Group("/reports")
		{
			reportsGroup.GET("/daily-summary", reportsHandler.GetDailySummary)
			reportsGroup.GET("/movements", reportsHandler.GetMovements)
		}
	}

	return router
}
