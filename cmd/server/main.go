package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"accounting-engine/internal/config"
	"accounting-engine/internal/handler"
	"accounting-engine/internal/middleware"
	"accounting-engine/internal/repository"
	"accounting-engine/internal/service"
	"accounting-engine/pkg/database"
	"accounting-engine/pkg/logger"
	"accounting-engine/pkg/redis"
)

func main() {
	// Initialize logger
	log := logger.NewLogger("accounting-engine")
	defer log.Sync()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Initialize repositories
	chartRepo := repository.NewChartRepository(db.DB)
	ruleRepo := repository.NewRuleRepository(db.DB)
	ledgerRepo := repository.NewLedgerRepository(db.DB)

	ctx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := ledgerRepo.Migrate(ctx); err != nil {
		cancelInit()
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	// Report cache
	cache := redis.NewClient(cfg.RedisAddr)

	// Initialize services
	chartService := service.NewChartService(chartRepo, log)
	if err := chartService.Seed(ctx); err != nil {
		cancelInit()
		log.Fatal("failed to seed chart of accounts", zap.Error(err))
	}
	cancelInit()

	ruleService := service.NewRuleService(ruleRepo, chartRepo, log)
	reportingService := service.NewReportingService(ledgerRepo, chartService, cache,
		time.Duration(cfg.ReportCacheTTL)*time.Second, log)
	postingService := service.NewPostingService(ledgerRepo, ruleService, chartRepo,
		reportingService, log, cfg.CurrencyScale, cfg.RetryBudget)

	// Initialize handlers
	postingHandler := handler.NewPostingHandler(postingService, log)
	adminHandler := handler.NewAdminHandler(chartService, ruleService, log)
	reportHandler := handler.NewReportHandler(reportingService, log)

	// Setup router
	router := setupRouter(postingHandler, adminHandler, reportHandler, log)

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("starting accounting engine", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	cache.Close()
	db.Close()
	log.Info("server exited")
}

func setupRouter(postings *handler.PostingHandler, admin *handler.AdminHandler, reports *handler.ReportHandler, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health checks
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	v1 := router.Group("/api/v1")
	{
		ledger := v1.Group("/ledger")
		{
			ledger.POST("/postings", postings.Post)
			ledger.POST("/reversals", postings.Reverse)
			ledger.GET("/accounts/:id", reports.AccountBalance)
			ledger.GET("/accounts/:id/general-ledger", reports.GeneralLedger)
		}

		reporting := v1.Group("/reports")
		{
			reporting.GET("/trial-balance", reports.TrialBalance)
			reporting.GET("/trial-balance-6", reports.TrialBalance6)
			reporting.GET("/balance-sheet", reports.BalanceSheet)
			reporting.GET("/reconciliation", reports.Reconcile)
		}

		adminGroup := v1.Group("/admin")
		{
			adminGroup.GET("/chart", admin.ListChart)
			adminGroup.POST("/chart", admin.CreateChartAccount)
			adminGroup.PUT("/chart/:number", admin.UpdateChartAccount)
			adminGroup.DELETE("/chart/:number", admin.DeleteChartAccount)
			adminGroup.GET("/rules", admin.ListRules)
			adminGroup.POST("/rules", admin.SaveRule)
			adminGroup.DELETE("/rules/:id", admin.DeleteRule)
		}
	}

	return router
}
