package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/sjperalta/finops-api/docs" // Swagger docs
	"github.com/sjperalta/finops-api/internal/config"
	"github.com/sjperalta/finops-api/internal/database"
	"github.com/sjperalta/finops-api/internal/handlers"
	"github.com/sjperalta/finops-api/internal/jobs"
	"github.com/sjperalta/finops-api/internal/middleware"
	"github.com/sjperalta/finops-api/internal/models"
	"github.com/sjperalta/finops-api/internal/repository"
	"github.com/sjperalta/finops-api/internal/services"
	"github.com/sjperalta/finops-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title FinOps API
// @version 1.0
// @description REST API for transaction codes, approvals and the audit trail
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment, cfg.LogLevel)

	// Initialize Sentry (GlitchTip) when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("Database schema up to date")
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)
	if cfg.SequenceBackend == config.SequenceBackendRedis {
		client, err := repository.NewRedisClient(cfg.RedisURL)
		if err != nil {
			logger.Error("Failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		repos.Sequence = repository.NewRedisSequenceRepository(client, "")
		logger.Info("Using redis sequence store")
	}

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs, worker)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Drain pending audit writes and notifications
	worker.Shutdown()
	logger.Info("Background worker stopped", "stats", worker.GetStats())

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		v1.POST("/auth/login", h.Auth.Login)

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			protected.POST("/auth/logout", h.Auth.Logout)

			// Transactions; per-record permission gates live in the service
			transactions := protected.Group("/transactions")
			{
				transactions.GET("", h.Transaction.Index)
				transactions.POST("", h.Transaction.Create)
				transactions.GET("/:transaction_id", h.Transaction.Show)
				transactions.PUT("/:transaction_id", h.Transaction.Update)
				transactions.DELETE("/:transaction_id", h.Transaction.Delete)
				transactions.GET("/:transaction_id/voucher", h.Transaction.Voucher)
				transactions.POST("/:transaction_id/submit", h.Transaction.Submit)
				transactions.POST("/:transaction_id/cancel", h.Transaction.Cancel)

				approvers := transactions.Group("")
				approvers.Use(middleware.Require(models.Role.CanApprove))
				{
					approvers.POST("/:transaction_id/approve", h.Transaction.Approve)
					approvers.POST("/:transaction_id/reject", h.Transaction.Reject)
				}
			}

			// Audit trail
			audits := protected.Group("/audits")
			audits.Use(middleware.Require(models.Role.CanViewAudit))
			{
				audits.GET("", h.Audit.Index)
				audits.GET("/export", h.Audit.Export)
			}

			// Sequence administration (admin only)
			sequences := protected.Group("/sequences")
			sequences.Use(middleware.RequireRole(models.RoleAdmin))
			{
				sequences.GET("/:key", h.Sequence.Show)
				sequences.POST("/:key/reset", h.Sequence.Reset)
			}
		}
	}

	return router
}
