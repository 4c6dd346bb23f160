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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/jcastellanos/aguadora-api/docs" // Swagger docs
	"github.com/jcastellanos/aguadora-api/internal/config"
	"github.com/jcastellanos/aguadora-api/internal/database"
	"github.com/jcastellanos/aguadora-api/internal/handlers"
	"github.com/jcastellanos/aguadora-api/internal/jobs"
	"github.com/jcastellanos/aguadora-api/internal/middleware"
	"github.com/jcastellanos/aguadora-api/internal/repository"
	"github.com/jcastellanos/aguadora-api/internal/services"
	"github.com/jcastellanos/aguadora-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// @title Aguadora API
// @version 1.0
// @description REST API for the water association billing and account management system

// @contact.name API Support

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
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
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

	// Warn if Resend email is not configured
	if cfg.ResendAPIKey == "" || cfg.FromEmail == "" {
		logger.Warn("Resend email disabled: RESEND_API_KEY or FROM_EMAIL not set")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Database schema up to date")

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, cfg, db)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

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
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// Redirect root to swagger
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check (public)
		v1.GET("/health", h.Health.Index)

		// Authentication (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Protected routes (requires authentication)
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTSecret))
		{
			// Admin-only routes
			admin := protected.Group("")
			admin.Use(middleware.RequireAdmin())
			{
				// Staff account management
				admin.GET("/users", h.User.Index)
				admin.POST("/users", h.User.Create)
				admin.PUT("/users/:user_id", h.User.Update)
				admin.POST("/users/:user_id/deactivate", h.User.Deactivate)

				// Billing policy
				admin.PUT("/settings/monthly_fee", h.Settings.UpdateFee)
				admin.PUT("/settings/billing_start_date", h.Settings.UpdateBillingStart)

				// Destructive operations
				admin.DELETE("/owners/:owner_id", h.Owner.Delete)
				admin.DELETE("/connections/:connection_id", h.Connection.Delete)
				admin.DELETE("/plans/:plan_id", h.Plan.Delete)
				admin.POST("/plans/:plan_id/cancel", h.Plan.Cancel)
				admin.POST("/plans/:plan_id/reactivate", h.Plan.Reactivate)
				admin.DELETE("/plans/payments/:payment_id", h.Plan.DeletePayment)
				admin.DELETE("/other_payments/:payment_id", h.OtherPayment.Delete)

				// Audit trail
				admin.GET("/audit_logs", h.Audit.Index)

				// Manual status sweep
				admin.POST("/reports/recompute_statuses", h.Report.RecomputeStatuses)

				// Background worker stats
				admin.GET("/health/worker", h.Health.WorkerStats)
			}

			// Billing policy (read)
			protected.GET("/settings", h.Settings.Show)

			// Owners
			protected.GET("/owners", h.Owner.Index)
			protected.GET("/owners/:owner_id", h.Owner.Show)
			protected.POST("/owners", h.Owner.Create)
			protected.PUT("/owners/:owner_id", h.Owner.Update)

			// Water connections
			protected.GET("/connections", h.Connection.Index)
			protected.GET("/connections/:connection_id", h.Connection.Show)
			protected.POST("/connections", h.Connection.Create)
			protected.PUT("/connections/:connection_id", h.Connection.Update)
			protected.POST("/connections/:connection_id/suspend", h.Connection.Suspend)
			protected.POST("/connections/:connection_id/activate", h.Connection.Activate)

			// Installment plans
			protected.GET("/plans/:plan_id", h.Plan.Show)
			protected.GET("/connections/:connection_id/plans", h.Plan.ByConnection)
			protected.POST("/plans", h.Plan.Create)
			protected.POST("/plans/:plan_id/payments", h.Plan.RecordPayment)
			protected.GET("/plans/payments/:payment_id/receipt", h.Report.PlanReceipt)

			// Monthly payments
			protected.GET("/connections/:connection_id/payments", h.Payment.ByConnection)
			protected.POST("/payments", h.Payment.Create)
			protected.GET("/payments/:payment_id/receipt", h.Payment.Receipt)

			// Ad-hoc payments
			protected.GET("/connections/:connection_id/other_payments", h.OtherPayment.ByConnection)
			protected.POST("/other_payments", h.OtherPayment.Create)
			protected.GET("/other_payments/:payment_id/receipt", h.OtherPayment.Receipt)

			// Reports
			protected.GET("/reports/delinquency", h.Report.DelinquencyCSV)
			protected.GET("/reports/delinquency/rows", h.Report.DelinquencyRows)
			protected.GET("/reports/monthly_income", h.Report.MonthlyIncomeXLSX)

			// Notifications
			// Static route first so "read_all" is not matched as :notification_id
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.Index)
				notifications.POST("/read_all", h.Notification.MarkAllAsRead)
				notifications.POST("/:notification_id/read", h.Notification.MarkAsRead)
			}
		}
	}

	return router
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services) {
	// Recompute payment statuses daily
	worker.ScheduleEvery(24*time.Hour, func(ctx context.Context) error {
		logger.Info("[Job] Recomputing payment statuses...")
		return svcs.StatusJob.RecomputeAll(ctx)
	})

	logger.Info("Scheduled recurring jobs")
}
