package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LovationAdmin/crm-api/config"
	"github.com/LovationAdmin/crm-api/handlers"
	"github.com/LovationAdmin/crm-api/middleware"
	"github.com/LovationAdmin/crm-api/migration"
	"github.com/LovationAdmin/crm-api/routes"
	"github.com/LovationAdmin/crm-api/services"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer db.Close()

	if err := config.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	if err := migration.RunAll(context.Background(), db); err != nil {
		log.Fatal("Failed to run legacy migrations: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Services
	users := services.NewUserService(db)
	finance := services.NewFinancialService(db)
	jobs := services.NewPostgresJobStore(db)
	reports := services.NewReportService(finance, jobs)
	calendar := services.NewCalendarService(db)
	tasks := services.NewTaskService(db)
	chat := services.NewChatService(db)
	journal := services.NewJournalService(db, cfg.DataEncryptionKey)
	insights := services.NewInsightService(finance, services.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel))

	taskHandler := &handlers.TaskHandler{Tasks: tasks, Users: users}
	if email := services.NewEmailService(cfg.ResendAPIKey, cfg.FromEmail, cfg.FrontendURL); email.Enabled() {
		taskHandler.Email = email
	}

	maintenance := &services.Maintenance{Sessions: users, Jobs: jobs, RetentionDays: cfg.ReportRetentionDays}
	scheduler, err := maintenance.Schedule(cfg.JobCleanupCron)
	if err != nil {
		log.Fatal("Failed to schedule cleanup: ", err)
	}
	defer scheduler.Stop()

	limiter := middleware.NewFixedWindowLimiter(cfg.RateLimit, cfg.RateLimitWindow)
	go limiter.RunCleanup(ctx, time.Minute)

	wsHandler := handlers.NewWSHandler()
	defer wsHandler.Close()
	taskHandler.WS = wsHandler

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("/")
		public.Use(middleware.RateLimiter(limiter))
		routes.SetupAuthRoutes(public, db, cfg.JWTSecret)

		protected := v1.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg.JWTSecret), middleware.RateLimiter(limiter))
		{
			routes.SetupUserRoutes(protected, db, users)
			routes.SetupCalendarRoutes(protected, calendar, wsHandler)
			routes.SetupTaskRoutes(protected, taskHandler)
			routes.SetupFinancialRoutes(protected, finance)
			routes.SetupReportRoutes(protected, reports)
			routes.SetupInsightRoutes(protected, insights)
			routes.SetupCollaborationRoutes(protected, chat, journal, wsHandler)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(c.Request.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": version,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	utils.LogStartup("crm-api", version, cfg.Port)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.SafeError("shutdown: %v", err)
	}
}
