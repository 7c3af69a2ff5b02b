package internal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskflow/pkg/config"
	"taskflow/pkg/jwt"
	"taskflow/pkg/logger"
	"taskflow/pkg/mailer"
	"taskflow/pkg/middleware"
	notificationHTTP "taskflow/services/notification/internal/controller/http"
	"taskflow/services/notification/internal/outbox"
	"taskflow/services/notification/internal/realtime"
	"taskflow/services/notification/internal/repo/persistent"
	"taskflow/services/notification/internal/scheduler"
	"taskflow/services/notification/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "taskflow/services/notification/docs" // Swagger docs
)

func Run(cfg *config.Config, log *logger.Logger, db *gorm.DB, redisClient *redis.Client) {
	jwtService := jwt.NewService(cfg.JWTSecret)

	// Initialize Repositories
	notificationRepo := persistent.NewNotificationRepository(db)
	userRepo := persistent.NewUserRepository(db)
	entityRepo := persistent.NewEntityRepository(db)
	outboxRepo := persistent.NewOutboxRepository(db)

	// Initialize UseCase
	publisher := realtime.NewRedisPublisher(redisClient)
	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, userRepo, publisher, log)

	// Background jobs
	jobs := scheduler.New(scheduler.Deps{
		Entities:      entityRepo,
		Notifications: notificationRepo,
		Users:         userRepo,
		Outbox:        outboxRepo,
		Dispatcher:    notificationUseCase,
		Locker:        scheduler.NewRedisLocker(redisClient),
		Logger:        log,
	}, scheduler.ConfigFrom(cfg))
	if err := jobs.Start(); err != nil {
		log.Error("Failed to start scheduler: %v", err)
		panic(err)
	}

	worker := outbox.NewWorker(outboxRepo, mailer.New(cfg, log), outbox.ConfigFrom(cfg), log)
	worker.Start()

	// Initialize HTTP handlers
	hub := realtime.NewHub(redisClient, log)
	notificationHandler := notificationHTTP.NewNotificationHandler(notificationUseCase, jobs, hub, log, jwtService)

	r := NewRouter(cfg, jwtService, redisClient, notificationHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info("Notification service starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down notification service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	// Jobs first so nothing new lands in the outbox while the worker drains.
	if err := jobs.Stop(ctx); err != nil {
		log.Error("Scheduler did not stop cleanly: %v", err)
	}
	if err := worker.Stop(ctx); err != nil {
		log.Error("Outbox worker did not stop cleanly: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Info("Notification service exited")
}

// NewRouter mounts the notification API on a fresh gin engine.
func NewRouter(cfg *config.Config, jwtService *jwt.Service, redisClient *redis.Client, notificationHandler *notificationHTTP.NotificationHandler) *gin.Engine {
	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.AppBaseURL, "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	// Protected routes - require authentication
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	if cfg.RateLimitPerMinute > 0 {
		protected.Use(middleware.RateLimitMiddleware(redisClient, cfg.RateLimitPerMinute, time.Minute))
	}
	{
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)
		protected.GET("/notifications/preferences", notificationHandler.GetPreferences)
		protected.PUT("/notifications/preferences", notificationHandler.UpdatePreferences)
		protected.POST("/notifications/jobs/:job/run", notificationHandler.RunJob)
	}
	// WebSocket endpoint - handles authentication internally via query parameter
	api.GET("/notifications/ws", notificationHandler.HandleWebSocket)

	return r
}
