package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edumesh/edumesh-api/api/swagger"
	"github.com/edumesh/edumesh-api/internal/handler"
	"github.com/edumesh/edumesh-api/internal/middleware"
	"github.com/edumesh/edumesh-api/internal/models"
	"github.com/edumesh/edumesh-api/internal/repository"
	"github.com/edumesh/edumesh-api/internal/service"
	"github.com/edumesh/edumesh-api/internal/tenant"
	"github.com/edumesh/edumesh-api/pkg/advisory"
	"github.com/edumesh/edumesh-api/pkg/cache"
	"github.com/edumesh/edumesh-api/pkg/config"
	"github.com/edumesh/edumesh-api/pkg/database"
	"github.com/edumesh/edumesh-api/pkg/logger"
	corsmiddleware "github.com/edumesh/edumesh-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edumesh/edumesh-api/pkg/middleware/requestid"
)

// @title EduMesh API
// @version 0.1.0
// @description Multi-tenant school backend gateway
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	controlDB, err := database.NewControl(cfg.ControlDB)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect control database", "error", err)
	}
	defer controlDB.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The registry cache is an optimization; resolution still works
		// against the control database alone.
		logr.Sugar().Warnw("redis unavailable, tenant registry cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	schoolRepo := repository.NewSchoolRepository(controlDB)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	schoolSource := repository.NewCachedSchoolSource(schoolRepo, cacheRepo, cfg.TenantCache.TTL)

	resolver := tenant.NewResolver(schoolSource, func(dbName string) (*sqlx.DB, error) {
		return database.OpenTenant(cfg.TenantDB, dbName)
	}, logr).WithMetrics(metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifications *service.NotificationService
	if cfg.Notifications.Enabled {
		notifications = service.NewNotificationService(cfg.Notifications, logr)
		notifications.Start(ctx)
		defer notifications.Stop()
	}

	batchEngine := service.NewBatchEngine(logr, metrics)
	enrollmentSvc := service.NewEnrollmentService(resolver, batchEngine,
		repository.NewEnrollmentRepository(), repository.NewStudentRepository(), repository.NewCourseRepository(),
		notifications, validate, logr)
	bibliographySvc := service.NewBibliographyService(resolver,
		repository.NewBibliographyRepository(), repository.NewCourseRepository(), validate, logr)
	chatSvc := service.NewChatService(resolver,
		repository.NewChatRepository(), repository.NewBibliographyRepository(), repository.NewCourseRepository(),
		repository.NewCourseRepository(), repository.NewStudentRepository(),
		advisory.NewClient(cfg.Advisory), metrics, validate, logr)

	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	bibliographyHandler := handler.NewBibliographyHandler(bibliographySvc)
	chatHandler := handler.NewChatHandler(chatSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := controlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "control database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	staff := middleware.RequireRoles(models.RoleOperator, models.RoleSchoolAdmin, models.RoleProfessor)

	enrollments := api.Group("/enrollments")
	{
		enrollments.GET("", staff, enrollmentHandler.List)
		enrollments.POST("/batch", staff, enrollmentHandler.EnrollBatch)
		enrollments.POST("/batch-students", staff, enrollmentHandler.EnrollStudentsBatch)
		enrollments.PUT("/:id/withdraw", staff, enrollmentHandler.Withdraw)
		enrollments.PUT("/:id/complete", staff, enrollmentHandler.Complete)
	}

	chapters := api.Group("/chapters/:chapterId/bibliography")
	{
		chapters.GET("", bibliographyHandler.List)
		chapters.POST("", staff, bibliographyHandler.Create)
		chapters.PUT("/reorder", staff, bibliographyHandler.Reorder)
		if cfg.Export.Enabled {
			chapters.GET("/export", staff, bibliographyHandler.Export)
		}
	}
	api.DELETE("/bibliography/:id", staff, bibliographyHandler.Delete)

	chat := api.Group("/chat/sessions")
	{
		chat.POST("", chatHandler.Start)
		chat.GET("/:id", chatHandler.Get)
		chat.POST("/:id/messages", chatHandler.Send)
		chat.PUT("/:id/complete", chatHandler.Complete)
		chat.PUT("/:id/cancel", chatHandler.Cancel)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
