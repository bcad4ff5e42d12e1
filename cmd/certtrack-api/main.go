package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/certtrack-api/api/swagger"
	"github.com/noah-isme/certtrack-api/internal/handler"
	"github.com/noah-isme/certtrack-api/internal/middleware"
	"github.com/noah-isme/certtrack-api/internal/repository"
	"github.com/noah-isme/certtrack-api/internal/service"
	"github.com/noah-isme/certtrack-api/pkg/cache"
	"github.com/noah-isme/certtrack-api/pkg/config"
	"github.com/noah-isme/certtrack-api/pkg/database"
	"github.com/noah-isme/certtrack-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/certtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/certtrack-api/pkg/middleware/requestid"
	"github.com/noah-isme/certtrack-api/pkg/storage"
)

// @title CertTrack API
// @version 1.0.0
// @description Employee certification tracking with manager validation, audit trail and advisory recommendations
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and rate limiting disabled", "error", err)
		redisClient = nil
	}

	localStorage, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init attachment storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	certRepo := repository.NewCertificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	auditSvc := service.NewAuditService(auditRepo, logr)
	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	certSvc := service.NewCertificationService(certRepo, localStorage, signer, auditSvc, validate, logr, service.CertificationServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	})
	advisoryClient := service.NewHTTPAdvisoryClient(cfg.Advisory)
	advisorySvc := service.NewAdvisoryService(advisoryClient, cacheRepo, auditSvc, logr, cfg.Advisory.CacheTTL).
		WithMetrics(metricsSvc)

	authHandler := handler.NewAuthHandler(authSvc)
	certHandler := handler.NewCertificationHandler(certSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	advisoryHandler := handler.NewAdvisoryHandler(advisorySvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, redisClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.RateLimit.Enabled && redisClient != nil {
		api.Use(middleware.RateLimit(redisClient, cfg.RateLimit.RequestsPerMinute, logr))
	}

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	// Signed token in the path carries the authorization.
	api.GET("/downloads/:token", certHandler.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))
	{
		certs := secured.Group("/certifications")
		{
			certs.POST("", middleware.RequirePermission(service.OpCreateCertification), certHandler.Create)
			certs.GET("/my", middleware.RequirePermission(service.OpViewOwnCertifications), certHandler.My)
			certs.GET("", middleware.RequirePermission(service.OpListAllCertifications), certHandler.List)
			certs.GET("/export", middleware.RequirePermission(service.OpExportCertifications), certHandler.Export)
			certs.GET("/:id", certHandler.Get)
			certs.GET("/:id/attachment", certHandler.AttachmentURL)
			certs.POST("/:id/validate", middleware.RequirePermission(service.OpValidateCertification), certHandler.Validate)
			certs.DELETE("/:id", middleware.RequirePermission(service.OpDeleteCertification), certHandler.Delete)
		}

		secured.POST("/advisory/recommendations", middleware.RequirePermission(service.OpRequestAdvisory), advisoryHandler.Recommend)

		audit := secured.Group("/audit-logs")
		audit.Use(middleware.RequirePermission(service.OpReadAuditLogs))
		{
			audit.GET("", auditHandler.List)
			audit.GET("/:entity_type/:entity_id", auditHandler.ListByEntity)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
