package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/audit-trail-api/api/swagger"
	"github.com/noah-isme/audit-trail-api/internal/handler"
	"github.com/noah-isme/audit-trail-api/internal/middleware"
	"github.com/noah-isme/audit-trail-api/internal/models"
	"github.com/noah-isme/audit-trail-api/internal/protection"
	"github.com/noah-isme/audit-trail-api/internal/repository"
	"github.com/noah-isme/audit-trail-api/internal/service"
	"github.com/noah-isme/audit-trail-api/internal/sink"
	"github.com/noah-isme/audit-trail-api/pkg/cache"
	"github.com/noah-isme/audit-trail-api/pkg/config"
	"github.com/noah-isme/audit-trail-api/pkg/database"
	"github.com/noah-isme/audit-trail-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/audit-trail-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/audit-trail-api/pkg/middleware/requestid"
	"github.com/noah-isme/audit-trail-api/pkg/storage"
)

// @title Audit Trail API
// @version 1.0.0
// @description GDPR-aware audit logging service with pluggable sinks, pseudonymization and asynchronous exports.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	l, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		l.Fatal("connect postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		l.Warn("redis unavailable, query cache disabled", zap.Error(err))
		redisClient = nil
	}

	mappingRepo := repository.NewMappingRepository(db)
	policy := protection.NewPolicy(cfg.Protection, mappingRepo, l)
	hasher := protection.NewIntegrityHasher(cfg.Protection.HashAlgorithm)

	pgSink := sink.NewPostgresSink(db)
	sinks := []sink.Sink{pgSink}
	purgers := []sink.Purger{pgSink}
	if cfg.Archive.Enabled {
		var cipher *protection.Cipher
		if cfg.Archive.Encrypt {
			cipher, err = protection.NewCipher(cfg.Protection.EncryptionSecret)
			if err != nil {
				l.Fatal("init blob cipher", zap.Error(err))
			}
		}
		blob, err := sink.NewBlobSink(cfg.Archive.BlobDir, cfg.Archive.Compress, cipher, cfg.Archive.ArchivalRetention, l)
		if err != nil {
			l.Fatal("init blob sink", zap.Error(err))
		}
		sinks = append(sinks, blob)
		purgers = append(purgers, blob)
	}

	cacheService := service.NewCacheService(redisClient, l)
	defer func() { _ = cacheService.Close() }()
	metricsService := service.NewMetricsService()
	authService := service.NewAuthService(cfg.JWT)

	auditService, err := service.NewAuditService(sinks, policy, hasher, cacheService, metricsService, cfg.Query, cfg.Archive, l)
	if err != nil {
		l.Fatal("assemble audit service", zap.Error(err))
	}

	exportStorage, err := storage.NewLocalStorage(cfg.Export.StorageDir)
	if err != nil {
		l.Fatal("init export storage", zap.Error(err))
	}
	exportService := service.NewExportService(
		repository.NewExportJobStore(),
		auditService,
		policy,
		exportStorage,
		metricsService,
		cfg.Export,
		l,
	)
	exportService.Start(ctx)
	defer exportService.Stop()

	archiveJob := service.NewArchiveJob(auditService, purgers, mappingRepo, cfg.Archive, l)
	archiveJob.Start(ctx)
	defer archiveJob.Stop()

	router := buildRouter(cfg, l, authService, metricsService, auditService, exportService, policy)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info("listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	l.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("shutdown", zap.Error(err))
	}
}

func buildRouter(
	cfg *config.Config,
	l *zap.Logger,
	authService *service.AuthService,
	metricsService *service.MetricsService,
	auditService *service.AuditService,
	exportService *service.ExportService,
	policy *protection.Policy,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(l))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	eventHandler := handler.NewEventHandler(auditService)
	exportHandler := handler.NewExportHandler(exportService)
	archiveHandler := handler.NewArchiveHandler(auditService, cfg.Archive.OperationalRetention)
	mappingHandler := handler.NewMappingHandler(policy)
	healthHandler := handler.NewHealthHandler(auditService)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authService))
	{
		events := api.Group("/events")
		events.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleComplianceOfficer, models.RoleAuditor))
		{
			events.POST("", eventHandler.Record)
			events.POST("/batch", eventHandler.RecordBatch)
			events.GET("", eventHandler.List)
			events.GET("/count", eventHandler.Count)
			events.GET("/statistics", eventHandler.Statistics)
		}

		admin := api.Group("")
		admin.Use(middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/archive", archiveHandler.Archive)
			admin.GET("/mappings/:pseudonym", mappingHandler.Reveal)
		}

		exports := api.Group("/exports")
		exports.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleComplianceOfficer))
		{
			exports.POST("", exportHandler.Create)
			exports.GET("/:id", exportHandler.Get)
			exports.GET("/:id/download", exportHandler.Download)
			exports.POST("/:id/cancel", exportHandler.Cancel)
		}
	}

	return r
}
