package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/newsroom-tools/codex-api/api/swagger"
	"github.com/newsroom-tools/codex-api/internal/handler"
	"github.com/newsroom-tools/codex-api/internal/middleware"
	"github.com/newsroom-tools/codex-api/internal/models"
	"github.com/newsroom-tools/codex-api/internal/repository"
	"github.com/newsroom-tools/codex-api/internal/service"
	"github.com/newsroom-tools/codex-api/pkg/cache"
	"github.com/newsroom-tools/codex-api/pkg/config"
	"github.com/newsroom-tools/codex-api/pkg/database"
	"github.com/newsroom-tools/codex-api/pkg/logger"
	corsmiddleware "github.com/newsroom-tools/codex-api/pkg/middleware/cors"
	reqidmiddleware "github.com/newsroom-tools/codex-api/pkg/middleware/requestid"
	"github.com/newsroom-tools/codex-api/pkg/storage"
)

// @title Codex Workspace API
// @version 1.0.0
// @description Content workspace with archive items and ordered groups
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var cacheSvc *service.CacheService
	metricsSvc := service.NewMetricsService()
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
	} else {
		defer redisClient.Close() //nolint:errcheck
		cacheRepo := repository.NewCacheRepository(redisClient)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Codex.StatsCacheTTL, logr, cfg.Codex.CacheEnabled)
	}

	localStorage, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	itemRepo := repository.NewItemRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "codex-api",
		Audience:           []string{"codex-workspace"},
	})
	itemSvc := service.NewItemService(itemRepo, localStorage, signer, cacheSvc, logr, service.ItemServiceConfig{
		MaxFileSize:     cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:    cfg.Uploads.AllowedMIMEs,
		APIPrefix:       cfg.APIPrefix,
		MaxListPageSize: cfg.Codex.MaxListPageSize,
	})
	userSvc := service.NewUserService(userRepo, logr)
	groupSvc := service.NewGroupService(itemRepo, cacheSvc, logr)
	viewSvc := service.NewGroupViewService(itemRepo, cacheSvc, cfg.Codex.StatsCacheTTL, cfg.Codex.ViewCacheTTL, logr)
	exportSvc := service.NewExportService(viewSvc, nil, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	itemHandler := handler.NewItemHandler(itemSvc)
	groupHandler := handler.NewGroupHandler(groupSvc, viewSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/users", userHandler.List)
		admin.PATCH("/users/:id/active", userHandler.SetActive)
	}

	codex := api.Group("/codex", middleware.JWT(authSvc))
	{
		codex.GET("/workspace", groupHandler.Workspace)

		codex.POST("/items", itemHandler.Create)
		codex.POST("/items/upload", itemHandler.Upload)
		codex.GET("/items", itemHandler.List)
		codex.GET("/items/:id", itemHandler.Get)
		codex.PATCH("/items/:id", itemHandler.Update)
		codex.DELETE("/items/:id", itemHandler.Delete)
		codex.GET("/items/:id/download", itemHandler.Download)
		codex.DELETE("/items/:id/group", groupHandler.RemoveItem)

		codex.POST("/groups", groupHandler.Create)
		codex.GET("/groups/:id", groupHandler.Get)
		codex.PATCH("/groups/:id", groupHandler.Update)
		codex.DELETE("/groups/:id", groupHandler.Delete)
		codex.GET("/groups/:id/items", groupHandler.ListItems)
		codex.POST("/groups/:id/items", groupHandler.AddItem)
		codex.GET("/groups/:id/stats", groupHandler.Stats)
		codex.GET("/groups/:id/next-part", groupHandler.NextPart)
		codex.GET("/groups/:id/export", groupHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
