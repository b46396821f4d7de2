// Package main runs the highlight reel HTTP server with WebSocket notifications and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/highlightreel/backend/config"
	"github.com/highlightreel/backend/internal/auth"
	"github.com/highlightreel/backend/internal/clips"
	"github.com/highlightreel/backend/internal/middleware"
	"github.com/highlightreel/backend/internal/models"
	"github.com/highlightreel/backend/internal/pools"
	"github.com/highlightreel/backend/internal/realtime"
	"github.com/highlightreel/backend/pkg/database"
	"github.com/highlightreel/backend/pkg/queue"
	"github.com/highlightreel/backend/pkg/redis"
	"github.com/highlightreel/backend/pkg/response"
	"github.com/highlightreel/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{
		MaxConns:        int32(cfg.Database.MaxConns),
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	s3Client, err := storage.NewS3(ctx, storage.S3Config{
		Region:               cfg.AWS.Region,
		AccessKeyID:          cfg.AWS.AccessKeyID,
		SecretAccessKey:      cfg.AWS.SecretAccessKey,
		ClipsBucket:          cfg.AWS.ClipsBucket,
		PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
	}, logger)
	if err != nil {
		logger.Fatal("s3", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	defer hub.Close()
	jobQueue := queue.NewQueue(rdb.Client, cfg.Ingest.MaxRetries, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, cfg.Auth.AdminEmails, logger)

	// Pools and angles
	poolService := pools.NewService(pools.NewRepository(pool), logger)
	poolHandler := pools.NewHandler(poolService, logger)

	// Clips and feeds
	signer := clips.NewCachedSigner(s3Client, rdb, logger)
	clipService := clips.NewService(clips.NewRepository(pool), poolService, signer, clips.FeedOptions{
		DefaultPageSize:  cfg.Feed.DefaultPageSize,
		MaxPageSize:      cfg.Feed.MaxPageSize,
		FetchParallelism: cfg.Feed.FetchParallelism,
	}, logger)
	clipHandler := clips.NewHandler(clipService, s3Client, jobQueue, logger)
	clipWebhook := clips.NewWebhookHandler(jobQueue, cfg.Ingest.WebhookSecret, logger)

	origins := config.ParseOrigins(cfg.Server.CORSAllowedOrigins)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(origins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow)
	stopSweep := make(chan struct{})
	defer close(stopSweep)
	if limiter != nil {
		go limiter.RunSweeper(5*time.Minute, stopSweep)
	}

	// Auth (public)
	authGroup := router.Group("/auth")
	authGroup.Use(middleware.RateLimit(limiter))
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Browsing: anonymous viewers see public pools only
	browse := router.Group("")
	browse.Use(middleware.OptionalJWT(jwtService))
	{
		browse.GET("/pools", poolHandler.List)
		browse.GET("/pools/:id", pools.RequirePoolAccess(poolService), poolHandler.Get)
		browse.GET("/pools/:id/angles", pools.RequirePoolAccess(poolService), poolHandler.ListAngles)
		browse.GET("/pools/:id/highlights", clipHandler.HighlightFeed)
		browse.GET("/angles/:id/clips", clipHandler.AngleFeed)
		browse.GET("/clips/:id", clipHandler.Get)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/users/me", authHandler.Me)

		api.POST("/pools", middleware.RequireRole(models.RoleAdmin), poolHandler.Create)
		api.POST("/pools/:id/members", poolHandler.AddMember)
		api.POST("/pools/:id/angles", middleware.RequireRole(models.RoleAdmin), poolHandler.CreateAngle)

		api.POST("/pools/:id/clips", middleware.RequireRole(models.RoleAdmin), clipHandler.Register)
		api.POST("/pools/:id/clips/upload-url", middleware.RequireRole(models.RoleAdmin), clipHandler.UploadURL)
		api.POST("/pools/:id/clips/upload", middleware.RequireRole(models.RoleAdmin), clipHandler.Upload)
		api.DELETE("/clips/:id", middleware.RequireRole(models.RoleAdmin), clipHandler.Delete)
	}

	// Webhooks (no JWT; shared secret checked in handler)
	router.POST("/webhooks/clip-uploaded", middleware.RateLimit(limiter), clipWebhook.ClipUploaded)

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, jwtService, poolService, origins, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
