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
	"github.com/lgulliver/simpledrive/cmd/api-gateway/middleware"
	"github.com/lgulliver/simpledrive/internal/auth"
	"github.com/lgulliver/simpledrive/internal/blobs"
	"github.com/lgulliver/simpledrive/internal/common"
	"github.com/lgulliver/simpledrive/internal/metadata"
	"github.com/lgulliver/simpledrive/internal/storage"
	"github.com/lgulliver/simpledrive/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// routerDeps is everything the HTTP layer needs
type routerDeps struct {
	Blobs     BlobService
	Tokens    TokenIssuer
	Validator middleware.TokenValidator
	Stats     StatsProvider
	DB        Pinger
	Cache     Pinger
	Providers []string
}

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	cfg.Logging.SetupLogging()
	log.Info().Msg("Starting SimpleDrive API Gateway")

	// Initialize database
	db, err := common.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Redis is optional; tokens are always checked against the database
	var tokenCache auth.Cache
	var cachePinger Pinger
	if cfg.Redis.Enabled {
		cache, err := common.NewCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without token cache")
		} else {
			defer cache.Close()
			tokenCache = cache
			cachePinger = cache
		}
	}

	// Initialize storage
	selector, err := storage.NewSelector(&cfg.Storage, db.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage")
	}
	log.Info().
		Str("backend", selector.Default().Provider()).
		Strs("available", selector.Available()).
		Msg("Storage initialized")

	// Initialize services
	authService, err := auth.NewService(db, tokenCache, &cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth service")
	}
	metadataService := metadata.NewService(db.DB)
	blobService := blobs.NewService(selector, metadataService, blobs.NewValidator(cfg.Validation))

	router := setupRouter(routerDeps{
		Blobs:     blobService,
		Tokens:    authService,
		Validator: authService,
		Stats:     metadataService,
		DB:        db,
		Cache:     cachePinger,
		Providers: selector.Available(),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	} else {
		log.Info().Msg("Server shutdown complete")
	}
}

func setupRouter(deps routerDeps) *gin.Engine {
	// Set Gin mode based on log level; tests pick their own
	if gin.Mode() != gin.TestMode {
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/health", handleHealth(deps.DB, deps.Cache, deps.Providers))
	router.GET("/up", handleUp)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/tokens", handleIssueToken(deps.Tokens))

		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Validator))
		{
			protected.POST("/blobs", handleCreateBlob(deps.Blobs))
			protected.GET("/blobs/*id", handleGetBlob(deps.Blobs))
			protected.GET("/stats", handleStorageStats(deps.Stats))
		}
	}

	return router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
