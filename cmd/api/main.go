package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quicksell/internal/cache"
	"quicksell/internal/config"
	"quicksell/internal/database"
	"quicksell/internal/logger"
	"quicksell/internal/metrics"
	"quicksell/internal/services"
	"quicksell/internal/storage"
	"quicksell/internal/validator"

	"github.com/redis/go-redis/v9"
)

// @title           Quicksell API
// @version         1.0
// @description     Quicksell is a classifieds marketplace: sellers publish listings under a shared category tree, buyers search them and message the seller.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey AdminKey
// @in header
// @name X-Admin-Key

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	collector := metrics.NewCollector("quicksell")
	validator.Register()

	// Redis is optional; without it the category tree is read from the database every time.
	var redisClient *redis.Client
	if appConfig.RedisAddr != "" {
		redisClient, err = cache.Connect(appConfig.RedisAddr, appConfig.RedisPassword)
		if err != nil {
			log.Warnf("Redis unavailable, category cache disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	treeCache := cache.NewCategoryCache(redisClient, appConfig.CategoryCacheTTL, collector)

	// Photo storage is optional as well.
	var photos services.PhotoStorer
	s3Client, err := storage.New(appConfig.S3Endpoint, appConfig.S3Region, appConfig.S3AccessKey,
		appConfig.S3SecretKey, appConfig.S3Bucket, appConfig.S3PublicURL)
	if err != nil {
		return fmt.Errorf("failed to configure photo storage: %w", err)
	}
	if s3Client != nil {
		photos = s3Client
	} else {
		log.Warn("S3 not configured, photo uploads disabled")
	}

	// Initialize services
	db := dbManager.DB()
	locationService := services.NewLocationService()
	categoryService := services.NewCategoryService(db, treeCache, collector)
	if _, err := categoryService.EnsureSentinel(); err != nil {
		return fmt.Errorf("failed to ensure uncategorized category: %w", err)
	}

	router := newRouter(&app{
		config:     appConfig,
		metrics:    collector,
		users:      services.NewUserService(db, locationService),
		categories: categoryService,
		listings: services.NewListingService(db, categoryService, locationService, photos, collector, services.ListingOptions{
			PageSize:   appConfig.PageSize,
			TTL:        appConfig.ListingTTL,
			DeleteMode: appConfig.ListingDeleteMode,
		}),
		chats: services.NewChatService(db),
		audit: services.NewAuditService(db),
		ping:  dbManager.Ping,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Quicksell backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
