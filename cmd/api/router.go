package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"quicksell/internal/config"
	_ "quicksell/internal/docs" // Import swagger docs
	"quicksell/internal/handlers"
	"quicksell/internal/metrics"
	"quicksell/internal/middleware"
	"quicksell/internal/services"
)

// app bundles what the router needs; tests build it over SQLite.
type app struct {
	config     *config.Config
	metrics    *metrics.Collector
	users      services.UserServicer
	categories services.CategoryServicer
	listings   services.ListingServicer
	chats      services.ChatServicer
	audit      services.AuditServicer

	// ping reports database health; nil skips the check.
	ping func(ctx context.Context) error
}

func newRouter(a *app) *gin.Engine {
	cfg := a.config

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(a.users)
	profileHandler := handlers.NewProfileHandler(a.users)
	categoryHandler := handlers.NewCategoryHandler(a.categories, a.audit)
	listingHandler := handlers.NewListingHandler(a.listings, a.audit, a.metrics, cfg.PublicBaseURL)
	chatHandler := handlers.NewChatHandler(a.chats, cfg.PageSize, cfg.PublicBaseURL)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.Metrics(a.metrics))
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.AdminKeyHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		if a.ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := a.ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	v1.GET("/info", categoryHandler.Info)
	v1.GET("/categories/:name/count", categoryHandler.CountListings)
	v1.GET("/listings", listingHandler.SearchListings)
	v1.GET("/listings/:id", middleware.OptionalAuthMiddleware(), listingHandler.GetListing)
	v1.GET("/profiles/:id", profileHandler.GetPublicProfile)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", profileHandler.GetProfile)
	protected.PATCH("/profile", profileHandler.UpdateProfile)

	// Listing routes
	listings := protected.Group("/listings")
	listings.POST("", listingHandler.CreateListing)
	listings.PATCH("/:id", listingHandler.UpdateListing)
	listings.DELETE("/:id", listingHandler.DeleteListing)
	listings.POST("/:id/photos", listingHandler.AddPhoto)

	// Chat routes
	chats := protected.Group("/chats")
	chats.POST("", chatHandler.StartChat)
	chats.GET("", chatHandler.GetChats)
	chats.GET("/:id/messages", chatHandler.GetMessages)
	chats.POST("/:id/messages", chatHandler.SendMessage)

	// Category maintenance
	admin := v1.Group("/categories")
	admin.Use(middleware.AdminAuthMiddleware(cfg.AdminAPIKey))
	admin.POST("", categoryHandler.CreateCategory)
	admin.POST("/import", categoryHandler.ImportTree)
	admin.POST("/rebuild", categoryHandler.RebuildTree)
	admin.DELETE("/:name", categoryHandler.DeleteCategory)

	return router
}
