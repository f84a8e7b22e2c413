package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/festify/festify/internal/config"
	"github.com/festify/festify/internal/database"
	"github.com/festify/festify/internal/monitoring"
	"github.com/festify/festify/internal/policy"
	"github.com/festify/festify/internal/redis"
	"github.com/festify/festify/internal/services/account"
	"github.com/festify/festify/internal/services/artist"
	"github.com/festify/festify/internal/services/event"
	"github.com/festify/festify/internal/services/schedule"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(cfg)
	if err := redisClient.Ping(context.Background()); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	rules := policy.Rules{}

	// Create services
	accountService := account.NewService(db, cfg, redisClient)
	eventService := event.NewService(db, cfg, redisClient, rules)
	artistService := artist.NewService(db, cfg, redisClient, rules)
	scheduleService := schedule.NewService(db)

	// Setup Gin router
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	accountService.SetupRoutes(r)
	eventService.SetupRoutes(r)
	artistService.SetupRoutes(r)
	scheduleService.SetupRoutes(r)

	r.GET("/metrics", monitoring.Handler())
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "festify",
		})
	})

	// Start server
	log.Printf("Festify server starting on port %s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
