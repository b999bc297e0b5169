package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abilsmall/marketplace_backend/config"
	"github.com/abilsmall/marketplace_backend/middleware"
	"github.com/abilsmall/marketplace_backend/routes"
	"github.com/abilsmall/marketplace_backend/services"
	"github.com/abilsmall/marketplace_backend/utils"
	"github.com/abilsmall/marketplace_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase (push notifications, best effort)
	config.InitFirebase()

	// Connect to Redis
	config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.ActivityTracker(client))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Marketplace backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Register routes
	routes.RegisterAuthRoutes(e, client, config.RedisClient)
	routes.RegisterShopRoutes(e, client)
	routes.RegisterPaymentRoutes(e, client, config.RedisClient, wsHub)
	routes.RegisterPayoutRoutes(e, client)
	routes.RegisterReferralRoutes(e, client)
	routes.RegisterAdminRoutes(e, client, wsHub)

	// WebSocket endpoint; clients authenticate after connecting
	e.GET("/api/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(c, wsHub, primitive.NilObjectID)
	})

	// Reconcile OPay payments whose webhook never arrived
	reconciler := services.NewReconciler(client)
	go reconciler.Run(context.Background(), 10*time.Minute, time.Hour)

	// Ensure upload directories exist
	if err := utils.InitializeStorage(); err != nil {
		log.Printf("Warning: failed to prepare upload directories: %v", err)
	}
	e.Static("/uploads", "uploads")

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
