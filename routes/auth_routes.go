package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/controllers"
	"github.com/abilsmall/marketplace_backend/middleware"
)

// RegisterAuthRoutes sets up authentication and account routes
func RegisterAuthRoutes(e *echo.Echo, db *mongo.Client, redisClient *redis.Client) {
	authController := controllers.NewAuthController(db, redisClient)

	// Public
	e.POST("/api/auth/signup", authController.Signup)
	e.POST("/api/auth/verify-otp", authController.VerifyOTP)
	e.POST("/api/auth/login", authController.Login)

	// Authenticated
	me := e.Group("/api/me", middleware.JWTMiddleware())
	me.GET("", authController.GetProfile)
	me.POST("/fcm-token", authController.RegisterFCMToken)
}
