package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/controllers"
	"github.com/abilsmall/marketplace_backend/middleware"
	"github.com/abilsmall/marketplace_backend/models"
)

// RegisterPayoutRoutes sets up the manager-side payout routes
func RegisterPayoutRoutes(e *echo.Echo, db *mongo.Client) {
	payoutController := controllers.NewPayoutController(db)

	payouts := e.Group("/api/payouts", middleware.JWTMiddleware(), middleware.RequireRole(models.RoleManager))
	payouts.POST("", payoutController.RequestPayout)
	payouts.GET("", payoutController.ListPayouts)
	payouts.GET("/balance", payoutController.CompanyBalance)
	payouts.GET("/activities", payoutController.CompanyActivities)
}
