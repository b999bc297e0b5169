package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/controllers"
	"github.com/abilsmall/marketplace_backend/middleware"
)

// RegisterReferralRoutes sets up the user-side referral routes
func RegisterReferralRoutes(e *echo.Echo, db *mongo.Client) {
	referralController := controllers.NewReferralController(db)
	notificationController := controllers.NewNotificationController(db)

	referrals := e.Group("/api/referrals", middleware.JWTMiddleware())
	referrals.GET("/wallet", referralController.GetWallet)
	referrals.GET("", referralController.ListReferrals)
	referrals.POST("/withdrawals", referralController.RequestWithdrawal)
	referrals.GET("/withdrawals", referralController.ListWithdrawals)

	notifications := e.Group("/api/notifications", middleware.JWTMiddleware())
	notifications.GET("", notificationController.ListNotifications)
	notifications.PUT("/:id/read", notificationController.MarkRead)

	e.GET("/api/wallet/transactions", notificationController.ListWalletTransactions, middleware.JWTMiddleware())
}
