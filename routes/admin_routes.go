package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/controllers"
	"github.com/abilsmall/marketplace_backend/middleware"
	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/websocket"
)

// RegisterAdminRoutes sets up every admin decision surface
func RegisterAdminRoutes(e *echo.Echo, db *mongo.Client, hub *websocket.Hub) {
	adminController := controllers.NewAdminController(db, hub)

	admin := e.Group("/api/admin", middleware.JWTMiddleware(), middleware.RequireRole(models.RoleAdmin))

	admin.GET("/payouts/pending", adminController.ListPendingPayouts)
	admin.PUT("/payouts/:id/approve", adminController.ApprovePayout)
	admin.PUT("/payouts/:id/reject", adminController.RejectPayout)

	admin.GET("/bank-transfers/pending", adminController.ListPendingBankTransfers)
	admin.PUT("/bank-transfers/:id/approve", adminController.ApproveBankTransfer)
	admin.PUT("/bank-transfers/:id/reject", adminController.RejectBankTransfer)

	admin.GET("/referral-withdrawals/pending", adminController.ListPendingWithdrawals)
	admin.PUT("/referral-withdrawals/:id/:decision", adminController.DecideReferralWithdrawal)

	admin.POST("/orders/:id/refund", adminController.RefundOrder)
	admin.POST("/companies/:id/withdraw", adminController.WithdrawFromCompany)
	admin.GET("/companies/:id/activities", adminController.CompanyActivities)
	admin.GET("/payments/:id/opay-status", adminController.OpayPaymentStatus)
}
