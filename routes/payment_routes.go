package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/controllers"
	"github.com/abilsmall/marketplace_backend/middleware"
	"github.com/abilsmall/marketplace_backend/websocket"
)

// RegisterPaymentRoutes sets up payment initiation, gateway confirmations and
// the bank-transfer submission route. Gateway callbacks are public by nature;
// the OPay webhook authenticates with its payload signature instead of a JWT.
func RegisterPaymentRoutes(e *echo.Echo, db *mongo.Client, redisClient *redis.Client, hub *websocket.Hub) {
	paymentController := controllers.NewPaymentController(db, redisClient, hub)

	payments := e.Group("/api/payments", middleware.JWTMiddleware())
	payments.POST("/initiate", paymentController.InitiatePayment)
	payments.POST("/bank-transfer", paymentController.SubmitBankTransfer)

	// Gateway-facing, no JWT
	e.GET("/api/payments/verify/paystack", paymentController.VerifyPaystack)
	e.GET("/api/payments/verify/flutterwave", paymentController.VerifyFlutterwave)
	e.POST("/api/payments/callback/opay", paymentController.OpayCallback)
}
