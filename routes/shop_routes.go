package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/controllers"
	"github.com/abilsmall/marketplace_backend/middleware"
	"github.com/abilsmall/marketplace_backend/models"
)

// RegisterShopRoutes sets up catalog, cart and checkout routes
func RegisterShopRoutes(e *echo.Echo, db *mongo.Client) {
	shopController := controllers.NewShopController(db)

	// Public catalog
	e.GET("/api/products", shopController.ListProducts)
	e.GET("/api/products/:id", shopController.GetProduct)

	// Manager catalog management
	manage := e.Group("/api/products", middleware.JWTMiddleware(), middleware.RequireRole(models.RoleManager))
	manage.POST("", shopController.CreateProduct)
	manage.POST("/:id/image", shopController.UploadProductImage)

	// Buyer cart and orders
	cart := e.Group("/api/cart", middleware.JWTMiddleware())
	cart.GET("", shopController.GetCart)
	cart.POST("", shopController.AddToCart)
	cart.DELETE("", shopController.ClearCart)

	orders := e.Group("/api/orders", middleware.JWTMiddleware())
	orders.POST("/checkout", shopController.Checkout)
	orders.GET("", shopController.ListOrders)
	orders.GET("/:id", shopController.GetOrder)
}
