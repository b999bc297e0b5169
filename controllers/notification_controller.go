package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abilsmall/marketplace_backend/models"
)

// NotificationController serves stored in-app notifications and the user's
// wallet transaction history.
type NotificationController struct {
	DB     *mongo.Client
	logger *log.Logger
}

func NewNotificationController(db *mongo.Client) *NotificationController {
	return &NotificationController{
		DB:     db,
		logger: log.New(os.Stdout, "[NOTIFY] ", log.LstdFlags),
	}
}

// ListNotifications returns the caller's notifications, newest first.
func (nc *NotificationController) ListNotifications(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(100)
	cursor, err := nc.DB.Database(dbName()).Collection("notifications").Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		nc.logger.Printf("Failed to list notifications: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load notifications",
		})
	}
	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		nc.logger.Printf("Failed to decode notifications: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load notifications",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications retrieved",
		Data:    notifications,
	})
}

// MarkRead flags one notification as read.
func (nc *NotificationController) MarkRead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}
	notifID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification ID",
		})
	}

	res, err := nc.DB.Database(dbName()).Collection("notifications").UpdateOne(ctx,
		bson.M{"_id": notifID, "userId": userID},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		nc.logger.Printf("Failed to mark notification read: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update notification",
		})
	}
	if res.MatchedCount == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Notification not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notification marked read",
	})
}

// ListWalletTransactions returns the caller's wallet audit trail.
func (nc *NotificationController) ListWalletTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(100)
	cursor, err := nc.DB.Database(dbName()).Collection("wallet_transactions").Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		nc.logger.Printf("Failed to list wallet transactions: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load transactions",
		})
	}
	var transactions []models.WalletTransaction
	if err := cursor.All(ctx, &transactions); err != nil {
		nc.logger.Printf("Failed to decode wallet transactions: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load transactions",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transactions retrieved",
		Data:    transactions,
	})
}
