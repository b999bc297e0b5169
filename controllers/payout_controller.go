package controllers

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/services"
)

// PayoutController exposes the manager side of the payout workflow. Admin
// decisions live in AdminController.
type PayoutController struct {
	DB     *mongo.Client
	logger *log.Logger
	payout *services.PayoutService
}

func NewPayoutController(db *mongo.Client) *PayoutController {
	return &PayoutController{
		DB:     db,
		logger: log.New(os.Stdout, "[PAYOUT] ", log.LstdFlags),
		payout: services.NewPayoutService(db),
	}
}

// RequestPayout raises a withdrawal for the manager's company. The amount is
// not checked against the balance here; that happens when an admin decides.
func (pc *PayoutController) RequestPayout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	var req models.PayoutRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	var manager models.User
	if err := pc.DB.Database(dbName()).Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&manager); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}
	if manager.CompanyID == nil {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only company managers can request payouts",
		})
	}

	payout, err := pc.payout.Request(ctx, userID, *manager.CompanyID, req.Amount)
	if err != nil {
		pc.logger.Printf("Payout request failed for manager %s: %v", userID.Hex(), err)
		return serviceError(c, err, "Failed to create payout request")
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Payout request created",
		Data:    payout,
	})
}

// ListPayouts returns the payout requests of the manager's company.
func (pc *PayoutController) ListPayouts(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	db := pc.DB.Database(dbName())

	var manager models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&manager); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}
	if manager.CompanyID == nil {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only company managers can list payouts",
		})
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(50)
	cursor, err := db.Collection("payout_requests").Find(ctx, bson.M{"companyId": *manager.CompanyID}, opts)
	if err != nil {
		pc.logger.Printf("Failed to list payouts: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load payout requests",
		})
	}
	var payouts []models.PayoutRequest
	if err := cursor.All(ctx, &payouts); err != nil {
		pc.logger.Printf("Failed to decode payouts: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load payout requests",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout requests retrieved",
		Data:    payouts,
	})
}

// CompanyBalance returns the live wallet balance of the manager's company.
func (pc *PayoutController) CompanyBalance(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	var manager models.User
	if err := pc.DB.Database(dbName()).Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&manager); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}
	if manager.CompanyID == nil {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only company managers have a company balance",
		})
	}

	balance, err := services.NewLedgerService(pc.DB).CompanyBalance(ctx, *manager.CompanyID)
	if err != nil {
		pc.logger.Printf("Failed to load company balance: %v", err)
		return serviceError(c, err, "Failed to load balance")
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Balance retrieved",
		Data: map[string]interface{}{
			"companyId": manager.CompanyID.Hex(),
			"balance":   balance,
		},
	})
}

// CompanyActivities returns the activity feed of the manager's company,
// newest first.
func (pc *PayoutController) CompanyActivities(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	db := pc.DB.Database(dbName())

	var manager models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&manager); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}
	if manager.CompanyID == nil {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only company managers can view company activity",
		})
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(100)
	cursor, err := db.Collection("company_activities").Find(ctx, bson.M{"companyId": *manager.CompanyID}, opts)
	if err != nil {
		pc.logger.Printf("Failed to list company activities: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load activities",
		})
	}
	var activities []models.CompanyActivity
	if err := cursor.All(ctx, &activities); err != nil {
		pc.logger.Printf("Failed to decode company activities: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load activities",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Activities retrieved",
		Data:    activities,
	})
}
