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
	"github.com/abilsmall/marketplace_backend/utils"
)

// ReferralController exposes the user side of the token economy: wallet
// balance, invite history and withdrawal requests.
type ReferralController struct {
	DB       *mongo.Client
	logger   *log.Logger
	referral *services.ReferralService
}

func NewReferralController(db *mongo.Client) *ReferralController {
	return &ReferralController{
		DB:       db,
		logger:   log.New(os.Stdout, "[REFERRAL] ", log.LstdFlags),
		referral: services.NewReferralService(db),
	}
}

// GetWallet returns the caller's referral code, token balance and the
// conversion constants the client needs to render a withdrawal form.
func (rc *ReferralController) GetWallet(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	var user models.User
	if err := rc.DB.Database(dbName()).Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	wallet, err := rc.referral.Wallet(ctx, userID)
	if err != nil {
		rc.logger.Printf("Failed to load referral wallet: %v", err)
		return serviceError(c, err, "Failed to load referral wallet")
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral wallet retrieved",
		Data: map[string]interface{}{
			"referralCode": user.ReferralCode,
			"tokenBalance": wallet.TokenBalance,
			"totalEarned":  wallet.TotalEarned,
			"tokenValue":   utils.ReferralTokenValue,
			"minTokens":    utils.ReferralMinTokens,
		},
	})
}

// ListReferrals returns who the caller has successfully invited.
func (rc *ReferralController) ListReferrals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(100)
	cursor, err := rc.DB.Database(dbName()).Collection("referrals").Find(ctx, bson.M{"referrerId": userID}, opts)
	if err != nil {
		rc.logger.Printf("Failed to list referrals: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load referrals",
		})
	}
	var referrals []models.Referral
	if err := cursor.All(ctx, &referrals); err != nil {
		rc.logger.Printf("Failed to decode referrals: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load referrals",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referrals retrieved",
		Data:    referrals,
	})
}

// RequestWithdrawal converts the caller's whole token balance into a pending
// cash withdrawal. The tokens leave the wallet immediately.
func (rc *ReferralController) RequestWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	withdrawal, err := rc.referral.RequestWithdrawal(ctx, userID)
	if err != nil {
		rc.logger.Printf("Withdrawal request failed for %s: %v", userID.Hex(), err)
		return serviceError(c, err, "Failed to create withdrawal request")
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Withdrawal requested",
		Data:    withdrawal,
	})
}

// ListWithdrawals returns the caller's withdrawal history.
func (rc *ReferralController) ListWithdrawals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(50)
	cursor, err := rc.DB.Database(dbName()).Collection("referral_withdrawals").Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		rc.logger.Printf("Failed to list withdrawals: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load withdrawals",
		})
	}
	var withdrawals []models.ReferralWithdrawalRequest
	if err := cursor.All(ctx, &withdrawals); err != nil {
		rc.logger.Printf("Failed to decode withdrawals: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load withdrawals",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawals retrieved",
		Data:    withdrawals,
	})
}
