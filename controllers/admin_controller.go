package controllers

import (
	"context"
	"fmt"
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
	"github.com/abilsmall/marketplace_backend/services"
	"github.com/abilsmall/marketplace_backend/utils"
	"github.com/abilsmall/marketplace_backend/websocket"
)

// AdminController hosts every admin decision surface: payout and withdrawal
// decisions, bank-transfer verification, refunds, direct company withdrawals
// and the activity feed.
type AdminController struct {
	DB         *mongo.Client
	Hub        *websocket.Hub
	logger     *log.Logger
	ledger     *services.LedgerService
	settlement *services.SettlementService
	payout     *services.PayoutService
	referral   *services.ReferralService
	opay       *services.OpayService
}

func NewAdminController(db *mongo.Client, hub *websocket.Hub) *AdminController {
	return &AdminController{
		DB:         db,
		Hub:        hub,
		logger:     log.New(os.Stdout, "[ADMIN] ", log.LstdFlags),
		ledger:     services.NewLedgerService(db),
		settlement: services.NewSettlementService(db),
		payout:     services.NewPayoutService(db),
		referral:   services.NewReferralService(db),
		opay:       services.NewOpayService(),
	}
}

func (ac *AdminController) notify(userID primitive.ObjectID, notifType, title, message string) {
	if err := ac.Hub.NotifyDecision(userID, notifType, message, nil); err != nil {
		ac.logger.Printf("Websocket notify failed for %s: %v", userID.Hex(), err)
	}
	utils.NotifyUser(ac.DB, userID, title, message, notifType, nil)
}

// ListPendingPayouts returns payout requests awaiting a decision.
func (ac *AdminController) ListPendingPayouts(c echo.Context) error {
	return ac.listPending(c, "payout_requests", &[]models.PayoutRequest{})
}

// ListPendingBankTransfers returns transfers awaiting verification.
func (ac *AdminController) ListPendingBankTransfers(c echo.Context) error {
	return ac.listPending(c, "bank_transfers", &[]models.BankTransfer{})
}

// ListPendingWithdrawals returns referral withdrawals awaiting a decision.
func (ac *AdminController) ListPendingWithdrawals(c echo.Context) error {
	return ac.listPending(c, "referral_withdrawals", &[]models.ReferralWithdrawalRequest{})
}

func (ac *AdminController) listPending(c echo.Context, collection string, out interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"createdAt": 1}).SetLimit(100)
	cursor, err := ac.DB.Database(dbName()).Collection(collection).Find(ctx, bson.M{"status": "pending"}, opts)
	if err != nil {
		ac.logger.Printf("Failed to list pending %s: %v", collection, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load pending requests",
		})
	}
	if err := cursor.All(ctx, out); err != nil {
		ac.logger.Printf("Failed to decode pending %s: %v", collection, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load pending requests",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Pending requests retrieved",
		Data:    out,
	})
}

// ApprovePayout debits the company wallet and approves the request. The
// balance is checked now, not when the request was made.
func (ac *AdminController) ApprovePayout(c echo.Context) error {
	return ac.decidePayout(c, true)
}

// RejectPayout declines the request without touching any wallet.
func (ac *AdminController) RejectPayout(c echo.Context) error {
	return ac.decidePayout(c, false)
}

func (ac *AdminController) decidePayout(c echo.Context, approve bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminID, ok := authedUserID(c)
	if !ok {
		return nil
	}
	payoutID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payout ID",
		})
	}

	var req models.DecisionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	var payout *models.PayoutRequest
	if approve {
		payout, err = ac.payout.Approve(ctx, payoutID, adminID, req.AdminNote)
	} else {
		payout, err = ac.payout.Reject(ctx, payoutID, adminID, req.AdminNote)
	}
	if err != nil {
		ac.logger.Printf("Payout decision failed for %s: %v", payoutID.Hex(), err)
		return serviceError(c, err, "Failed to decide payout")
	}

	verdict := "rejected"
	if approve {
		verdict = "approved"
	}
	go ac.notify(payout.ManagerID, websocket.NotificationTypePayoutDecision,
		"Payout "+verdict,
		fmt.Sprintf("Your payout request of %.2f was %s", payout.Amount, verdict))

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payout " + verdict,
		Data:    payout,
	})
}

// ApproveBankTransfer confirms a manual payment and settles its order. The
// admin's approval plays the role a gateway webhook plays for card payments.
func (ac *AdminController) ApproveBankTransfer(c echo.Context) error {
	return ac.decideBankTransfer(c, true)
}

// RejectBankTransfer declines the claim and marks the order failed.
func (ac *AdminController) RejectBankTransfer(c echo.Context) error {
	return ac.decideBankTransfer(c, false)
}

func (ac *AdminController) decideBankTransfer(c echo.Context, approve bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	adminID, ok := authedUserID(c)
	if !ok {
		return nil
	}
	transferID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid transfer ID",
		})
	}

	db := ac.DB.Database(dbName())
	transfers := db.Collection("bank_transfers")

	status := models.BankTransferRejected
	if approve {
		status = models.BankTransferApproved
	}
	res := transfers.FindOneAndUpdate(ctx,
		bson.M{"_id": transferID, "status": models.BankTransferPending},
		bson.M{"$set": bson.M{"status": status, "adminId": adminID, "processedAt": time.Now()}},
	)

	var transfer models.BankTransfer
	if err := res.Decode(&transfer); err != nil {
		if err == mongo.ErrNoDocuments {
			count, countErr := transfers.CountDocuments(ctx, bson.M{"_id": transferID})
			if countErr == nil && count > 0 {
				return c.JSON(http.StatusConflict, models.Response{
					Status:  http.StatusConflict,
					Message: "Transfer already decided",
				})
			}
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Transfer not found",
			})
		}
		ac.logger.Printf("Failed to decide transfer %s: %v", transferID.Hex(), err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to decide transfer",
		})
	}

	if approve {
		result, err := ac.settlement.Settle(ctx, transfer.OrderID, nil)
		if err != nil {
			ac.logger.Printf("Settlement failed after transfer approval %s: %v", transferID.Hex(), err)
			return serviceError(c, err, "Transfer approved but settlement failed")
		}
		utils.LogActivity(ac.DB, transfer.CompanyID, models.ActivityBankTransferApproved,
			fmt.Sprintf("Bank transfer of %.2f approved for order %s", transfer.Amount, transfer.OrderID.Hex()))
		go ac.notify(transfer.BuyerID, websocket.NotificationTypeTransferDecision,
			"Transfer approved",
			fmt.Sprintf("Your bank transfer for order %s was verified", transfer.OrderID.Hex()))
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Transfer approved and order settled",
			Data:    result,
		})
	}

	if err := ac.settlement.MarkFailed(ctx, transfer.OrderID, nil); err != nil {
		ac.logger.Printf("Failed to mark order %s failed: %v", transfer.OrderID.Hex(), err)
	}
	utils.LogActivity(ac.DB, transfer.CompanyID, models.ActivityBankTransferRejected,
		fmt.Sprintf("Bank transfer of %.2f rejected for order %s", transfer.Amount, transfer.OrderID.Hex()))
	go ac.notify(transfer.BuyerID, websocket.NotificationTypeTransferDecision,
		"Transfer rejected",
		fmt.Sprintf("Your bank transfer for order %s could not be verified", transfer.OrderID.Hex()))

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transfer rejected",
	})
}

// DecideReferralWithdrawal approves or rejects a token withdrawal. Rejection
// puts the tokens back.
func (ac *AdminController) DecideReferralWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminID, ok := authedUserID(c)
	if !ok {
		return nil
	}
	withdrawalID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal ID",
		})
	}
	approve := c.Param("decision") == "approve"
	if !approve && c.Param("decision") != "reject" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Decision must be approve or reject",
		})
	}

	withdrawal, err := ac.referral.DecideWithdrawal(ctx, withdrawalID, adminID, approve)
	if err != nil {
		ac.logger.Printf("Withdrawal decision failed for %s: %v", withdrawalID.Hex(), err)
		return serviceError(c, err, "Failed to decide withdrawal")
	}

	verdict := "rejected"
	if approve {
		verdict = "approved"
	}
	go ac.notify(withdrawal.UserID, websocket.NotificationTypeWithdrawalUpdated,
		"Withdrawal "+verdict,
		fmt.Sprintf("Your withdrawal of %d tokens (%.2f) was %s", withdrawal.Tokens, withdrawal.Amount, verdict))

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal " + verdict,
		Data:    withdrawal,
	})
}

// RefundOrder reverses a settled order against the company wallet and, for
// OPay payments, asks the gateway to return the funds.
func (ac *AdminController) RefundOrder(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid order ID",
		})
	}

	order, err := ac.settlement.Refund(ctx, orderID)
	if err != nil {
		ac.logger.Printf("Refund failed for order %s: %v", orderID.Hex(), err)
		return serviceError(c, err, "Failed to refund order")
	}

	// The gateway leg is best effort; the ledger reversal above is the source
	// of truth and a gateway failure is resolved manually.
	var payment models.Payment
	err = ac.DB.Database(dbName()).Collection("payments").
		FindOne(ctx, bson.M{"orderId": orderID, "status": models.PaymentRefunded}).
		Decode(&payment)
	if err == nil && payment.Provider == models.ProviderOpay {
		refundNo, refundErr := ac.opay.Refund(payment.Reference, payment.ProviderOrderNo,
			payment.Amount, os.Getenv("PAYMENT_CURRENCY"), "admin refund")
		if refundErr != nil {
			ac.logger.Printf("OPay refund call failed for %s: %v", payment.Reference, refundErr)
		} else {
			ac.logger.Printf("OPay refund %s accepted for %s", refundNo, payment.Reference)
		}
	}

	go ac.notify(order.BuyerID, websocket.NotificationTypePaymentFailed,
		"Order refunded",
		fmt.Sprintf("Order %s was refunded for %.2f", order.ID.Hex(), order.TotalAmount))

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Order refunded",
		Data:    order,
	})
}

type companyWithdrawRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Reason string  `json:"reason,omitempty"`
}

// WithdrawFromCompany debits a company wallet directly, with the same
// balance guard as payout approval.
func (ac *AdminController) WithdrawFromCompany(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	companyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid company ID",
		})
	}

	var req companyWithdrawRequest
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

	err = ac.ledger.WithTransaction(ctx, func(sc mongo.SessionContext) error {
		balance, err := ac.ledger.CompanyBalance(sc, companyID)
		if err != nil {
			return err
		}
		if balance < req.Amount {
			return fmt.Errorf("company balance %.2f below withdrawal %.2f: %w",
				balance, req.Amount, services.ErrInsufficientBalance)
		}

		entries := []services.LedgerEntry{{
			CompanyID:   &companyID,
			Amount:      -req.Amount,
			Description: "Admin withdrawal: " + req.Reason,
		}}
		activity := &models.CompanyActivity{
			CompanyID:   companyID,
			Action:      models.ActivityAdminWithdrawal,
			Description: fmt.Sprintf("Admin withdrew %.2f: %s", req.Amount, req.Reason),
			CreatedAt:   time.Now(),
		}
		return ac.ledger.ApplyTx(sc, entries, activity)
	})
	if err != nil {
		ac.logger.Printf("Company withdrawal failed for %s: %v", companyID.Hex(), err)
		return serviceError(c, err, "Failed to withdraw")
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal complete",
	})
}

// CompanyActivities returns a company's audit feed, newest first.
func (ac *AdminController) CompanyActivities(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	companyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid company ID",
		})
	}

	opts := options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(200)
	cursor, err := ac.DB.Database(dbName()).Collection("company_activities").Find(ctx, bson.M{"companyId": companyID}, opts)
	if err != nil {
		ac.logger.Printf("Failed to list activities: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load activities",
		})
	}
	var activities []models.CompanyActivity
	if err := cursor.All(ctx, &activities); err != nil {
		ac.logger.Printf("Failed to decode activities: %v", err)
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

// OpayPaymentStatus queries the gateway-side state of an OPay payment.
func (ac *AdminController) OpayPaymentStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	paymentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid payment ID",
		})
	}

	var payment models.Payment
	if err := ac.DB.Database(dbName()).Collection("payments").FindOne(ctx, bson.M{"_id": paymentID}).Decode(&payment); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Payment not found",
		})
	}
	if payment.Provider != models.ProviderOpay {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Not an OPay payment",
		})
	}

	status, err := ac.opay.QueryStatus(payment.Reference, payment.ProviderOrderNo)
	if err != nil {
		ac.logger.Printf("OPay status query failed for %s: %v", payment.Reference, err)
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Gateway status query failed",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Status retrieved",
		Data: map[string]interface{}{
			"reference":     payment.Reference,
			"localStatus":   payment.Status,
			"gatewayStatus": status,
		},
	})
}
