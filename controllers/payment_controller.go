package controllers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/services"
	"github.com/abilsmall/marketplace_backend/utils"
	"github.com/abilsmall/marketplace_backend/websocket"
)

// PaymentController runs the payment lifecycle: initiating charges with the
// configured gateways, handling their confirmations, and triggering
// settlement. Settlement itself is delegated to the settlement service; this
// layer only decides whether a confirmation is trustworthy.
type PaymentController struct {
	DB          *mongo.Client
	Redis       *redis.Client
	Hub         *websocket.Hub
	logger      *log.Logger
	settlement  *services.SettlementService
	paystack    *services.PaystackService
	flutterwave *services.FlutterwaveService
	opay        *services.OpayService
}

func NewPaymentController(db *mongo.Client, redisClient *redis.Client, hub *websocket.Hub) *PaymentController {
	return &PaymentController{
		DB:          db,
		Redis:       redisClient,
		Hub:         hub,
		logger:      log.New(os.Stdout, "[PAYMENT] ", log.LstdFlags),
		settlement:  services.NewSettlementService(db),
		paystack:    services.NewPaystackService(),
		flutterwave: services.NewFlutterwaveService(),
		opay:        services.NewOpayService(),
	}
}

type initiatePaymentRequest struct {
	OrderID  string `json:"orderId" validate:"required"`
	Provider string `json:"provider" validate:"required"`
}

// InitiatePayment opens a charge with the chosen gateway and returns whatever
// the buyer needs to complete it (a redirect URL or a QR code). The payment
// row is written as "initiated" first and only promoted to "pending" after
// the gateway accepted the charge, so an initiate that dies midway never
// leaves a pending row behind.
func (pc *PaymentController) InitiatePayment(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	var req initiatePaymentRequest
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

	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid order ID",
		})
	}

	db := pc.DB.Database(dbName())

	var order models.Order
	if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID, "buyerId": userID}).Decode(&order); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Order not found",
		})
	}
	if order.Settled || order.Status == models.OrderPaid {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Order is already paid",
		})
	}
	if order.Status != models.OrderPending && order.Status != models.OrderPaymentFailed {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Order is not payable in its current state",
		})
	}

	var buyer models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&buyer); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found",
		})
	}

	reference := uuid.New().String()
	payment := models.Payment{
		ID:        primitive.NewObjectID(),
		OrderID:   order.ID,
		CompanyID: order.CompanyID,
		Amount:    order.TotalAmount,
		Provider:  req.Provider,
		Reference: reference,
		Status:    models.PaymentInitiated,
		CreatedAt: time.Now(),
	}

	baseURL := os.Getenv("APP_BASE_URL")

	var data map[string]interface{}
	switch req.Provider {
	case models.ProviderPaystack:
		callbackURL := baseURL + "/api/payments/verify/paystack"
		if _, err := db.Collection("payments").InsertOne(ctx, payment); err != nil {
			return pc.paymentInsertError(c, err)
		}
		authURL, err := pc.paystack.InitializeTransaction(buyer.Email, order.TotalAmount, reference, callbackURL)
		if err != nil {
			pc.logger.Printf("Paystack initialize failed for order %s: %v", order.ID.Hex(), err)
			return c.JSON(http.StatusBadGateway, models.Response{
				Status:  http.StatusBadGateway,
				Message: "Payment gateway unavailable, try again",
			})
		}
		data = map[string]interface{}{"authorizationUrl": authURL, "reference": reference}

	case models.ProviderFlutterwave:
		redirectURL := baseURL + "/api/payments/verify/flutterwave"
		if _, err := db.Collection("payments").InsertOne(ctx, payment); err != nil {
			return pc.paymentInsertError(c, err)
		}
		link, err := pc.flutterwave.CreatePayment(reference, order.TotalAmount,
			os.Getenv("PAYMENT_CURRENCY"), redirectURL, buyer.Email, buyer.Username)
		if err != nil {
			pc.logger.Printf("Flutterwave create failed for order %s: %v", order.ID.Hex(), err)
			return c.JSON(http.StatusBadGateway, models.Response{
				Status:  http.StatusBadGateway,
				Message: "Payment gateway unavailable, try again",
			})
		}
		data = map[string]interface{}{"paymentLink": link, "reference": reference}

	case models.ProviderOpay:
		if _, err := db.Collection("payments").InsertOne(ctx, payment); err != nil {
			return pc.paymentInsertError(c, err)
		}
		session, err := pc.opay.CreateCashier(reference, order.TotalAmount,
			os.Getenv("PAYMENT_CURRENCY"), os.Getenv("OPAY_COUNTRY"),
			baseURL+"/api/payments/callback/opay",
			baseURL+"/api/payments/return/opay",
			baseURL+"/api/payments/cancel/opay",
			fmt.Sprintf("Order %s", order.ID.Hex()))
		if err != nil {
			pc.logger.Printf("OPay cashier create failed for order %s: %v", order.ID.Hex(), err)
			return c.JSON(http.StatusBadGateway, models.Response{
				Status:  http.StatusBadGateway,
				Message: "Payment gateway unavailable, try again",
			})
		}
		if session.OrderNo != "" {
			_, _ = db.Collection("payments").UpdateOne(ctx,
				bson.M{"_id": payment.ID},
				bson.M{"$set": bson.M{"providerOrderNo": session.OrderNo}},
			)
		}
		data = map[string]interface{}{"reference": reference}
		if session.CashierURL != "" {
			data["cashierUrl"] = session.CashierURL
		}
		if session.QRCodeDataURI != "" {
			data["qrCode"] = session.QRCodeDataURI
		}

	default:
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Unknown payment provider",
		})
	}

	// Gateway accepted the charge, promote the row.
	if _, err := db.Collection("payments").UpdateOne(ctx,
		bson.M{"_id": payment.ID},
		bson.M{"$set": bson.M{"status": models.PaymentPending}},
	); err != nil {
		pc.logger.Printf("Failed to promote payment %s to pending: %v", payment.ID.Hex(), err)
	}
	if _, err := db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": order.ID},
		bson.M{"$set": bson.M{"paymentReference": reference}},
	); err != nil {
		pc.logger.Printf("Failed to store payment reference on order %s: %v", order.ID.Hex(), err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment initiated",
		Data:    data,
	})
}

func (pc *PaymentController) paymentInsertError(c echo.Context, err error) error {
	pc.logger.Printf("Failed to create payment: %v", err)
	return c.JSON(http.StatusInternalServerError, models.Response{
		Status:  http.StatusInternalServerError,
		Message: "Failed to initiate payment",
	})
}

// confirmPayment runs the shared trust-then-settle path. The verified amount
// must cover the recorded charge; a gateway that confirms less than the order
// total does not settle.
func (pc *PaymentController) confirmPayment(ctx context.Context, payment models.Payment, verifiedAmount float64) (*services.SettlementResult, error) {
	if verifiedAmount+0.01 < payment.Amount {
		return nil, fmt.Errorf("verified amount %.2f below charge %.2f: %w",
			verifiedAmount, payment.Amount, services.ErrValidation)
	}
	return pc.settlement.Settle(ctx, payment.OrderID, &payment.ID)
}

func (pc *PaymentController) notifySettled(payment models.Payment, result *services.SettlementResult) {
	if result.AlreadySettled {
		return
	}

	bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var order models.Order
	if err := pc.DB.Database(dbName()).Collection("orders").FindOne(bg, bson.M{"_id": payment.OrderID}).Decode(&order); err != nil {
		pc.logger.Printf("Failed to load order %s for notification: %v", payment.OrderID.Hex(), err)
		return
	}

	if err := pc.Hub.NotifyPaymentResult(order.BuyerID, true, map[string]interface{}{
		"orderId": order.ID.Hex(),
		"amount":  order.TotalAmount,
	}); err != nil {
		pc.logger.Printf("Websocket notify failed for buyer %s: %v", order.BuyerID.Hex(), err)
	}
	utils.NotifyUser(pc.DB, order.BuyerID, "Payment received",
		fmt.Sprintf("Your payment of %.2f for order %s was received", order.TotalAmount, order.ID.Hex()),
		websocket.NotificationTypePaymentSuccess, map[string]interface{}{"orderId": order.ID.Hex()})
	utils.LogActivity(pc.DB, order.CompanyID, models.ActivityPaymentSuccess,
		fmt.Sprintf("Payment of %.2f received for order %s via %s", order.TotalAmount, order.ID.Hex(), payment.Provider))
}

// VerifyPaystack handles the buyer's return from the Paystack checkout. The
// reference in the redirect is only a hint; the gateway is queried directly
// before anything settles.
func (pc *PaymentController) VerifyPaystack(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reference := c.QueryParam("reference")
	if reference == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing reference",
		})
	}

	payment, err := pc.findPayment(ctx, models.ProviderPaystack, reference)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Unknown payment reference",
		})
	}

	paid, amount, err := pc.paystack.VerifyTransaction(reference)
	if err != nil {
		pc.logger.Printf("Paystack verify failed for %s: %v", reference, err)
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Could not verify payment, try again",
		})
	}
	if !paid {
		if err := pc.settlement.MarkFailed(ctx, payment.OrderID, &payment.ID); err != nil {
			pc.logger.Printf("Failed to mark payment %s failed: %v", payment.ID.Hex(), err)
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Payment was not completed",
		})
	}

	result, err := pc.confirmPayment(ctx, *payment, amount)
	if err != nil {
		pc.logger.Printf("Settlement failed for payment %s: %v", payment.ID.Hex(), err)
		return serviceError(c, err, "Failed to settle payment")
	}
	go pc.notifySettled(*payment, result)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment verified",
		Data:    result,
	})
}

// VerifyFlutterwave handles the buyer's return from the Flutterwave page.
func (pc *PaymentController) VerifyFlutterwave(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	transactionID := c.QueryParam("transaction_id")
	if transactionID == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing transaction_id",
		})
	}

	paid, amount, txRef, err := pc.flutterwave.VerifyTransaction(transactionID)
	if err != nil {
		pc.logger.Printf("Flutterwave verify failed for %s: %v", transactionID, err)
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Could not verify payment, try again",
		})
	}

	payment, err := pc.findPayment(ctx, models.ProviderFlutterwave, txRef)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Unknown payment reference",
		})
	}

	if !paid {
		if err := pc.settlement.MarkFailed(ctx, payment.OrderID, &payment.ID); err != nil {
			pc.logger.Printf("Failed to mark payment %s failed: %v", payment.ID.Hex(), err)
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Payment was not completed",
		})
	}

	result, err := pc.confirmPayment(ctx, *payment, amount)
	if err != nil {
		pc.logger.Printf("Settlement failed for payment %s: %v", payment.ID.Hex(), err)
		return serviceError(c, err, "Failed to settle payment")
	}
	go pc.notifySettled(*payment, result)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Payment verified",
		Data:    result,
	})
}

// OpayCallback is the asynchronous webhook. The signature check is the trust
// boundary: a payload that does not verify is rejected with 400 and has no
// effect. Verified duplicates are acknowledged without re-settling.
func (pc *PaymentController) OpayCallback(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var callback models.OpayCallback
	if err := c.Bind(&callback); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid callback body",
		})
	}

	if err := pc.opay.VerifyCallback(callback); err != nil {
		pc.logger.Printf("OPay callback rejected: %v", err)
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Signature verification failed",
		})
	}

	reference, _ := callback.Payload["reference"].(string)
	status, _ := callback.Payload["status"].(string)
	if reference == "" || status == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Callback payload missing reference or status",
		})
	}

	// Fast replay dedupe. The key is recorded only after settlement commits,
	// so a transient settle failure never swallows the gateway's retry.
	// Authoritative dedupe is the settled flag.
	if status == "SUCCESS" && pc.callbackSeen(ctx, reference) {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Callback already processed",
		})
	}

	payment, err := pc.findPayment(ctx, models.ProviderOpay, reference)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Unknown payment reference",
		})
	}

	switch status {
	case "SUCCESS":
		amount := payment.Amount
		if raw, ok := callback.Payload["amount"].(float64); ok {
			amount = raw / 100.0
		}
		result, err := pc.confirmPayment(ctx, *payment, amount)
		if err != nil {
			pc.logger.Printf("Settlement failed for payment %s: %v", payment.ID.Hex(), err)
			return serviceError(c, err, "Failed to settle payment")
		}
		pc.markCallbackSeen(ctx, reference)
		go pc.notifySettled(*payment, result)
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Payment settled",
		})

	case "FAIL", "CLOSE":
		if err := pc.settlement.MarkFailed(ctx, payment.OrderID, &payment.ID); err != nil {
			pc.logger.Printf("Failed to mark payment %s failed: %v", payment.ID.Hex(), err)
		}
		var order models.Order
		if err := pc.DB.Database(dbName()).Collection("orders").FindOne(ctx, bson.M{"_id": payment.OrderID}).Decode(&order); err == nil {
			if err := pc.Hub.NotifyPaymentResult(order.BuyerID, false, map[string]interface{}{
				"orderId": order.ID.Hex(),
			}); err != nil {
				pc.logger.Printf("Websocket notify failed for buyer %s: %v", order.BuyerID.Hex(), err)
			}
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Payment failure recorded",
		})

	default:
		// INITIAL / PENDING keep the payment pending.
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Callback acknowledged",
		})
	}
}

// SubmitBankTransfer records a manual payment claim with its proof image. The
// order waits in pending_verification until an admin decides.
func (pc *PaymentController) SubmitBankTransfer(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userID, ok := authedUserID(c)
	if !ok {
		return nil
	}

	orderID, err := primitive.ObjectIDFromHex(c.FormValue("orderId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid order ID",
		})
	}

	db := pc.DB.Database(dbName())

	var order models.Order
	if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID, "buyerId": userID}).Decode(&order); err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Order not found",
		})
	}
	if order.Settled || order.Status == models.OrderPaid {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Order is already paid",
		})
	}
	if order.Status == models.OrderPendingVerification {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "A transfer for this order is already under review",
		})
	}

	proofFile, err := c.FormFile("proof")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Proof image is required",
		})
	}
	if !utils.IsValidImageFile(proofFile) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Proof must be a JPEG or PNG image",
		})
	}
	proofPath, err := utils.SaveProofImage(proofFile)
	if err != nil {
		pc.logger.Printf("Failed to save proof image: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to store proof image",
		})
	}

	transfer := models.BankTransfer{
		ID:        primitive.NewObjectID(),
		OrderID:   order.ID,
		BuyerID:   userID,
		CompanyID: order.CompanyID,
		Amount:    order.TotalAmount,
		ProofPath: proofPath,
		Status:    models.BankTransferPending,
		CreatedAt: time.Now(),
	}
	if _, err := db.Collection("bank_transfers").InsertOne(ctx, transfer); err != nil {
		pc.logger.Printf("Failed to create bank transfer: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to record transfer",
		})
	}
	if _, err := db.Collection("orders").UpdateOne(ctx,
		bson.M{"_id": order.ID},
		bson.M{"$set": bson.M{"status": models.OrderPendingVerification}},
	); err != nil {
		pc.logger.Printf("Failed to mark order %s pending verification: %v", order.ID.Hex(), err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Transfer submitted, awaiting verification",
		Data:    transfer,
	})
}

func (pc *PaymentController) findPayment(ctx context.Context, provider, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := pc.DB.Database(dbName()).Collection("payments").
		FindOne(ctx, bson.M{"provider": provider, "reference": reference}).
		Decode(&payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// callbackSeen reports whether a success callback for this reference was
// already fully processed. Checking never writes the key; only a committed
// settlement does, via markCallbackSeen.
func (pc *PaymentController) callbackSeen(ctx context.Context, reference string) bool {
	if pc.Redis == nil {
		return false
	}
	n, err := pc.Redis.Exists(ctx, "opay_cb:"+reference).Result()
	return err == nil && n > 0
}

func (pc *PaymentController) markCallbackSeen(ctx context.Context, reference string) {
	if pc.Redis == nil {
		return
	}
	if err := pc.Redis.Set(ctx, "opay_cb:"+reference, 1, 24*time.Hour).Err(); err != nil {
		pc.logger.Printf("Failed to record callback dedupe key for %s: %v", reference, err)
	}
}
