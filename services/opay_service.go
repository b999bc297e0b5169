package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/abilsmall/marketplace_backend/models"
	"github.com/abilsmall/marketplace_backend/utils"
)

// OpayService handles interactions with the OPay international cashier API.
// Outbound create/status/refund calls authenticate with the public key;
// inbound callbacks carry an HMAC-SHA3-512 signature computed with the
// private key over the canonicalized payload.
type OpayService struct {
	baseURL    string
	publicKey  string
	privateKey string
	merchantID string
	isTesting  bool
}

// NewOpayService creates a new OPay service instance
func NewOpayService() *OpayService {
	opayEnv := os.Getenv("OPAY_ENV")
	isTesting := opayEnv == "testing"

	baseURL := "https://payapi.opaycheckout.com/api/v1/international"
	if isTesting {
		baseURL = "https://testpayapi.opaycheckout.com/api/v1/international"
	}

	publicKey := os.Getenv("OPAY_PUBLIC_KEY")
	privateKey := os.Getenv("OPAY_PRIVATE_KEY")
	merchantID := os.Getenv("OPAY_MERCHANT_ID")

	if publicKey == "" || privateKey == "" || merchantID == "" {
		log.Printf("WARNING: OPay credentials not fully configured:")
		if publicKey == "" {
			log.Printf("  - OPAY_PUBLIC_KEY is missing")
		}
		if privateKey == "" {
			log.Printf("  - OPAY_PRIVATE_KEY is missing")
		}
		if merchantID == "" {
			log.Printf("  - OPAY_MERCHANT_ID is missing")
		}
		log.Printf("Please set these environment variables for OPay payments to work")
		log.Printf("Set OPAY_ENV=testing to use the sandbox, or leave unset for production")
	}

	return &OpayService{
		baseURL:    baseURL,
		publicKey:  publicKey,
		privateKey: privateKey,
		merchantID: merchantID,
		isTesting:  isTesting,
	}
}

func (s *OpayService) makeRequest(endpoint string, payload interface{}, out interface{}) error {
	if s.publicKey == "" || s.merchantID == "" {
		return fmt.Errorf("missing OPay credentials. Please set OPAY_PUBLIC_KEY, OPAY_PRIVATE_KEY, and OPAY_MERCHANT_ID environment variables")
	}

	url := s.baseURL + endpoint

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.publicKey)
	req.Header.Set("MerchantId", s.merchantID)

	if s.isTesting || os.Getenv("OPAY_DEBUG") == "true" {
		log.Printf("OPay API Request: %s %s", url, string(jsonData))
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if s.isTesting || os.Getenv("OPAY_DEBUG") == "true" {
		log.Printf("OPay API Response: %s", string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
	}
	return nil
}

// CashierSession is what CreateCashier hands back to the checkout flow.
// QRCodeDataURI is set when the gateway answers with an in-place QR challenge
// instead of a redirect.
type CashierSession struct {
	OrderNo       string
	CashierURL    string
	QRCodeDataURI string
}

// CreateCashier opens a cashier session for the given reference and amount.
func (s *OpayService) CreateCashier(reference string, amount float64, currency, country, callbackURL, returnURL, cancelURL, productName string) (*CashierSession, error) {
	payload := models.OpayCashierRequest{
		Amount: models.OpayAmount{
			Currency: currency,
			Total:    int64(amount * 100),
		},
		CallbackURL: callbackURL,
		ReturnURL:   returnURL,
		CancelURL:   cancelURL,
		Country:     country,
		PayMethod:   "BankCard",
		Product: models.OpayProduct{
			Name: productName,
		},
		Reference: reference,
	}

	var resp models.OpayCashierResponse
	if err := s.makeRequest("/cashier/create", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "00000" {
		return nil, fmt.Errorf("opay API error: %s - %s", resp.Code, resp.Message)
	}

	session := &CashierSession{
		OrderNo:    resp.Data.OrderNo,
		CashierURL: resp.Data.CashierURL,
	}

	if resp.Data.NextAction.QRCode != "" {
		dataURI, err := utils.GenerateQRCodeDataURI(resp.Data.NextAction.QRCode, 256)
		if err != nil {
			log.Printf("OPay: failed to render QR challenge for %s: %v", reference, err)
		} else {
			session.QRCodeDataURI = dataURI
		}
	}

	return session, nil
}

// VerifyCallback checks the callback signature against the canonicalized
// payload. Returns ErrAuthenticity on any mismatch; the caller must not
// settle on an unverified callback.
func (s *OpayService) VerifyCallback(cb models.OpayCallback) error {
	if s.privateKey == "" {
		return fmt.Errorf("missing OPay credentials. Please set OPAY_PRIVATE_KEY environment variable")
	}
	if cb.SHA512 == "" {
		return fmt.Errorf("callback has no signature: %w", ErrAuthenticity)
	}

	canonical, err := utils.CanonicalizeOpayPayload(cb.Payload)
	if err != nil {
		return fmt.Errorf("failed to canonicalize callback payload: %w", err)
	}

	if !utils.VerifyHMACSHA3512([]byte(s.privateKey), canonical, cb.SHA512) {
		return fmt.Errorf("callback signature mismatch: %w", ErrAuthenticity)
	}
	return nil
}

// QueryStatus returns the gateway-side status of a cashier order:
// INITIAL, PENDING, SUCCESS, FAIL or CLOSE.
func (s *OpayService) QueryStatus(reference, orderNo string) (string, error) {
	payload := map[string]string{
		"reference": reference,
		"orderNo":   orderNo,
		"country":   os.Getenv("OPAY_COUNTRY"),
	}

	var resp models.OpayStatusResponse
	if err := s.makeRequest("/cashier/status", payload, &resp); err != nil {
		return "", err
	}
	if resp.Code != "00000" {
		return "", fmt.Errorf("opay API error: %s - %s", resp.Code, resp.Message)
	}
	return resp.Data.Status, nil
}

// Refund asks the gateway to return funds for a settled cashier order.
func (s *OpayService) Refund(reference, orderNo string, amount float64, currency, reason string) (string, error) {
	payload := map[string]interface{}{
		"reference": reference,
		"orderNo":   orderNo,
		"amount": map[string]interface{}{
			"currency": currency,
			"total":    int64(amount * 100),
		},
		"country": os.Getenv("OPAY_COUNTRY"),
		"reason":  reason,
	}

	var resp models.OpayRefundResponse
	if err := s.makeRequest("/cashier/refund", payload, &resp); err != nil {
		return "", err
	}
	if resp.Code != "00000" {
		return "", fmt.Errorf("opay API error: %s - %s", resp.Code, resp.Message)
	}
	return resp.Data.RefundOrderNo, nil
}
