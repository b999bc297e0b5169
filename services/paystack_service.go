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
)

// PaystackService handles interactions with the Paystack API
type PaystackService struct {
	baseURL   string
	secretKey string
}

// NewPaystackService creates a new Paystack service instance
func NewPaystackService() *PaystackService {
	secretKey := os.Getenv("PAYSTACK_SECRET_KEY")
	if secretKey == "" {
		log.Printf("WARNING: PAYSTACK_SECRET_KEY is missing")
		log.Printf("Please set this environment variable for Paystack payments to work")
	}

	return &PaystackService{
		baseURL:   "https://api.paystack.co",
		secretKey: secretKey,
	}
}

// makeRequest performs an HTTP request to the Paystack API and decodes the
// response into out.
func (s *PaystackService) makeRequest(method, endpoint string, payload interface{}, out interface{}) error {
	if s.secretKey == "" {
		return fmt.Errorf("missing Paystack credentials. Please set PAYSTACK_SECRET_KEY environment variable")
	}

	url := s.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.secretKey)

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

	if os.Getenv("PAYSTACK_DEBUG") == "true" {
		log.Printf("Paystack API Response: %s", string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
	}
	return nil
}

// InitializeTransaction creates a hosted checkout session and returns the
// authorization URL the buyer should be redirected to.
func (s *PaystackService) InitializeTransaction(email string, amount float64, reference, callbackURL string) (string, error) {
	payload := models.PaystackInitRequest{
		Email:       email,
		Amount:      int64(amount * 100), // kobo
		Reference:   reference,
		CallbackURL: callbackURL,
	}

	var resp models.PaystackInitResponse
	if err := s.makeRequest("POST", "/transaction/initialize", payload, &resp); err != nil {
		return "", err
	}
	if !resp.Status {
		return "", fmt.Errorf("paystack API error: %s", resp.Message)
	}
	if resp.Data.AuthorizationURL == "" {
		return "", fmt.Errorf("failed to parse authorization URL from response")
	}
	return resp.Data.AuthorizationURL, nil
}

// VerifyTransaction queries the gateway for the transaction state. It returns
// whether the charge succeeded and the amount actually paid. The verified
// amount, not the callback's claim, is what settlement trusts.
func (s *PaystackService) VerifyTransaction(reference string) (bool, float64, error) {
	var resp models.PaystackVerifyResponse
	if err := s.makeRequest("GET", "/transaction/verify/"+reference, nil, &resp); err != nil {
		return false, 0, err
	}
	if !resp.Status {
		return false, 0, fmt.Errorf("paystack API error: %s", resp.Message)
	}

	paid := resp.Data.Status == "success"
	amount := float64(resp.Data.Amount) / 100.0
	return paid, amount, nil
}
