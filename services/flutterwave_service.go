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

// FlutterwaveService handles interactions with the Flutterwave v3 API
type FlutterwaveService struct {
	baseURL   string
	secretKey string
}

// NewFlutterwaveService creates a new Flutterwave service instance
func NewFlutterwaveService() *FlutterwaveService {
	secretKey := os.Getenv("FLW_SECRET_KEY")
	if secretKey == "" {
		log.Printf("WARNING: FLW_SECRET_KEY is missing")
		log.Printf("Please set this environment variable for Flutterwave payments to work")
	}

	return &FlutterwaveService{
		baseURL:   "https://api.flutterwave.com/v3",
		secretKey: secretKey,
	}
}

func (s *FlutterwaveService) makeRequest(method, endpoint string, payload interface{}, out interface{}) error {
	if s.secretKey == "" {
		return fmt.Errorf("missing Flutterwave credentials. Please set FLW_SECRET_KEY environment variable")
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

	if os.Getenv("FLW_DEBUG") == "true" {
		log.Printf("Flutterwave API Response: %s", string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w\nResponse body: %s", err, string(respBody))
	}
	return nil
}

// CreatePayment creates a hosted payment page and returns its link.
func (s *FlutterwaveService) CreatePayment(txRef string, amount float64, currency, redirectURL, email, name string) (string, error) {
	payload := models.FlutterwavePaymentRequest{
		TxRef:       txRef,
		Amount:      amount,
		Currency:    currency,
		RedirectURL: redirectURL,
		Customer: models.FlutterwaveCustomer{
			Email: email,
			Name:  name,
		},
	}

	var resp models.FlutterwavePaymentResponse
	if err := s.makeRequest("POST", "/payments", payload, &resp); err != nil {
		return "", err
	}
	if resp.Status != "success" {
		return "", fmt.Errorf("flutterwave API error: %s", resp.Message)
	}
	if resp.Data.Link == "" {
		return "", fmt.Errorf("failed to parse payment link from response")
	}
	return resp.Data.Link, nil
}

// VerifyTransaction looks up a transaction by its gateway ID and reports
// whether the charge succeeded, along with the paid amount and the tx_ref so
// the caller can match it to a payment row.
func (s *FlutterwaveService) VerifyTransaction(transactionID string) (bool, float64, string, error) {
	var resp models.FlutterwaveVerifyResponse
	endpoint := fmt.Sprintf("/transactions/%s/verify", transactionID)
	if err := s.makeRequest("GET", endpoint, nil, &resp); err != nil {
		return false, 0, "", err
	}
	if resp.Status != "success" {
		return false, 0, "", fmt.Errorf("flutterwave API error: %s", resp.Message)
	}

	paid := resp.Data.Status == "successful"
	return paid, resp.Data.Amount, resp.Data.TxRef, nil
}
