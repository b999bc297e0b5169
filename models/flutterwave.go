// models/flutterwave.go
package models

// FlutterwaveCustomer identifies the payer on a hosted payment page.
type FlutterwaveCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// FlutterwavePaymentRequest is the body for POST /v3/payments.
type FlutterwavePaymentRequest struct {
	TxRef          string               `json:"tx_ref"`
	Amount         float64              `json:"amount"`
	Currency       string               `json:"currency"`
	RedirectURL    string               `json:"redirect_url"`
	Customer       FlutterwaveCustomer  `json:"customer"`
	Customizations map[string]string    `json:"customizations,omitempty"`
}

// FlutterwavePaymentResponse wraps the hosted payment link.
type FlutterwavePaymentResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// FlutterwaveVerifyResponse is the response of GET /v3/transactions/:id/verify.
type FlutterwaveVerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Status   string  `json:"status"` // "successful", "failed"
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"data"`
}
