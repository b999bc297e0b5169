// models/paystack.go
package models

// PaystackInitRequest is the body for POST /transaction/initialize.
type PaystackInitRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // kobo
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
}

// PaystackInitResponse wraps the authorization URL returned on initialize.
type PaystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// PaystackVerifyResponse is the response of GET /transaction/verify/:reference.
type PaystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"` // "success", "failed", "abandoned"
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		PaidAt    string `json:"paid_at"`
	} `json:"data"`
}
