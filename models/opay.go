// models/opay.go
package models

// OpayAmount is the cashier amount block; Total is in whole currency units.
type OpayAmount struct {
	Currency string `json:"currency"`
	Total    int64  `json:"total"`
}

// OpayProduct describes the purchase shown on the cashier page.
type OpayProduct struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// OpayCashierRequest is the body for the international cashier create call.
// It is serialized canonically (sorted keys, compact separators) because the
// gateway signs over the exact byte stream.
type OpayCashierRequest struct {
	Amount      OpayAmount  `json:"amount"`
	CallbackURL string      `json:"callbackUrl"`
	ReturnURL   string      `json:"returnUrl"`
	CancelURL   string      `json:"cancelUrl"`
	Country     string      `json:"country"`
	PayMethod   string      `json:"payMethod"`
	Product     OpayProduct `json:"product"`
	Reference   string      `json:"reference"`
}

// OpayCashierResponse wraps either a redirect URL or a QR challenge.
type OpayCashierResponse struct {
	Code    string `json:"code"` // "00000" on success
	Message string `json:"message"`
	Data    struct {
		OrderNo    string `json:"orderNo"`
		CashierURL string `json:"cashierUrl"`
		NextAction struct {
			QRCode string `json:"qrCode"`
		} `json:"nextAction"`
	} `json:"data"`
}

// OpayCallback is the webhook envelope: the payload plus an HMAC-SHA3-512
// signature computed over the canonicalized payload.
type OpayCallback struct {
	Payload map[string]interface{} `json:"payload"`
	SHA512  string                 `json:"sha512"`
}

// OpayStatusResponse is the response of the cashier status query.
type OpayStatusResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		OrderNo   string `json:"orderNo"`
		Reference string `json:"reference"`
		Status    string `json:"status"` // INITIAL, PENDING, SUCCESS, FAIL, CLOSE
	} `json:"data"`
}

// OpayRefundResponse is the response of the cashier refund call.
type OpayRefundResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		RefundOrderNo string `json:"refundOrderNo"`
		Status        string `json:"status"`
	} `json:"data"`
}
