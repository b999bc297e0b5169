// models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment providers
const (
	ProviderPaystack     = "paystack"
	ProviderFlutterwave  = "flutterwave"
	ProviderOpay         = "opay"
	ProviderBankTransfer = "bank_transfer"
)

// Payment statuses
const (
	PaymentInitiated = "initiated"
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Payment is one settlement attempt against an order. Reference is unique per
// provider; at most one payment per order ever reaches "paid".
type Payment struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID         primitive.ObjectID `bson:"orderId" json:"orderId"`
	CompanyID       primitive.ObjectID `bson:"companyId" json:"companyId"`
	Amount          float64            `bson:"amount" json:"amount"`
	Provider        string             `bson:"provider" json:"provider"`
	Reference       string             `bson:"reference" json:"reference"`
	ProviderOrderNo string             `bson:"providerOrderNo,omitempty" json:"providerOrderNo,omitempty"`
	Status          string             `bson:"status" json:"status"`
	PaidAt          *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// Bank transfer statuses
const (
	BankTransferPending  = "pending"
	BankTransferApproved = "approved"
	BankTransferRejected = "rejected"
)

// BankTransfer is the manual-verification payment path. Admin approval is the
// confirmation signal that triggers settlement.
type BankTransfer struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrderID     primitive.ObjectID  `bson:"orderId" json:"orderId"`
	BuyerID     primitive.ObjectID  `bson:"buyerId" json:"buyerId"`
	CompanyID   primitive.ObjectID  `bson:"companyId" json:"companyId"`
	Amount      float64             `bson:"amount" json:"amount"`
	ProofPath   string              `bson:"proofPath,omitempty" json:"proofPath,omitempty"`
	Status      string              `bson:"status" json:"status"`
	AdminID     *primitive.ObjectID `bson:"adminId,omitempty" json:"adminId,omitempty"`
	ProcessedAt *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}
