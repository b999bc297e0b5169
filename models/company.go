// models/company.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Company is a selling tenant. Its wallet receives settlement credits and is
// debited by approved payouts, refunds and admin withdrawals. All mutations go
// through the ledger service.
type Company struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	OwnerID       primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	WalletBalance float64            `bson:"walletBalance" json:"walletBalance"`
	PickupAddress string             `bson:"pickupAddress,omitempty" json:"pickupAddress,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
}

// CompanyActivity is the per-company audit trail. Settlement writes exactly
// one PAYMENT_DISTRIBUTED entry per settled order.
type CompanyActivity struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyID   primitive.ObjectID `bson:"companyId" json:"companyId"`
	Action      string             `bson:"action" json:"action"`
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// Company activity actions
const (
	ActivityPaymentDistributed   = "PAYMENT_DISTRIBUTED"
	ActivityPaymentSuccess       = "PAYMENT_SUCCESS"
	ActivityPayoutRequested      = "PAYOUT_REQUESTED"
	ActivityPayoutApproved       = "PAYOUT_APPROVED"
	ActivityPayoutRejected       = "PAYOUT_REJECTED"
	ActivityBankTransferApproved = "BANK_TRANSFER_APPROVED"
	ActivityBankTransferRejected = "BANK_TRANSFER_REJECTED"
	ActivityOrderRefunded        = "ORDER_REFUNDED"
	ActivityAdminWithdrawal      = "ADMIN_WITHDRAWAL"
)
