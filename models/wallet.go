// models/wallet.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Wallet transaction types
const (
	TxCredit = "credit"
	TxDebit  = "debit"
)

// WalletTransaction is the per-user audit record written alongside every user
// wallet mutation. Every balance change has exactly one of these.
type WalletTransaction struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Amount      float64            `bson:"amount" json:"amount"`
	TxType      string             `bson:"txType" json:"txType"` // credit / debit
	Description string             `bson:"description" json:"description"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
