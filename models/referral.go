// models/referral.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Referral records that one user invited another. The (referrerId, referredId)
// pair has a unique index so duplicate verification events never double-credit.
type Referral struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReferrerID primitive.ObjectID `bson:"referrerId" json:"referrerId"`
	ReferredID primitive.ObjectID `bson:"referredId" json:"referredId"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// ReferralWallet holds a user's token balance. TotalEarned is monotonic and
// audit-only; TokenBalance is zeroed on withdrawal request and restored on
// rejection.
type ReferralWallet struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"userId" json:"userId"`
	TokenBalance int                `bson:"tokenBalance" json:"tokenBalance"`
	TotalEarned  int                `bson:"totalEarned" json:"totalEarned"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Referral withdrawal statuses
const (
	ReferralWithdrawalPending  = "pending"
	ReferralWithdrawalApproved = "approved"
	ReferralWithdrawalRejected = "rejected"
)

// ReferralWithdrawalRequest converts tokens to currency at a fixed rate.
// Tokens are debited at request time (optimistic debit), so approval is a pure
// status flip and rejection must credit the tokens back.
type ReferralWithdrawalRequest struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID  `bson:"userId" json:"userId"`
	Tokens      int                 `bson:"tokens" json:"tokens"`
	Amount      float64             `bson:"amount" json:"amount"`
	Status      string              `bson:"status" json:"status"`
	AdminID     *primitive.ObjectID `bson:"adminId,omitempty" json:"adminId,omitempty"`
	ProcessedAt *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}
