// models/payout.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payout request statuses
const (
	PayoutPending  = "pending"
	PayoutApproved = "approved"
	PayoutRejected = "rejected"
)

// PayoutRequest is a company withdrawal raised by one of its managers. No
// funds are reserved at request time; the balance is re-checked when an admin
// approves, and the debit happens atomically with the status flip.
type PayoutRequest struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CompanyID   primitive.ObjectID  `bson:"companyId" json:"companyId"`
	ManagerID   primitive.ObjectID  `bson:"managerId" json:"managerId"`
	Amount      float64             `bson:"amount" json:"amount"`
	Status      string              `bson:"status" json:"status"`
	AdminID     *primitive.ObjectID `bson:"adminId,omitempty" json:"adminId,omitempty"`
	AdminNote   string              `bson:"adminNote,omitempty" json:"adminNote,omitempty"`
	ProcessedAt *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

type PayoutRequestBody struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type DecisionRequest struct {
	AdminNote string `json:"adminNote,omitempty"`
}
