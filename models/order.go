// models/order.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses
const (
	OrderPending             = "pending"
	OrderPendingVerification = "pending_verification"
	OrderPaid                = "paid"
	OrderPaymentFailed       = "payment_failed"
	OrderRefunded            = "refunded"
)

// Order is one buyer's purchase from a single company. All line items must
// share the order's company. TotalAmount includes the shipping fee and is net
// of the buyer discount, so it may differ from the item subtotal; settlement
// scales each item's contribution by totalAmount/subtotal.
type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BuyerID          primitive.ObjectID `bson:"buyerId" json:"buyerId"`
	CompanyID        primitive.ObjectID `bson:"companyId" json:"companyId"`
	TotalAmount      float64            `bson:"totalAmount" json:"totalAmount"`
	ShippingFee      float64            `bson:"shippingFee" json:"shippingFee"`
	DiscountApplied  float64            `bson:"discountApplied" json:"discountApplied"`
	Status           string             `bson:"status" json:"status"`
	PaymentReference string             `bson:"paymentReference,omitempty" json:"paymentReference,omitempty"`
	DeliveryAddress  string             `bson:"deliveryAddress,omitempty" json:"deliveryAddress,omitempty"`
	DeliveryPhone    string             `bson:"deliveryPhone,omitempty" json:"deliveryPhone,omitempty"`
	TotalWeightGrams int                `bson:"totalWeightGrams" json:"totalWeightGrams"`
	Settled          bool               `bson:"settled" json:"settled"`
	SettledAt        *time.Time         `bson:"settledAt,omitempty" json:"settledAt,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

// OrderItem snapshots the unit price at checkout time; later product price
// changes never affect settlement of an already placed order.
type OrderItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID   primitive.ObjectID `bson:"orderId" json:"orderId"`
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
}

type CheckoutRequest struct {
	DeliveryAddress string `json:"deliveryAddress" validate:"required"`
	DeliveryPhone   string `json:"deliveryPhone" validate:"required"`
}
