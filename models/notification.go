// models/notification.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is a stored in-app notification, also fanned out over the
// websocket hub and, when configured, email and FCM.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Type      string             `bson:"type" json:"type"`
	Data      interface{}        `bson:"data,omitempty" json:"data,omitempty"`
	IsRead    bool               `bson:"isRead" json:"isRead"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// OtpVerification holds the hashed OTP sent at signup. Verifying it completes
// registration and, when a referrer is attached, triggers the referral reward.
type OtpVerification struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID  `bson:"userId" json:"userId"`
	OtpHash    string              `bson:"otpHash" json:"-"`
	ReferrerID *primitive.ObjectID `bson:"referrerId,omitempty" json:"referrerId,omitempty"`
	ExpiresAt  time.Time           `bson:"expiresAt" json:"expiresAt"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
}
