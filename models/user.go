// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleBuyer   = "buyer"
)

// User represents any account in the system. Managers belong to exactly one
// company and carry a commission rate; buyers have a personal top-up wallet.
type User struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Username       string              `bson:"username" json:"username"`
	Email          string              `bson:"email" json:"email"`
	Phone          string              `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash   string              `bson:"passwordHash" json:"-"`
	Role           string              `bson:"role" json:"role"` // admin, manager, buyer
	IsVerified     bool                `bson:"isVerified" json:"isVerified"`
	WalletBalance  float64             `bson:"walletBalance" json:"walletBalance"`
	CommissionRate float64             `bson:"commissionRate" json:"commissionRate"` // managers only, percent kept by company
	DiscountRate   float64             `bson:"discountRate" json:"discountRate"`
	CompanyID      *primitive.ObjectID `bson:"companyId,omitempty" json:"companyId,omitempty"` // managers only
	ReferralCode   string              `bson:"referralCode,omitempty" json:"referralCode,omitempty"`
	NotifyEmail    bool                `bson:"notifyEmail" json:"notifyEmail"`
	FCMToken       string              `bson:"fcmToken,omitempty" json:"-"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
}

type SignupRequest struct {
	Username     string `json:"username" validate:"required,min=3,max=120"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone,omitempty"`
	Password     string `json:"password" validate:"required,min=8"`
	ReferralCode string `json:"referralCode,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required"`
}

// Response is the standard API response envelope.
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
