// utils/otp.go
package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-redis/redis/v8"
)

// OTP codes are short-lived 6-digit numbers delivered by email; only their
// bcrypt hash is persisted alongside the expiry.
const (
	otpDigits         = 6
	otpMaxAttempts    = 5
	otpAttemptsWindow = time.Hour
)

var ErrTooManyOTPAttempts = errors.New("too many OTP attempts")

// GenerateSecureOTP returns a uniformly random numeric code, zero padded to
// otpDigits characters.
func GenerateSecureOTP() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}

// ValidateOTPAttempts counts a verification attempt for the user and returns
// ErrTooManyOTPAttempts once the hourly limit is exceeded.
func ValidateOTPAttempts(ctx context.Context, userID string, rdb *redis.Client) error {
	key := "otp_attempts:" + userID

	attempts, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to count OTP attempts: %w", err)
	}
	if attempts == 1 {
		rdb.Expire(ctx, key, otpAttemptsWindow)
	}
	if attempts > otpMaxAttempts {
		return ErrTooManyOTPAttempts
	}
	return nil
}
