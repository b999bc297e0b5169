// utils/referral.go
package utils

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

// Referral token economy constants. Tokens are earned when an invitee
// verifies their account and convert to currency on withdrawal.
const (
	ReferralTokenValue   = 100.0 // currency per token
	ReferralMinTokens    = 20    // minimum balance to request a withdrawal
	ReferralRewardTokens = 2     // tokens credited per verified invitee
)

// GenerateReferralCode generates a referral code of the form USR-ABC123.
func GenerateReferralCode() (string, error) {
	// 4 random bytes give 6 characters in base32
	randomBytes := make([]byte, 4)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = strings.ToUpper(randomStr[:6])
	randomStr = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, randomStr)

	if len(randomStr) < 6 {
		randomStr = randomStr + strings.Repeat("0", 6-len(randomStr))
	}

	return "USR-" + randomStr, nil
}
