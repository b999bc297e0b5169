package utils

import (
	"strings"
	"testing"
)

func TestGenerateReferralCodeFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateReferralCode()
		if err != nil {
			t.Fatalf("GenerateReferralCode: %v", err)
		}
		if !strings.HasPrefix(code, "USR-") {
			t.Fatalf("code %q missing USR- prefix", code)
		}
		suffix := strings.TrimPrefix(code, "USR-")
		if len(suffix) != 6 {
			t.Fatalf("code %q suffix length = %d, want 6", code, len(suffix))
		}
		for _, r := range suffix {
			if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				t.Fatalf("code %q contains invalid character %q", code, r)
			}
		}
		seen[code] = true
	}
	// 50 draws from a 32^6 space colliding down to a handful would mean the
	// generator is broken.
	if len(seen) < 45 {
		t.Errorf("only %d distinct codes out of 50", len(seen))
	}
}

func TestReferralConstants(t *testing.T) {
	if ReferralMinTokens <= 0 || ReferralRewardTokens <= 0 || ReferralTokenValue <= 0 {
		t.Fatal("referral constants must be positive")
	}
	if ReferralMinTokens < ReferralRewardTokens {
		t.Errorf("minimum withdrawal (%d) should require more than one reward (%d)",
			ReferralMinTokens, ReferralRewardTokens)
	}
}
