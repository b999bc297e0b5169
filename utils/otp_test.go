package utils

import "testing"

func TestGenerateSecureOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		otp, err := GenerateSecureOTP()
		if err != nil {
			t.Fatalf("GenerateSecureOTP failed: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("expected 6 characters, got %q", otp)
		}
		for _, r := range otp {
			if r < '0' || r > '9' {
				t.Fatalf("expected digits only, got %q", otp)
			}
		}
		seen[otp] = true
	}
	if len(seen) < 2 {
		t.Fatal("expected distinct codes across generations")
	}
}
