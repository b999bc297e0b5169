package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
)

func TestGenerateJWTRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	access, refresh, err := GenerateJWT("64f000000000000000000001", "buyer@example.com", "buyer")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected both tokens to be issued")
	}

	parse := func(raw string) *JwtCustomClaims {
		token, err := jwt.ParseWithClaims(raw, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		if err != nil {
			t.Fatalf("parse token: %v", err)
		}
		claims, ok := token.Claims.(*JwtCustomClaims)
		if !ok || !token.Valid {
			t.Fatal("token claims invalid")
		}
		return claims
	}

	accessClaims := parse(access)
	if accessClaims.UserID != "64f000000000000000000001" {
		t.Errorf("userId = %q", accessClaims.UserID)
	}
	if accessClaims.UserType != "buyer" {
		t.Errorf("userType = %q", accessClaims.UserType)
	}

	refreshClaims := parse(refresh)
	if refreshClaims.ExpiresAt <= accessClaims.ExpiresAt {
		t.Error("refresh token should outlive the access token")
	}
}

func TestGenerateJWTRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, _, err := GenerateJWT("id", "a@b.c", "buyer"); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestClaimsValidExpiry(t *testing.T) {
	expired := JwtCustomClaims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Minute).Unix()},
	}
	if err := expired.Valid(); err == nil {
		t.Error("expired claims accepted")
	}

	current := JwtCustomClaims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}
	if err := current.Valid(); err != nil {
		t.Errorf("valid claims rejected: %v", err)
	}
}
