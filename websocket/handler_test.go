package websocket

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abilsmall/marketplace_backend/middleware"
)

func TestAuthenticateTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "handler-test-secret")

	userID := primitive.NewObjectID()
	access, _, err := middleware.GenerateJWT(userID.Hex(), "buyer@example.com", "buyer")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	got, err := authenticateToken(access)
	if err != nil {
		t.Fatalf("authenticateToken: %v", err)
	}
	if got != userID {
		t.Errorf("user ID = %s, want %s", got.Hex(), userID.Hex())
	}
}

func TestAuthenticateTokenRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "handler-test-secret")

	if _, err := authenticateToken("not-a-jwt"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestAuthenticateTokenRejectsWrongKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "handler-test-secret")
	access, _, err := middleware.GenerateJWT(primitive.NewObjectID().Hex(), "buyer@example.com", "buyer")
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	t.Setenv("JWT_SECRET", "a-different-secret")
	if _, err := authenticateToken(access); err == nil {
		t.Error("token signed with another key accepted")
	}
}
