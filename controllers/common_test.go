package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/abilsmall/marketplace_backend/middleware"
)

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthedUserIDMissingClaims(t *testing.T) {
	c, rec := newTestContext()

	id, ok := authedUserID(c)
	if ok {
		t.Fatal("authedUserID reported ok without JWT claims")
	}
	if !id.IsZero() {
		t.Errorf("id = %s, want zero ObjectID", id.Hex())
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthedUserIDMalformedID(t *testing.T) {
	c, rec := newTestContext()
	c.Set("user", &jwt.Token{Claims: &middleware.JwtCustomClaims{UserID: "not-a-hex-id"}})

	id, ok := authedUserID(c)
	if ok {
		t.Fatal("authedUserID reported ok for a malformed user ID")
	}
	if !id.IsZero() {
		t.Errorf("id = %s, want zero ObjectID", id.Hex())
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAuthedUserIDValidClaims(t *testing.T) {
	want := primitive.NewObjectID()
	c, rec := newTestContext()
	c.Set("user", &jwt.Token{Claims: &middleware.JwtCustomClaims{UserID: want.Hex()}})

	id, ok := authedUserID(c)
	if !ok {
		t.Fatal("authedUserID reported not ok for valid claims")
	}
	if id != want {
		t.Errorf("id = %s, want %s", id.Hex(), want.Hex())
	}
	if rec.Body.Len() != 0 {
		t.Errorf("response body written on the success path: %s", rec.Body.String())
	}
}
