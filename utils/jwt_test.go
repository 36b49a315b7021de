package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("s3cret", "u1", "u1@example.com")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseAccessToken("s3cret", token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "u1" || claims.Email != "u1@example.com" || claims.Subject != "u1" {
		t.Errorf("claims = %+v", claims)
	}
	if _, err := ParseAccessToken("other", token); err == nil {
		t.Error("token accepted with the wrong secret")
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(past)},
	}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAccessToken("s3cret", token); err == nil {
		t.Error("expired token accepted")
	}
}

func TestParseAccessTokenRejectsMissingUser(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAccessToken("s3cret", token); err == nil {
		t.Error("token without user accepted")
	}
}
