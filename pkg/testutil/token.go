// Package testutil provides helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var signingKey = []byte("seodash-test-key")

// MintToken signs a JWT with the given claims. The signature is irrelevant to the
// client, which only decodes tokens.
func MintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

// TokenExpiringIn returns a token whose exp claim is now+d
func TokenExpiringIn(t *testing.T, d time.Duration) string {
	t.Helper()

	return MintToken(t, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(d).Unix(),
	})
}
