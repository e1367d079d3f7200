// Package token decodes bearer credentials and decides whether they can still be presented.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryBuffer is how far in the future a credential must expire to be trusted
const ExpiryBuffer = 300 * time.Second

// ErrNoExpiry is returned for credentials without an exp claim
var ErrNoExpiry = errors.New("token has no expiry claim")

// The client never holds the signing key, so signatures are not verified here.
// The backend is the authority on signature validity.
var parser = jwt.NewParser()

// Claims decodes the claim set of a bearer credential
func Claims(raw string) (jwt.MapClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return claims, nil
}

// Expiry returns the decoded expiry timestamp of a bearer credential
func Expiry(raw string) (time.Time, error) {
	claims, err := Claims(raw)
	if err != nil {
		return time.Time{}, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}

	return exp.Time, nil
}

// Valid reports whether raw expires more than ExpiryBuffer after now.
// Undecodable credentials are never valid.
func Valid(raw string, now time.Time) bool {
	exp, err := Expiry(raw)
	if err != nil {
		return false
	}
	return exp.After(now.Add(ExpiryBuffer))
}
