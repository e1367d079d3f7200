package auth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"golang.org/x/oauth2"
)

func TestClassifyLoginError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected loginFailure
	}{
		{"nil", nil, failureOther},
		{"already signed in", errors.New("There is already a signed in user."), failureAlreadySignedIn},
		{"already signed in wrapped", fmt.Errorf("sign in: %w", errors.New("user is already signed in")), failureAlreadySignedIn},
		{"rate exceeded", errors.New("Rate exceeded"), failureRateLimited},
		{"too many requests", errors.New("429 Too Many Requests"), failureRateLimited},
		{"oauth 429", &oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}, failureRateLimited},
		{"invalid session", errors.New("Invalid session for the user."), failureInvalidSession},
		{"token expired", errors.New("Refresh Token has expired"), failureInvalidSession},
		{"incorrect password", errors.New("Incorrect username or password."), failureInvalidCredentials},
		{"invalid grant", errors.New(`oauth2: "invalid_grant"`), failureInvalidCredentials},
		{"unknown", errors.New("something odd"), failureOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyLoginError(tt.err); got != tt.expected {
				t.Errorf("classifyLoginError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
