package auth

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// loginFailure is how a failed sign-in is handled
type loginFailure int

const (
	failureOther loginFailure = iota
	failureAlreadySignedIn
	failureRateLimited
	failureInvalidSession
	failureInvalidCredentials
)

var (
	alreadySignedInMarkers = []string{"already signed in", "already a signed in user"}
	rateLimitMarkers       = []string{"rate exceeded", "too many requests", "limit exceeded", "throttl"}
	invalidSessionMarkers  = []string{
		"invalid session", "session expired", "session is expired", "token has expired",
		"refresh token has been revoked", "invalid refresh token",
	}
	invalidCredentialMarkers = []string{
		"incorrect username or password", "not authorized", "notauthorized",
		"user does not exist", "usernotfound", "invalid_grant", "invalid credentials",
	}
)

// classifyLoginError sorts provider errors by message; provider error codes are not reliable.
func classifyLoginError(err error) loginFailure {
	if err == nil {
		return failureOther
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
		retrieveErr.Response.StatusCode == http.StatusTooManyRequests {
		return failureRateLimited
	}

	msg := strings.ToLower(err.Error())
	for _, probe := range []struct {
		failure loginFailure
		markers []string
	}{
		{failureAlreadySignedIn, alreadySignedInMarkers},
		{failureRateLimited, rateLimitMarkers},
		{failureInvalidSession, invalidSessionMarkers},
		{failureInvalidCredentials, invalidCredentialMarkers},
	} {
		for _, marker := range probe.markers {
			if strings.Contains(msg, marker) {
				return probe.failure
			}
		}
	}

	return failureOther
}
