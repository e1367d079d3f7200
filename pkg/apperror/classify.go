package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Category selects the error surface variant and its suggestions
type Category string

// Categories understood by the error surface
const (
	CategoryAuth    Category = "auth"
	CategoryNetwork Category = "network"
	CategoryServer  Category = "server"
	CategoryUnknown Category = "unknown"
)

func (c Category) String() string {
	return string(c)
}

// ParseCategory converts the type query parameter back into a Category
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryAuth:
		return CategoryAuth
	case CategoryNetwork:
		return CategoryNetwork
	case CategoryServer:
		return CategoryServer
	default:
		return CategoryUnknown
	}
}

// Matching is done on lowercase text; provider error codes are not reliable enough to switch on.
var (
	authMarkers = []string{
		"unauthorized", "forbidden", "401", "403", "not authenticated", "notauthorized",
		"not authorized", "session expired", "invalid session", "token has expired",
		"invalid token", "credential", "incorrect username or password", "invalid_grant",
	}
	networkMarkers = []string{
		"network", "fetch", "timeout", "timed out", "deadline exceeded", "connection refused",
		"connection reset", "no such host", "dial", "eof", "net.", "url.error",
	}
	serverMarkers = []string{
		"500", "502", "503", "504", "server", "internal", "unavailable", "bad gateway",
		"rate exceeded", "too many requests",
	}
)

// Classify maps an arbitrary error onto a Category
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var typed *Error
	if errors.As(err, &typed) {
		if c, ok := classifyTyped(typed); ok {
			return c
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryNetwork
	}

	// transport failures are network problems whatever the wrapping text says
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return CategoryNetwork
	}

	haystack := strings.ToLower(err.Error() + " " + fmt.Sprintf("%T", err))
	for _, probe := range []struct {
		category Category
		markers  []string
	}{
		{CategoryAuth, authMarkers},
		{CategoryNetwork, networkMarkers},
		{CategoryServer, serverMarkers},
	} {
		for _, marker := range probe.markers {
			if strings.Contains(haystack, marker) {
				return probe.category
			}
		}
	}

	return CategoryUnknown
}

func classifyTyped(e *Error) (Category, bool) {
	switch e.Kind {
	case KindAuthRequired:
		return CategoryAuth, true
	case KindBackendUnavailable:
		if e.StatusCode == 0 {
			return CategoryNetwork, true
		}
		return CategoryServer, true
	case KindNotImplemented:
		return CategoryServer, true
	case KindUnknown:
		if e.StatusCode >= 500 {
			return CategoryServer, true
		}
		// the backend answered and it was not 401/403: its wording does not make it auth
		if e.StatusCode > 0 {
			return CategoryUnknown, true
		}
	}
	return "", false
}

// PurgesCredentials reports whether errors of this category invalidate the stored session
func PurgesCredentials(c Category) bool {
	return c == CategoryAuth
}

// Title is the heading shown on the error surface
func Title(c Category) string {
	switch c {
	case CategoryAuth:
		return "Authentication required"
	case CategoryNetwork:
		return "Network problem"
	case CategoryServer:
		return "Service unavailable"
	default:
		return "Something went wrong"
	}
}

// Suggestions returns the fixed remedy list for a category
func Suggestions(c Category) []string {
	switch c {
	case CategoryAuth:
		return []string{
			"Sign in again with `seodash login`",
			"Check that your account has access to this workspace",
			"If the problem persists, run `seodash logout` and sign in again",
		}
	case CategoryNetwork:
		return []string{
			"Check your internet connection",
			"Verify api.endpoint in your configuration",
			"Try again in a few moments",
		}
	case CategoryServer:
		return []string{
			"The backend may be busy, wait a few minutes and try again",
			"Check the service status page",
			"Contact support if the problem continues",
		}
	default:
		return []string{
			"Try the operation again",
			"Run with --debug for more details",
			"Contact support if the problem continues",
		}
	}
}
