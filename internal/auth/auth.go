// Package auth manages the sign-in lifecycle on top of an identity provider.
package auth

import (
	"context"

	"github.com/pkg/errors"
)

// State is where the manager is in the sign-in lifecycle
type State int

// Manager states
const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
	StateError
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultRole is assigned when the provider reports no groups
const DefaultRole = "user"

// MinPasswordLength is enforced locally before sign-up
const MinPasswordLength = 8

// ErrNoSession is returned by providers that have no signed-in user
var ErrNoSession = errors.New("no current user")

// Attributes are the identity claims the provider reports for the signed-in user
type Attributes struct {
	Subject string
	Email   string
	Name    string
	Groups  []string
}

// Registration is a new account request
type Registration struct {
	Email    string
	Password string
	Name     string
}

// IdentityProvider is the external service that issues credentials
type IdentityProvider interface {
	SignIn(ctx context.Context, username, password string) error
	SignUp(ctx context.Context, reg Registration) error
	ConfirmSignUp(ctx context.Context, username, code string) error
	// SignOut ends the provider session. The local session is purged regardless.
	SignOut(ctx context.Context) error
	// CurrentUser returns ErrNoSession when nobody is signed in
	CurrentUser(ctx context.Context) (*Attributes, error)
	// Token returns the bearer credential for the backend
	Token(ctx context.Context) (string, error)
}
