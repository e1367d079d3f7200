package auth

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/lepinkainen/seodash/pkg/apperror"
	"github.com/lepinkainen/seodash/pkg/navigate"
	"github.com/lepinkainen/seodash/pkg/session"
)

// User-facing messages for failures that stay on the current surface
const (
	msgInvalidCredentials = "Invalid email or password"
	msgRateLimited        = "Too many sign-in attempts. Please wait a few minutes and try again."
	msgSessionExpired     = "Your session has expired. Please sign in again."
	msgConfirmationSent   = "Account created. Check your email for the confirmation code."
)

// Options tunes the manager
type Options struct {
	// DefaultRole is used when the provider reports no groups
	DefaultRole string
}

// Manager drives login, logout and registration and keeps the session in step
// with the identity provider
type Manager struct {
	idp         IdentityProvider
	session     *session.Session
	nav         navigate.Navigator
	defaultRole string

	mu      sync.Mutex
	state   State
	user    *session.User
	message string
	lastErr error
}

// NewManager derives the initial state from the stored session: a valid credential
// plus a cached identity is authenticated, anything else is anonymous.
func NewManager(ctx context.Context, idp IdentityProvider, sess *session.Session, nav navigate.Navigator, opts Options) *Manager {
	if nav == nil {
		nav = navigate.Func(func(string) {})
	}
	if opts.DefaultRole == "" {
		opts.DefaultRole = DefaultRole
	}

	m := &Manager{
		idp:         idp,
		session:     sess,
		nav:         nav,
		defaultRole: opts.DefaultRole,
		state:       StateAnonymous,
	}

	if sess.Authenticated(ctx) {
		if user, err := sess.User(ctx); err == nil && user != nil {
			m.state = StateAuthenticated
			m.user = user
		}
	}

	return m
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// User returns the signed-in identity, or nil
func (m *Manager) User() *session.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Message is the last user-facing status or error text
func (m *Manager) Message() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.message
}

// Err is the error of the last failed operation
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) set(state State, user *session.User, message string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.user = user
	m.message = message
	m.lastErr = err
}

func (m *Manager) fail(message string, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateError
	m.message = message
	m.lastErr = err
	return err
}

// Login signs in and, on success, persists the identity and credential and
// navigates to the dashboard.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		err := apperror.Validation("email and password are required")
		return m.fail(err.Message, err)
	}

	m.set(StateAuthenticating, nil, "", nil)
	slog.Debug("Signing in", "email", email)

	if err := m.idp.SignIn(ctx, email, password); err != nil {
		return m.handleLoginError(ctx, errors.Wrap(err, "sign in failed"))
	}

	if err := m.establish(ctx); err != nil {
		return m.handleLoginError(ctx, err)
	}

	slog.Info("Signed in", "email", email)
	m.nav.Navigate(navigate.DashboardPath)
	return nil
}

// establish reads the provider's identity and credential into the session
func (m *Manager) establish(ctx context.Context) error {
	attrs, err := m.idp.CurrentUser(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read user attributes")
	}

	tok, err := m.idp.Token(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get session token")
	}

	user := m.userFrom(attrs)
	if err := m.session.Save(ctx, user, tok); err != nil {
		return errors.Wrap(err, "failed to persist session")
	}

	m.set(StateAuthenticated, user, "", nil)
	return nil
}

func (m *Manager) userFrom(attrs *Attributes) *session.User {
	role := m.defaultRole
	if len(attrs.Groups) > 0 && attrs.Groups[0] != "" {
		role = attrs.Groups[0]
	}

	name := attrs.Name
	if name == "" {
		name = attrs.Email
	}

	return &session.User{
		ID:    attrs.Subject,
		Email: attrs.Email,
		Name:  name,
		Role:  role,
	}
}

func (m *Manager) handleLoginError(ctx context.Context, err error) error {
	switch classifyLoginError(err) {
	case failureAlreadySignedIn:
		// the provider still holds a session: reuse it
		if estErr := m.establish(ctx); estErr != nil {
			slog.Warn("Provider reports an existing session but it could not be restored", "error", estErr)
			m.settleFromStore(ctx)
		}
		m.nav.Navigate(navigate.DashboardPath)
		return nil

	case failureRateLimited:
		slog.Warn("Sign in rate limited", "error", err)
		m.fail(msgRateLimited, err)
		m.nav.Navigate(navigate.ErrorRoute(apperror.CategoryServer, msgRateLimited))
		return err

	case failureInvalidSession:
		slog.Warn("Provider session invalid, purging", "error", err)
		if clearErr := m.session.Clear(ctx); clearErr != nil {
			slog.Error("Failed to purge session", "error", clearErr)
		}
		m.mu.Lock()
		m.user = nil
		m.mu.Unlock()
		m.fail(msgSessionExpired, err)
		m.nav.Navigate(navigate.ErrorRoute(apperror.CategoryAuth, msgSessionExpired))
		return err

	case failureInvalidCredentials:
		return m.fail(msgInvalidCredentials, err)

	default:
		return m.fail(errors.Cause(err).Error(), err)
	}
}

// settleFromStore leaves the authenticating state based on what is stored
func (m *Manager) settleFromStore(ctx context.Context) {
	if m.session.Authenticated(ctx) {
		if user, err := m.session.User(ctx); err == nil && user != nil {
			m.set(StateAuthenticated, user, "", nil)
			return
		}
	}
	m.set(StateAnonymous, nil, "", nil)
}

// Logout signs out of the provider and always purges the local session,
// even when the provider call fails, then navigates to the login surface.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.idp.SignOut(ctx); err != nil {
		slog.Warn("Provider sign out failed, clearing local session anyway", "error", err)
	}

	err := m.session.Clear(ctx)
	if err != nil {
		slog.Error("Failed to purge session", "error", err)
		err = errors.Wrap(err, "failed to purge session")
	}

	m.set(StateAnonymous, nil, "", nil)
	m.nav.Navigate(navigate.LoginPath)
	return err
}

// CheckAuthStatus re-derives the state from the provider's current session.
// It is never called implicitly.
func (m *Manager) CheckAuthStatus(ctx context.Context) (State, error) {
	attrs, err := m.idp.CurrentUser(ctx)
	if errors.Is(err, ErrNoSession) {
		if clearErr := m.session.Clear(ctx); clearErr != nil {
			slog.Error("Failed to purge session", "error", clearErr)
		}
		m.set(StateAnonymous, nil, "", nil)
		return StateAnonymous, nil
	}
	if err != nil {
		m.fail(errors.Cause(err).Error(), err)
		return StateError, errors.Wrap(err, "failed to check auth status")
	}

	tok, err := m.idp.Token(ctx)
	if err != nil {
		if clearErr := m.session.Clear(ctx); clearErr != nil {
			slog.Error("Failed to purge session", "error", clearErr)
		}
		m.set(StateAnonymous, nil, "", nil)
		return StateAnonymous, nil
	}

	user := m.userFrom(attrs)
	if err := m.session.Save(ctx, user, tok); err != nil {
		m.fail("Failed to store session", err)
		return StateError, errors.Wrap(err, "failed to persist session")
	}

	m.set(StateAuthenticated, user, "", nil)
	return StateAuthenticated, nil
}

// Register creates an account. On success the account awaits confirmation and
// the state returns to anonymous.
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Name = strings.TrimSpace(reg.Name)

	if err := validateRegistration(reg); err != nil {
		return m.fail(err.Message, err)
	}

	m.set(StateAuthenticating, nil, "", nil)

	if err := m.idp.SignUp(ctx, reg); err != nil {
		err = errors.Wrap(err, "sign up failed")
		return m.fail(errors.Cause(err).Error(), err)
	}

	slog.Info("Account created, awaiting confirmation", "email", reg.Email)
	m.set(StateAnonymous, nil, msgConfirmationSent, nil)
	return nil
}

// ConfirmRegistration submits the emailed confirmation code
func (m *Manager) ConfirmRegistration(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		err := apperror.Validation("email and confirmation code are required")
		return m.fail(err.Message, err)
	}

	if err := m.idp.ConfirmSignUp(ctx, email, code); err != nil {
		err = errors.Wrap(err, "confirmation failed")
		return m.fail(errors.Cause(err).Error(), err)
	}

	m.set(StateAnonymous, nil, "Account confirmed. You can sign in now.", nil)
	return nil
}

func validateRegistration(reg Registration) *apperror.Error {
	if reg.Email == "" {
		return apperror.Validation("email is required")
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return apperror.Validation("email address is invalid")
	}
	if len(reg.Password) < MinPasswordLength {
		return apperror.Validation("password must be at least 8 characters")
	}
	if reg.Name == "" {
		return apperror.Validation("name is required")
	}
	return nil
}
