// Package session owns the persisted credential and user identity.
//
// A single *Session is created at startup and shared by the API client and the
// auth manager. Every read and write goes through its mutex.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lepinkainen/seodash/pkg/token"
)

// Storage keys
const (
	TokenKey = "authToken"
	UserKey  = "user"
)

// User is the cached identity of the signed-in user
type User struct {
	ID    string `json:"id" yaml:"id"`
	Email string `json:"email" yaml:"email"`
	Name  string `json:"name" yaml:"name"`
	Role  string `json:"role" yaml:"role"`
}

// Session serializes access to the credential and identity entries
type Session struct {
	mu    sync.Mutex
	store Storage
	now   func() time.Time
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates a Session backed by store
func New(store Storage, opts ...Option) *Session {
	s := &Session{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the stored credential if it expires more than token.ExpiryBuffer from now.
// A stale or undecodable credential is purged together with the identity and "" is returned.
func (s *Session) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.store.Get(ctx, TokenKey)
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	if !ok || raw == "" {
		return "", nil
	}

	if token.Valid(raw, s.now()) {
		return raw, nil
	}

	slog.Debug("Stored credential expired or unreadable, purging session")
	if err := s.clearLocked(ctx); err != nil {
		return "", err
	}
	return "", nil
}

// SetToken stores the bearer credential
func (s *Session) SetToken(ctx context.Context, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.set(ctx, TokenKey, raw, s.ttl(raw)); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// ttl is how long entries stored with raw may live: until the credential
// expires. 0 means no expiry.
func (s *Session) ttl(raw string) time.Duration {
	exp, err := token.Expiry(raw)
	if err != nil {
		return 0
	}
	if ttl := exp.Sub(s.now()); ttl > 0 {
		return ttl
	}
	return 0
}

// set writes through SetWithTTL when the store supports expiry
func (s *Session) set(ctx context.Context, key, value string, ttl time.Duration) error {
	if expiring, ok := s.store.(ExpiringStorage); ok && ttl > 0 {
		return expiring.SetWithTTL(ctx, key, value, ttl)
	}
	return s.store.Set(ctx, key, value)
}

// User returns the cached identity, or nil when none is stored.
// An entry that no longer decodes is dropped.
func (s *Session) User(ctx context.Context) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.userLocked(ctx)
}

func (s *Session) userLocked(ctx context.Context) (*User, error) {
	raw, ok, err := s.store.Get(ctx, UserKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		slog.Warn("Discarding unreadable stored user", "error", err)
		if delErr := s.store.Delete(ctx, UserKey); delErr != nil {
			slog.Error("Failed to delete stored user", "error", delErr)
		}
		return nil, nil
	}

	return &user, nil
}

// SetUser stores the identity
func (s *Session) SetUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.setUserLocked(ctx, user, 0)
}

func (s *Session) setUserLocked(ctx context.Context, user *User, ttl time.Duration) error {
	if user == nil {
		return errors.New("user is nil")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := s.set(ctx, UserKey, string(data), ttl); err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

// Save stores identity and credential together. On stores with expiry both
// entries expire with the credential.
func (s *Session) Save(ctx context.Context, user *User, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ttl := s.ttl(raw)
	if err := s.setUserLocked(ctx, user, ttl); err != nil {
		return err
	}
	if err := s.set(ctx, TokenKey, raw, ttl); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Clear removes both the credential and the identity
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.clearLocked(ctx)
}

func (s *Session) clearLocked(ctx context.Context) error {
	// both deletes are attempted even if the first fails
	return errors.Join(
		s.store.Delete(ctx, TokenKey),
		s.store.Delete(ctx, UserKey),
	)
}

// Authenticated reports whether a valid credential and an identity are both stored
func (s *Session) Authenticated(ctx context.Context) bool {
	tok, err := s.Token(ctx)
	if err != nil || tok == "" {
		return false
	}

	user, err := s.User(ctx)
	return err == nil && user != nil
}
