// Package oauthidp is an identity provider that signs in with the OAuth2
// resource owner password grant, e.g. against a Cognito user pool domain.
package oauthidp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/lepinkainen/seodash/internal/auth"
	httputil "github.com/lepinkainen/seodash/pkg/http"
	"github.com/lepinkainen/seodash/pkg/session"
	"github.com/lepinkainen/seodash/pkg/token"
)

// DefaultGroupsClaim is where Cognito puts the user's groups
const DefaultGroupsClaim = "cognito:groups"

// ErrAlreadySignedIn mirrors the hosted UI's message for a second sign in
var ErrAlreadySignedIn = errors.New("there is already a signed in user")

// Config configures the provider
type Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	// RevokeURL, RegisterURL and ConfirmURL are optional
	RevokeURL   string
	RegisterURL string
	ConfirmURL  string
	Scopes      []string
	// Region and UserPoolID pin the expected issuer when both are set
	Region      string
	UserPoolID  string
	GroupsClaim string
	HTTPClient  *httputil.Client
	// Store keeps the provider session between runs; nil keeps it in memory only
	Store session.Storage
}

// Provider holds the provider session in memory
type Provider struct {
	cfg    Config
	oauth  *oauth2.Config
	http   *httputil.Client
	issuer string

	mu    sync.Mutex
	token *oauth2.Token
}

var _ auth.IdentityProvider = (*Provider)(nil)

// New validates cfg and returns a provider
func New(cfg Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("auth.client_id is required")
	}
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("auth.token_url is required")
	}
	if cfg.GroupsClaim == "" {
		cfg.GroupsClaim = DefaultGroupsClaim
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httputil.NewClient(nil)
	}

	p := &Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleAutoDetect,
			},
		},
		http: cfg.HTTPClient,
	}

	if cfg.Region != "" && cfg.UserPoolID != "" {
		p.issuer = fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", cfg.Region, cfg.UserPoolID)
	}

	return p, nil
}

// withClient makes oauth2 use our HTTP client
func (p *Provider) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.http.HTTPClient())
}

// SignIn exchanges username and password for tokens
func (p *Provider) SignIn(ctx context.Context, username, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.load(ctx)
	if p.token != nil {
		if usable(p.token) {
			return ErrAlreadySignedIn
		}
		slog.Debug("Held provider session is close to expiry, signing in again")
		p.forget(ctx)
	}

	tok, err := p.oauth.PasswordCredentialsToken(p.withClient(ctx), username, password)
	if err != nil {
		return fmt.Errorf("password grant failed: %w", err)
	}

	p.token = tok
	p.persist(ctx)
	slog.Debug("Provider session established", "expires", tok.Expiry)
	return nil
}

// activeToken returns a usable token, refreshing it if possible. Caller holds p.mu.
func (p *Provider) activeToken(ctx context.Context) (*oauth2.Token, error) {
	p.load(ctx)
	if p.token == nil {
		return nil, auth.ErrNoSession
	}
	if usable(p.token) {
		return p.token, nil
	}
	if p.token.RefreshToken == "" {
		p.forget(ctx)
		return nil, fmt.Errorf("session expired: %w", auth.ErrNoSession)
	}

	// an empty access token forces the refresh
	stale := &oauth2.Token{RefreshToken: p.token.RefreshToken}
	refreshed, err := p.oauth.TokenSource(p.withClient(ctx), stale).Token()
	if err != nil {
		p.forget(ctx)
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	// the refresh response may omit these
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = p.token.RefreshToken
	}
	if refreshed.Extra("id_token") == nil {
		if idToken, ok := p.token.Extra("id_token").(string); ok {
			refreshed = refreshed.WithExtra(map[string]any{"id_token": idToken})
		}
	}

	if !usable(refreshed) {
		p.forget(ctx)
		return nil, fmt.Errorf("refreshed session expires too soon: %w", auth.ErrNoSession)
	}

	slog.Info("Provider session refreshed")
	p.token = refreshed
	p.persist(ctx)
	return refreshed, nil
}

// bearer is the credential presented to the backend: the ID token when the
// provider issued one, else the access token
func bearer(tok *oauth2.Token) string {
	if idToken, ok := tok.Extra("id_token").(string); ok && idToken != "" {
		return idToken
	}
	return tok.AccessToken
}

// usable reports whether the bearer credential would still be trusted by the
// session, which needs it to outlive token.ExpiryBuffer
func usable(tok *oauth2.Token) bool {
	return token.Valid(bearer(tok), time.Now())
}

// Token returns the bearer credential of the current session
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.activeToken(ctx)
	if err != nil {
		return "", err
	}
	return bearer(tok), nil
}

// CurrentUser decodes the identity claims of the current session
func (p *Provider) CurrentUser(ctx context.Context) (*auth.Attributes, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok, err := p.activeToken(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := token.Claims(bearer(tok))
	if err != nil {
		return nil, fmt.Errorf("failed to read identity claims: %w", err)
	}

	if p.issuer != "" {
		iss, _ := claims.GetIssuer()
		if iss != p.issuer {
			return nil, fmt.Errorf("invalid session: unexpected token issuer %q", iss)
		}
	}

	return p.attributes(claims), nil
}

func (p *Provider) attributes(claims jwt.MapClaims) *auth.Attributes {
	sub, _ := claims.GetSubject()
	attrs := &auth.Attributes{
		Subject: sub,
		Email:   stringClaim(claims, "email"),
		Name:    stringClaim(claims, "name"),
		Groups:  groupsClaim(claims[p.cfg.GroupsClaim]),
	}
	if attrs.Name == "" {
		attrs.Name = stringClaim(claims, "cognito:username")
	}
	return attrs
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// groupsClaim accepts a JSON array or a space/comma separated string
func groupsClaim(v any) []string {
	switch groups := v.(type) {
	case []any:
		out := make([]string, 0, len(groups))
		for _, g := range groups {
			if s, ok := g.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		return strings.FieldsFunc(groups, func(r rune) bool { return r == ',' || r == ' ' })
	default:
		return nil
	}
}

// SignOut revokes the refresh token when a revocation endpoint is configured.
// The provider session is dropped either way.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	p.load(ctx)
	tok := p.token
	p.forget(ctx)
	p.mu.Unlock()

	if tok == nil || p.cfg.RevokeURL == "" {
		return nil
	}

	form := url.Values{}
	if tok.RefreshToken != "" {
		form.Set("token", tok.RefreshToken)
		form.Set("token_type_hint", "refresh_token")
	} else {
		form.Set("token", tok.AccessToken)
		form.Set("token_type_hint", "access_token")
	}
	form.Set("client_id", p.cfg.ClientID)
	if p.cfg.ClientSecret != "" {
		form.Set("client_secret", p.cfg.ClientSecret)
	}

	resp, err := p.http.PostForm(ctx, p.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	body, err := httputil.ReadResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read revoke response: %w", err)
	}
	if !httputil.IsSuccess(resp.StatusCode) {
		return fmt.Errorf("token revocation failed with status %d: %s", resp.StatusCode, httputil.ErrorMessage(body))
	}

	return nil
}

type signUpRequest struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type confirmRequest struct {
	ClientID string `json:"client_id"`
	Email    string `json:"email"`
	Code     string `json:"code"`
}

// SignUp registers a new account
func (p *Provider) SignUp(ctx context.Context, reg auth.Registration) error {
	if p.cfg.RegisterURL == "" {
		return fmt.Errorf("registration is not configured (auth.register_url)")
	}

	return p.postJSON(ctx, p.cfg.RegisterURL, signUpRequest{
		ClientID: p.cfg.ClientID,
		Email:    reg.Email,
		Password: reg.Password,
		Name:     reg.Name,
	})
}

// ConfirmSignUp confirms an account with the emailed code
func (p *Provider) ConfirmSignUp(ctx context.Context, username, code string) error {
	if p.cfg.ConfirmURL == "" {
		return fmt.Errorf("confirmation is not configured (auth.confirm_url)")
	}

	return p.postJSON(ctx, p.cfg.ConfirmURL, confirmRequest{
		ClientID: p.cfg.ClientID,
		Email:    username,
		Code:     code,
	})
}

func (p *Provider) postJSON(ctx context.Context, target string, payload any) error {
	resp, err := p.http.PostJSON(ctx, target, payload)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", target, err)
	}

	body, err := httputil.ReadResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if !httputil.IsSuccess(resp.StatusCode) {
		msg := httputil.ErrorMessage(body)
		if msg == "" {
			msg = resp.Status
		}
		return errors.New(msg)
	}

	return nil
}
