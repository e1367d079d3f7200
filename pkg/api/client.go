// Package api is the client for the scraping backend's function endpoint.
//
// Every remote call goes through Client.Request, which attaches the session
// credential and maps failed responses onto the apperror taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/lepinkainen/seodash/pkg/apperror"
	httputil "github.com/lepinkainen/seodash/pkg/http"
	"github.com/lepinkainen/seodash/pkg/navigate"
	"github.com/lepinkainen/seodash/pkg/session"
)

// Config configures the API client
type Config struct {
	Endpoint          string
	Origin            string
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
	// Transport overrides the round tripper, mainly for tests
	Transport http.RoundTripper
}

// Client talks to the backend endpoint on behalf of the signed-in user
type Client struct {
	http     *httputil.Client
	endpoint *url.URL
	origin   string
	session  *session.Session
	nav      navigate.Navigator
	limiter  RateLimiter
}

// NewClient creates a client. nav receives the error route when the backend rejects the credential.
func NewClient(cfg Config, sess *session.Session, nav navigate.Navigator) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("api endpoint is required")
	}
	endpoint, err := url.Parse(cfg.Endpoint)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid api endpoint %q", cfg.Endpoint)
	}
	if sess == nil {
		return nil, fmt.Errorf("session is required")
	}
	if nav == nil {
		nav = navigate.Func(func(string) {})
	}

	httpConfig := httputil.DefaultConfig()
	if cfg.Timeout > 0 {
		httpConfig.Timeout = cfg.Timeout
	}
	if cfg.UserAgent != "" {
		httpConfig.UserAgent = cfg.UserAgent
	}
	httpConfig.Transport = cfg.Transport

	return &Client{
		http:     httputil.NewClient(httpConfig),
		endpoint: endpoint,
		origin:   cfg.Origin,
		session:  sess,
		nav:      nav,
		limiter:  NewRateLimiter(cfg.RequestsPerSecond),
	}, nil
}

// Request sends params to the endpoint and returns the JSON body of a 2xx reply verbatim.
// GET params are query encoded, anything else is sent as a JSON body.
//
// Failures are *apperror.Error values:
//   - 401/403: AuthRequired. The session is purged and the navigator is sent to the auth error route.
//   - 404/502/503/504: BackendUnavailable.
//   - other non-2xx: Unknown with the status and the body's message.
//   - no response at all: BackendUnavailable with status 0.
func (c *Client) Request(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	action, _ := params["action"].(string)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperror.BackendUnavailable(0, "request canceled", err)
	}

	req, err := c.newRequest(ctx, method, params)
	if err != nil {
		return nil, apperror.Unknown(0, err.Error())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logAPICall(action, method, 0, duration, err)
		return nil, apperror.BackendUnavailable(0, "network error: unable to reach the backend", err)
	}

	body, err := httputil.ReadResponseBody(resp)
	if err != nil {
		c.logAPICall(action, method, resp.StatusCode, duration, err)
		return nil, apperror.BackendUnavailable(0, "network error: response interrupted", err)
	}

	if apiErr := c.checkStatus(ctx, resp.StatusCode, body); apiErr != nil {
		c.logAPICall(action, method, resp.StatusCode, duration, apiErr)
		return nil, apiErr
	}

	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("null")
	}
	if !json.Valid(body) {
		err := apperror.Unknown(resp.StatusCode, "backend returned invalid JSON")
		c.logAPICall(action, method, resp.StatusCode, duration, err)
		return nil, err
	}

	c.logAPICall(action, method, resp.StatusCode, duration, nil)
	return json.RawMessage(body), nil
}

func (c *Client) newRequest(ctx context.Context, method string, params map[string]any) (*http.Request, error) {
	target := *c.endpoint
	var body io.Reader

	if method == http.MethodGet {
		q := target.Query()
		for key, value := range params {
			q.Set(key, fmt.Sprint(value))
		}
		target.RawQuery = q.Encode()
	} else {
		payload, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.origin != "" {
		req.Header.Set("Origin", c.origin)
	}

	tok, err := c.session.Token(ctx)
	if err != nil {
		slog.Warn("Could not read stored credential, sending request without it", "error", err)
	} else if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	return req, nil
}

func (c *Client) checkStatus(ctx context.Context, status int, body []byte) *apperror.Error {
	if httputil.IsSuccess(status) {
		return nil
	}

	message := httputil.ErrorMessage(body)
	if message == "" {
		message = http.StatusText(status)
	}

	var apiErr *apperror.Error
	switch {
	case httputil.IsAuthStatus(status):
		apiErr = apperror.AuthRequired(status, message)
	case httputil.IsBackendUnavailableStatus(status):
		apiErr = apperror.BackendUnavailable(status, message, nil)
	default:
		apiErr = apperror.Unknown(status, message)
	}

	if category := apperror.Classify(apiErr); apperror.PurgesCredentials(category) {
		if err := c.session.Clear(ctx); err != nil {
			slog.Error("Failed to purge session after auth failure", "error", err)
		}
		c.nav.Navigate(navigate.ErrorRoute(category, message))
	}
	return apiErr
}

// logAPICall logs API call statistics
func (c *Client) logAPICall(action, method string, status int, duration time.Duration, err error) {
	fields := []any{
		"action", action,
		"method", method,
		"status", status,
		"duration", duration,
	}

	if err != nil {
		fields = append(fields, "error", err)
		slog.Warn("API call failed", fields...)
		return
	}

	slog.Debug("API call completed", fields...)
}
