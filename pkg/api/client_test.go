package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/seodash/pkg/apperror"
	"github.com/lepinkainen/seodash/pkg/navigate"
	"github.com/lepinkainen/seodash/pkg/session"
	"github.com/lepinkainen/seodash/pkg/testutil"
)

type testEnv struct {
	client  *Client
	store   *session.MemoryStorage
	session *session.Session
	nav     *navigate.Recorder
}

func newTestEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := session.NewMemoryStorage()
	sess := session.New(store)
	nav := &navigate.Recorder{}

	client, err := NewClient(Config{
		Endpoint: server.URL + "/api",
		Origin:   "https://app.example.com",
		Timeout:  5 * time.Second,
	}, sess, nav)
	require.NoError(t, err)

	return &testEnv{client: client, store: store, session: sess, nav: nav}
}

func (e *testEnv) signIn(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	raw := testutil.TokenExpiringIn(t, expiresIn)
	require.NoError(t, e.session.Save(context.Background(), &session.User{ID: "u1", Email: "a@example.com"}, raw))
	return raw
}

func TestNewClientValidation(t *testing.T) {
	sess := session.New(session.NewMemoryStorage())

	_, err := NewClient(Config{}, sess, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{Endpoint: "not-a-url"}, sess, nil)
	assert.Error(t, err)

	_, err = NewClient(Config{Endpoint: "https://api.example.com"}, nil, nil)
	assert.Error(t, err)

	client, err := NewClient(Config{Endpoint: "https://api.example.com"}, sess, nil)
	require.NoError(t, err)
	assert.NotNil(t, client.nav)
}

func TestRequestHeadersAndBody(t *testing.T) {
	var gotHeader http.Header
	var gotBody map[string]any
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	raw := env.signIn(t, time.Hour)

	_, err := env.client.Request(context.Background(), http.MethodPost, map[string]any{"action": "scrape", "url": "https://example.com/"})
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeader.Get("Accept"))
	assert.Equal(t, "https://app.example.com", gotHeader.Get("Origin"))
	assert.Equal(t, "Bearer "+raw, gotHeader.Get("Authorization"))
	assert.NotEmpty(t, gotHeader.Get("X-Request-Id"))
	assert.Equal(t, "scrape", gotBody["action"])
	assert.Equal(t, "https://example.com/", gotBody["url"])
}

func TestRequestGetEncodesQuery(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "list_files", r.URL.Query().Get("action"))
		assert.Equal(t, "p 1", r.URL.Query().Get("project_id"))
		_, _ = w.Write([]byte(`[]`))
	})

	raw, err := env.client.Request(context.Background(), http.MethodGet, map[string]any{"action": "list_files", "project_id": "p 1"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestRequestStaleTokenIsPurgedBeforeSending(t *testing.T) {
	var gotAuth string
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	})
	env.signIn(t, 4*time.Minute)

	_, err := env.client.Request(context.Background(), http.MethodPost, map[string]any{"action": "list_projects"})
	require.NoError(t, err)

	assert.Empty(t, gotAuth, "credential inside the expiry buffer must not be sent")
	_, tokenStored, _ := env.store.Get(context.Background(), session.TokenKey)
	_, userStored, _ := env.store.Get(context.Background(), session.UserKey)
	assert.False(t, tokenStored)
	assert.False(t, userStored)
}

func TestRequestAuthFailurePurgesAndNavigates(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"message":"Token is invalid"}`))
			})
			env.signIn(t, time.Hour)

			_, err := env.client.Request(context.Background(), http.MethodPost, map[string]any{"action": "list_projects"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrAuthRequired))
			assert.Equal(t, status, apperror.StatusCode(err))

			_, tokenStored, _ := env.store.Get(context.Background(), session.TokenKey)
			_, userStored, _ := env.store.Get(context.Background(), session.UserKey)
			assert.False(t, tokenStored)
			assert.False(t, userStored)

			category, message, ok := navigate.ParseErrorRoute(env.nav.Last())
			require.True(t, ok, "expected error route, got %q", env.nav.Last())
			assert.Equal(t, apperror.CategoryAuth, category)
			assert.Equal(t, "Token is invalid", message)
		})
	}
}

func TestRequestStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   apperror.Kind
		wantMsg    string
		wantStatus int
	}{
		{"not found", http.StatusNotFound, "", apperror.KindBackendUnavailable, "Not Found", 404},
		{"bad gateway", http.StatusBadGateway, "upstream down", apperror.KindBackendUnavailable, "upstream down", 502},
		{"service unavailable", http.StatusServiceUnavailable, "", apperror.KindBackendUnavailable, "Service Unavailable", 503},
		{"gateway timeout", http.StatusGatewayTimeout, "", apperror.KindBackendUnavailable, "Gateway Timeout", 504},
		{"internal error with json", http.StatusInternalServerError, `{"error":"boom"}`, apperror.KindUnknown, "boom", 500},
		{"bad request", http.StatusBadRequest, `{"message":"missing url"}`, apperror.KindUnknown, "missing url", 400},
		{"teapot plain text", http.StatusTeapot, "short and stout", apperror.KindUnknown, "short and stout", 418},
		{"bad request about credentials", http.StatusBadRequest, `{"message":"Invalid token in request"}`, apperror.KindUnknown, "Invalid token in request", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			env.signIn(t, time.Hour)

			_, err := env.client.Request(context.Background(), http.MethodPost, map[string]any{"action": "list_projects"})
			require.Error(t, err)

			var apiErr *apperror.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)

			assert.Empty(t, env.nav.Routes(), "non-auth failures must not redirect")
			assert.True(t, env.session.Authenticated(context.Background()), "non-auth failures keep the session")
		})
	}
}

func TestRequestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client, err := NewClient(Config{Endpoint: endpoint, Timeout: time.Second}, session.New(session.NewMemoryStorage()), nil)
	require.NoError(t, err)

	_, err = client.Request(context.Background(), http.MethodPost, map[string]any{"action": "list_projects"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBackendUnavailable))
	assert.Equal(t, 0, apperror.StatusCode(err))
	assert.Equal(t, apperror.CategoryNetwork, apperror.Classify(err))
}

func TestRequestDoesNotRetry(t *testing.T) {
	calls := 0
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := env.client.Request(context.Background(), http.MethodPost, map[string]any{"action": "list_projects"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRequestCanceledContext(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("canceled request should not reach the server")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.client.Request(ctx, http.MethodPost, map[string]any{"action": "list_projects"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRequestInvalidJSON(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := env.client.Request(context.Background(), http.MethodPost, map[string]any{"action": "list_projects"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrUnknown))
}

func TestRequestEmptyBodyIsNull(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	raw, err := env.client.Request(context.Background(), http.MethodPost, map[string]any{"action": "list_projects"})
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}
