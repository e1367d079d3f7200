package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/lepinkainen/seodash/internal/auth"
	"github.com/lepinkainen/seodash/internal/auth/oauthidp"
	"github.com/lepinkainen/seodash/internal/config"
	"github.com/lepinkainen/seodash/internal/dashboard"
	"github.com/lepinkainen/seodash/pkg/api"
	"github.com/lepinkainen/seodash/pkg/apperror"
	"github.com/lepinkainen/seodash/pkg/database"
	httputil "github.com/lepinkainen/seodash/pkg/http"
	"github.com/lepinkainen/seodash/pkg/session"
)

// app wires configuration, storage, session, API client and identity provider
type app struct {
	cfg    *config.Config
	format dashboard.Format
	out    io.Writer
	nav    *dashboard.TerminalNavigator

	store   session.Storage
	db      *database.Database
	kv      *database.KVStore
	closers []func() error

	session *session.Session
	client  *api.Client
}

func newApp(ctx context.Context, cfg *config.Config, format dashboard.Format, out io.Writer) (*app, error) {
	a := &app{
		cfg:    cfg,
		format: format,
		out:    out,
		nav:    dashboard.NewTerminalNavigator(out),
	}

	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}

	a.session = session.New(a.store)

	client, err := api.NewClient(api.Config{
		Endpoint:          cfg.API.Endpoint,
		Origin:            cfg.API.Origin,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	}, a.session, a.nav)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	a.client = client

	return a, nil
}

// openStorage opens the session backend selected by storage.driver
func (a *app) openStorage(ctx context.Context) error {
	switch a.cfg.Storage.Driver {
	case config.DriverSQLite:
		dbConfig := database.DefaultConfig()
		dbConfig.Path = a.cfg.Storage.Path
		db, err := database.Open(dbConfig)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		store, err := database.NewKVStore(ctx, db, database.DefaultTable)
		if err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to prepare session store: %w", err)
		}
		if err := store.CleanupExpired(ctx); err != nil {
			slog.Warn("Failed to clean up expired session entries", "error", err)
		}
		a.db = db
		a.kv = store
		a.store = store
		a.closers = append(a.closers, db.Close)

	case config.DriverRedis:
		store, err := session.OpenRedis(ctx, a.cfg.Storage.RedisURL, a.cfg.Storage.KeyPrefix)
		if err != nil {
			return err
		}
		a.store = store
		a.closers = append(a.closers, store.Close)

	default:
		slog.Warn("Using in-memory session storage, sign-ins will not persist")
		a.store = session.NewMemoryStorage()
	}

	slog.Debug("Session storage ready", "driver", a.cfg.Storage.Driver)
	return nil
}

// Close releases the storage backend
func (a *app) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}
	a.closers = nil
}

// authManager builds the identity provider and the auth manager over the shared session
func (a *app) authManager(ctx context.Context) (*auth.Manager, error) {
	if err := a.cfg.ValidateAuth(); err != nil {
		return nil, err
	}

	httpConfig := httputil.DefaultConfig()
	httpConfig.Timeout = a.cfg.API.Timeout

	idp, err := oauthidp.New(oauthidp.Config{
		ClientID:     a.cfg.Auth.ClientID,
		ClientSecret: a.cfg.Auth.ClientSecret,
		TokenURL:     a.cfg.Auth.TokenURL,
		RevokeURL:    a.cfg.Auth.RevokeURL,
		RegisterURL:  a.cfg.Auth.RegisterURL,
		ConfirmURL:   a.cfg.Auth.ConfirmURL,
		Scopes:       a.cfg.Auth.Scopes,
		Region:       a.cfg.Auth.Region,
		UserPoolID:   a.cfg.Auth.UserPoolID,
		GroupsClaim:  a.cfg.Auth.GroupsClaim,
		HTTPClient:   httputil.NewClient(httpConfig),
		Store:        a.store,
	})
	if err != nil {
		return nil, err
	}

	return auth.NewManager(ctx, idp, a.session, a.nav, auth.Options{DefaultRole: a.cfg.Auth.DefaultRole}), nil
}

// plainError is a failure already phrased for the user. It is printed as is,
// without the error surface and without touching the session.
type plainError struct {
	msg string
	err error
}

func (e *plainError) Error() string { return e.msg }
func (e *plainError) Unwrap() error { return e.err }

// localFailure keeps a manager failure on the command line unless the
// navigator already showed an error surface for it
func (a *app) localFailure(m *auth.Manager, err error) error {
	if msg := m.Message(); msg != "" && !a.nav.ErrorShown() {
		return &plainError{msg: msg, err: err}
	}
	return err
}

// report prints a failure. Errors already routed to the error surface are not
// repeated. Failures that invalidate the credential purge the session.
func (a *app) report(ctx context.Context, w io.Writer, err error) {
	var plain *plainError
	if errors.As(err, &plain) {
		fmt.Fprintf(w, "Error: %s\n", plain.msg)
		return
	}

	category := apperror.Classify(err)
	if apperror.PurgesCredentials(category) {
		if clearErr := a.session.Clear(ctx); clearErr != nil {
			slog.Error("Failed to purge session", "error", clearErr)
		}
	}

	if a.nav.ErrorShown() {
		slog.Debug("Error already shown", "error", err)
		return
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) && (appErr.Kind == apperror.KindValidation || appErr.Kind == apperror.KindNotImplemented) {
		fmt.Fprintf(w, "Error: %s\n", appErr.Message)
		return
	}

	fmt.Fprintln(w, dashboard.RenderErrorSurface(category, err.Error()))
}

func featureDisabled(name, key string) error {
	return apperror.Validation(fmt.Sprintf("%s is disabled (features.%s)", name, key))
}
