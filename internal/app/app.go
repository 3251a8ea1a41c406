// Package app assembles the hub's dependency graph.
//
// Both entry points (the web front started by `hub serve` and the one-shot
// terminal commands) need the same chain:
//
//	config → session store (SQLite or memory) → auth.Session
//	       → remote.Client → services
//
// Building it here keeps cmd/hub free of wiring and gives each command one
// Close to call on the way out.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sakif/resourcehub/internal/auth"
	"github.com/sakif/resourcehub/internal/config"
	"github.com/sakif/resourcehub/internal/repository"
	"github.com/sakif/resourcehub/internal/repository/remote"
	sqliteRepo "github.com/sakif/resourcehub/internal/repository/sqlite"
	"github.com/sakif/resourcehub/internal/service"
)

// App owns the long-lived dependencies.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Session  *auth.Session
	API      *remote.Client
	Identity *service.IdentityResolver
	Auth     *service.AuthService
	Feed     *service.FeedService

	db *sqliteRepo.DB // nil when ephemeral
}

// NewLogger builds the text logger every command uses.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Option customises New. Tests use it to point the client at httptest.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient replaces the HTTP client used for the remote API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New opens the session store, restores the session, and wires the services.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger}

	var store repository.SessionRepository
	if cfg.Ephemeral {
		store = &auth.MemoryStore{}
	} else {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			return nil, fmt.Errorf("app: creating database directory %s: %w", dbDir, err)
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("app: opening session database: %w", err)
		}
		a.db = db
		store = db
	}

	session, err := auth.OpenSession(ctx, store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: restoring session: %w", err)
	}
	a.Session = session

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	a.API = remote.New(cfg.APIURL, session,
		remote.WithHTTPClient(httpClient),
		remote.WithIdentityPath(cfg.IdentityPath),
		remote.WithLogger(logger),
	)

	a.Identity = service.NewIdentityResolver(session, a.API, a.API, logger)
	a.Auth = service.NewAuthService(a.API, session, logger)
	a.Feed = service.NewFeedService(a.API, logger)

	logger.Debug("app ready",
		slog.String("api", cfg.APIURL),
		slog.Bool("ephemeral", cfg.Ephemeral),
		slog.Bool("logged_in", session.HasToken()),
	)
	return a, nil
}

// NewDetail builds an unloaded resource detail view.
func (a *App) NewDetail(opts ...service.DetailOption) *service.ResourceDetail {
	opts = append([]service.DetailOption{service.WithReconcileDelay(a.Config.ReconcileDelay)}, opts...)
	return service.NewResourceDetail(a.Identity, a.API, a.API, a.API, a.Logger, opts...)
}

// NewProfile builds an empty "my resources" view.
func (a *App) NewProfile() *service.ProfileView {
	return service.NewProfileView(a.API, a.Identity, a.Logger)
}

// Close releases the session database, if one is open.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
