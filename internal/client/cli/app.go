package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/dmitrijs2005/sociusfit/internal/client/api"
	"github.com/dmitrijs2005/sociusfit/internal/client/auth"
	"github.com/dmitrijs2005/sociusfit/internal/client/config"
	"github.com/dmitrijs2005/sociusfit/internal/client/credentials"
	"github.com/dmitrijs2005/sociusfit/internal/client/database"
	"github.com/dmitrijs2005/sociusfit/internal/client/metrics"
	"github.com/dmitrijs2005/sociusfit/internal/client/services"
	"github.com/dmitrijs2005/sociusfit/internal/client/transport"
	"github.com/dmitrijs2005/sociusfit/internal/filex"
	"github.com/dmitrijs2005/sociusfit/internal/logging"
)

// Streams are the standard streams of a command. Logs go to Err.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

type App struct {
	config  *config.Config
	db      *sql.DB
	store   *credentials.Store
	session services.SessionService
	logger  logging.Logger
	prompt  *prompter
	out     io.Writer
}

// NewApp opens the session database and wires the session stack:
//
//	UserClient -> RefreshCoordinator -> HeaderInjector -> transport chain
//
// The auth endpoints use the transport chain directly.
func NewApp(ctx context.Context, cfg *config.Config, s Streams) (*App, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, s.Err)
	if err != nil {
		return nil, err
	}

	if _, err := filex.EnsureParentDir(cfg.DatabasePath); err != nil {
		return nil, err
	}
	db, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", cfg.DatabasePath, "error", err)
		return nil, err
	}

	var opts []credentials.SQLiteOption
	if cfg.EncryptionSecret != "" {
		sealer, err := credentials.SealerFromSecret(ctx, db, cfg.EncryptionSecret)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		opts = append(opts, credentials.WithSealer(sealer))
	}
	store := credentials.NewStore(ctx, credentials.NewSQLiteBackend(db, opts...), logger)

	m := metrics.New()
	base, err := transport.New(cfg.APIBaseURL,
		transport.WithTimeout(cfg.RequestTimeout),
		transport.WithLogger(logger),
		transport.WithMetrics(m),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	authClient := api.NewAuthClient(base)
	coordinator := auth.NewRefreshCoordinator(store, authClient,
		auth.WithLogger(logger),
		auth.WithMetrics(m),
		auth.WithRefreshTimeout(cfg.RefreshTimeout),
	)
	protected := base.With(coordinator.Interceptor(), auth.NewHeaderInjector(store).Interceptor())

	app := &App{
		config:  cfg,
		db:      db,
		store:   store,
		session: services.NewSessionService(store, authClient, api.NewUserClient(protected), coordinator, logger),
		logger:  logger,
		prompt:  newPrompter(s.In, s.Out),
		out:     s.Out,
	}
	app.session.OnForcedLogout(func(error) {
		fmt.Fprintln(app.out, "Your session has expired. Please log in again.")
	})
	return app, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.db.Close()
}
