package wire

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/wire"

	"github.com/sevigo/runner-warden/internal/app"
	"github.com/sevigo/runner-warden/internal/callback"
	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/db"
	"github.com/sevigo/runner-warden/internal/gate"
	"github.com/sevigo/runner-warden/internal/github"
	"github.com/sevigo/runner-warden/internal/jobs"
	"github.com/sevigo/runner-warden/internal/launcher/nomad"
	"github.com/sevigo/runner-warden/internal/logger"
	"github.com/sevigo/runner-warden/internal/server"
	"github.com/sevigo/runner-warden/internal/storage"
)

// AppSet provides every component of the running service.
var AppSet = wire.NewSet(
	config.LoadConfig,
	provideLoggerConfig,
	provideLogWriter,
	provideSlogLogger,
	provideGate,
	provideSigner,
	provideStore,
	github.NewClientSource,
	github.NewIssuer,
	wire.Bind(new(core.CredentialIssuer), new(*github.Issuer)),
	nomad.NewLauncher,
	wire.Bind(new(core.UnitLauncher), new(*nomad.Launcher)),
	wire.Bind(new(core.CompletionSource), new(*nomad.Launcher)),
	jobs.NewProvisioner,
	wire.Bind(new(core.Provisioner), new(*jobs.Provisioner)),
	jobs.NewCompletionDispatcher,
	wire.Bind(new(core.CompletionNotifier), new(*jobs.CompletionDispatcher)),
	jobs.NewWatchdog,
	server.NewServer,
	app.NewApp,
)

func provideLoggerConfig(cfg *config.Config) logger.Config {
	return cfg.Logging
}

func provideLogWriter(cfg *config.Config) io.Writer {
	return logger.OutputFor(cfg.Logging)
}

func provideSlogLogger(loggerConfig logger.Config, writer io.Writer) *slog.Logger {
	return logger.NewLogger(loggerConfig, writer)
}

func provideGate(cfg *config.Config) *gate.Gate {
	return gate.New(cfg.Gate.MaxConcurrentUnits)
}

func provideSigner(cfg *config.Config) *callback.Signer {
	return callback.NewSigner(cfg.Callback.Secret)
}

// provideStore connects the job ledger when a database is configured and
// falls back to a store that records nothing.
func provideStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, func(), error) {
	if !cfg.Database.Enabled() {
		logger.Info("job ledger disabled, no database configured")
		return storage.NewNoopStore(), func() {}, nil
	}
	dbConn, cleanup, err := db.NewDatabase(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}
	return storage.NewStore(dbConn.DB), cleanup, nil
}
