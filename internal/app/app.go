// Package app orchestrates the long-running parts of runner-warden: the HTTP
// ingress, the platform completion stream, the completion workers and the watchdog.
package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
	"github.com/sevigo/runner-warden/internal/jobs"
	"github.com/sevigo/runner-warden/internal/server"
)

// App holds the main application components.
type App struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cfg         *config.Config
	server      *server.Server
	provisioner *jobs.Provisioner
	dispatcher  *jobs.CompletionDispatcher
	watchdog    *jobs.Watchdog
	source      core.CompletionSource
	gate        *gate.Gate
	logger      *slog.Logger

	started atomic.Bool
	stopped chan struct{}
}

// NewApp assembles the application from its wired components.
func NewApp(
	ctx context.Context,
	cfg *config.Config,
	srv *server.Server,
	provisioner *jobs.Provisioner,
	dispatcher *jobs.CompletionDispatcher,
	watchdog *jobs.Watchdog,
	source core.CompletionSource,
	g *gate.Gate,
	logger *slog.Logger,
) *App {
	ctx, cancel := context.WithCancel(ctx)
	return &App{
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
		server:      srv,
		provisioner: provisioner,
		dispatcher:  dispatcher,
		watchdog:    watchdog,
		source:      source,
		gate:        g,
		logger:      logger,
		stopped:     make(chan struct{}),
	}
}

// Start runs every component and blocks until one of them fails or Stop is called.
func (a *App) Start() error {
	a.started.Store(true)
	defer close(a.stopped)

	a.logger.Info("starting runner-warden",
		"server_port", a.cfg.Server.Port,
		"max_concurrent_units", a.cfg.Gate.MaxConcurrentUnits,
		"nomad_addr", a.cfg.Nomad.Addr,
		"labels", a.cfg.Runner.Labels,
		"callbacks", a.cfg.Server.PublicURL != "" && a.cfg.Callback.Secret != "",
	)

	g, ctx := errgroup.WithContext(a.ctx)
	g.Go(func() error {
		defer a.cancel()
		return a.server.Start()
	})
	g.Go(func() error {
		return a.source.Watch(ctx, a.dispatcher.Queue())
	})
	g.Go(func() error {
		return a.watchdog.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("runner-warden stopped unexpectedly", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down runner-warden services")

	// Stop the HTTP server first to prevent new incoming deliveries.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	a.cancel()
	if a.started.Load() {
		<-a.stopped
	}

	// Let best-effort revocations finish, then drain queued completions.
	a.provisioner.Wait()
	a.dispatcher.Stop()

	if serverErr != nil {
		a.logger.Error("runner-warden stopped with errors", "error", serverErr)
		return serverErr
	}

	a.logger.Info("runner-warden stopped successfully")
	return nil
}

// Outstanding lists the units still holding a slot. Units are never stopped on
// shutdown; they finish on the platform and are not tracked by the next process.
func (a *App) Outstanding() []core.ExecutionUnit {
	return a.gate.Units()
}

// Ceiling is the configured concurrency limit.
func (a *App) Ceiling() int {
	return a.gate.Ceiling()
}
