package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
)

const stopTimeout = 15 * time.Second

// Watchdog reaps units that outlived their runtime ceiling plus grace, so a
// lost completion can never hold a gate slot forever.
type Watchdog struct {
	gate     *gate.Gate
	launcher core.UnitLauncher
	notifier core.CompletionNotifier
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

func NewWatchdog(cfg *config.Config, g *gate.Gate, launcher core.UnitLauncher, notifier core.CompletionNotifier, logger *slog.Logger) *Watchdog {
	return &Watchdog{
		gate:     g,
		launcher: launcher,
		notifier: notifier,
		interval: cfg.Gate.SweepInterval,
		grace:    cfg.Gate.Grace,
		now:      time.Now,
		logger:   logger,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watchdog started", "interval", w.interval, "grace", w.grace)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep stops every expired unit and reports it as timed out. It returns the
// number of units reaped.
func (w *Watchdog) Sweep(ctx context.Context) int {
	expired := w.gate.Expired(w.now(), w.grace)
	for _, unit := range expired {
		log := w.logger.With("unit_id", unit.ID, "job_id", unit.JobID, "deadline", unit.Deadline)
		log.Warn("execution unit exceeded its runtime ceiling")

		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		if err := w.launcher.Stop(stopCtx, unit.ID); err != nil {
			log.Error("failed to stop expired unit", "error", err)
		}
		cancel()

		err := w.notifier.Notify(ctx, core.Completion{
			UnitID: unit.ID,
			JobID:  unit.JobID,
			State:  core.UnitTimedOut,
			Source: core.SourceWatchdog,
			At:     w.now(),
		})
		if err != nil {
			log.Error("failed to report expired unit", "error", err)
		}
	}
	return len(expired)
}
