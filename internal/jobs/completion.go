package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
	"github.com/sevigo/runner-warden/internal/storage"
)

// ErrDispatcherStopped is returned by Notify after Stop.
var ErrDispatcherStopped = errors.New("completion dispatcher is stopped")

// CompletionDispatcher implements core.CompletionNotifier. It manages a pool of
// worker goroutines that turn completion notifications into gate releases.
// A unit that reports its own completion is stopped before its slot is freed.
type CompletionDispatcher struct {
	gate       *gate.Gate
	store      storage.Store
	launcher   core.UnitLauncher
	queue      chan core.Completion // Completions from the platform, callbacks and the watchdog.
	maxWorkers int                  // Number of concurrent workers.
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup // Tracks active workers for graceful shutdown.
	logger     *slog.Logger
}

// NewCompletionDispatcher starts the worker pool. Worker and queue sizes below
// one default to one.
func NewCompletionDispatcher(cfg *config.Config, g *gate.Gate, store storage.Store, launcher core.UnitLauncher, logger *slog.Logger) *CompletionDispatcher {
	maxWorkers := max(cfg.Gate.CompletionWorkers, 1)
	queueSize := max(cfg.Gate.CompletionQueueSize, 1)

	d := &CompletionDispatcher{
		gate:       g,
		store:      store,
		launcher:   launcher,
		queue:      make(chan core.Completion, queueSize),
		maxWorkers: maxWorkers,
		done:       make(chan struct{}),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

// Queue exposes the send side of the completion channel for core.CompletionSource.
func (d *CompletionDispatcher) Queue() chan<- core.Completion {
	return d.queue
}

func (d *CompletionDispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes completions until Stop, then drains what is queued.
func (d *CompletionDispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Debug("starting completion worker", "id", workerID)

	for {
		select {
		case c := <-d.queue:
			d.process(c)
		case <-d.done:
			for {
				select {
				case c := <-d.queue:
					d.process(c)
				default:
					d.logger.Debug("shutting down completion worker", "id", workerID)
					return
				}
			}
		}
	}
}

func (d *CompletionDispatcher) process(c core.Completion) {
	if !c.State.Terminal() {
		d.logger.Warn("ignoring non-terminal completion", "unit_id", c.UnitID, "job_id", c.JobID, "state", c.State)
		return
	}

	ctx := context.Background()
	if c.Source == core.SourceCallback && c.UnitID == "" {
		if unit, ok := d.gate.Lookup(c.JobID); ok {
			d.stopUnit(ctx, unit.ID, c.JobID)
		}
	}

	var (
		jobID    = c.JobID
		unitID   = c.UnitID
		released bool
	)
	if c.UnitID != "" {
		jobID, released = d.gate.ReleaseUnit(c.UnitID, c.State)
	} else {
		unitID, released = d.gate.ReleaseJob(c.JobID, c.State)
	}

	if !released {
		d.logger.Debug("completion did not release a slot",
			"unit_id", c.UnitID, "job_id", c.JobID, "state", c.State, "source", c.Source)
		return
	}

	d.logger.Info("execution unit finished",
		"unit_id", unitID,
		"job_id", jobID,
		"state", c.State,
		"source", c.Source,
		"outstanding", d.gate.Outstanding(),
	)

	var err error
	if c.UnitID != "" {
		err = d.store.UpdateUnitState(ctx, c.UnitID, c.State, c.Source)
	} else {
		err = d.store.UpdateJobState(ctx, jobID, "", c.State, c.Source)
	}
	if err != nil {
		d.logger.Warn("failed to record completion", "job_id", jobID, "error", err)
	}
}

func (d *CompletionDispatcher) stopUnit(ctx context.Context, unitID, jobID string) {
	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := d.launcher.Stop(stopCtx, unitID); err != nil {
		d.logger.Error("failed to stop self-reported unit", "unit_id", unitID, "job_id", jobID, "error", err)
	}
}

// Notify queues a completion, waiting for room in the queue until ctx is done.
func (d *CompletionDispatcher) Notify(ctx context.Context, c core.Completion) error {
	select {
	case <-d.done:
		return ErrDispatcherStopped
	default:
	}

	select {
	case d.queue <- c:
		return nil
	case <-d.done:
		return ErrDispatcherStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts down the workers after they drained the queue.
func (d *CompletionDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("stopping completion dispatcher")
		close(d.done)
		d.wg.Wait()
		d.logger.Info("completion dispatcher stopped")
	})
}
