package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevigo/runner-warden/internal/app"
	"github.com/sevigo/runner-warden/internal/wire"
)

func main() {
	if err := run(); err != nil {
		slog.Error("runner-warden failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	warden, cleanup, err := wire.InitializeApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize runner-warden: %w", err)
	}
	defer cleanup()

	go func() {
		if err := warden.Start(); err != nil {
			slog.Error("runner-warden component failed", "error", err)
			cancel()
		}
	}()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		slog.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("component stopped, shutting down")
	}

	// A second signal abandons the drain of queued completions.
	go func() {
		sig := <-signals
		slog.Warn("forced exit", "signal", sig.String(), "outstanding", len(warden.Outstanding()))
		os.Exit(1)
	}()

	stopErr := warden.Stop()
	reportOutstanding(warden)
	if stopErr != nil {
		return fmt.Errorf("failed to stop runner-warden: %w", stopErr)
	}
	return nil
}

// reportOutstanding logs the units left running on the platform. Their slots
// are not carried over to the next process.
func reportOutstanding(warden *app.App) {
	units := warden.Outstanding()
	if len(units) == 0 {
		return
	}
	slog.Warn("execution units still running at shutdown", "outstanding", len(units), "ceiling", warden.Ceiling())
	for _, u := range units {
		slog.Warn("unit left running", "unit_id", u.ID, "job_id", u.JobID, "deadline", u.Deadline)
	}
}
