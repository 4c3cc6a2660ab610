package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
)

func TestApp_OutstandingReflectsGate(t *testing.T) {
	g := gate.New(3)
	a := NewApp(context.Background(), &config.Config{}, nil, nil, nil, nil, nil, g, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Empty(t, a.Outstanding())
	assert.Equal(t, 3, a.Ceiling())

	ticket, err := g.Admit("1001")
	require.NoError(t, err)
	now := time.Now()
	_, err = g.Attach(ticket, &core.ExecutionUnit{ID: "warden-1001-a1b2c3d4", JobID: "1001", StartedAt: now, Deadline: now.Add(time.Hour), State: core.UnitRunning})
	require.NoError(t, err)

	// A job that is admitted but not yet launched holds a slot but lists no unit.
	_, err = g.Admit("1002")
	require.NoError(t, err)

	units := a.Outstanding()
	require.Len(t, units, 1)
	assert.Equal(t, "warden-1001-a1b2c3d4", units[0].ID)

	require.True(t, g.Release("1001", core.UnitCompleted))
	assert.Empty(t, a.Outstanding())
}
