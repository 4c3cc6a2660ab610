package nomad

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/nomad/api"

	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/util"
)

const (
	exitTimedOut = 124
	exitKilled   = 137
	maxBackoff   = 30 * time.Second
)

var errStreamClosed = errors.New("event stream closed")

// Watch follows the allocation event stream and forwards terminal allocations
// of units launched by this deployment to sink. It reconnects with exponential
// backoff and only returns when ctx is done. Events may be delivered more than
// once after a reconnect.
func (l *Launcher) Watch(ctx context.Context, sink chan<- core.Completion) error {
	var index uint64
	backoff := time.Second

	for {
		received, err := l.stream(ctx, sink, &index)
		if ctx.Err() != nil {
			return nil
		}
		if received {
			backoff = time.Second
		}
		l.logger.Warn("nomad event stream interrupted, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (l *Launcher) stream(ctx context.Context, sink chan<- core.Completion, index *uint64) (bool, error) {
	topics := map[api.Topic][]string{api.TopicAllocation: {"*"}}
	q := (&api.QueryOptions{Namespace: l.nomad.Namespace}).WithContext(ctx)

	events, err := l.events.Stream(ctx, topics, *index, q)
	if err != nil {
		return false, err
	}

	received := false
	for {
		select {
		case <-ctx.Done():
			return received, ctx.Err()
		case batch, ok := <-events:
			if !ok {
				return received, errStreamClosed
			}
			if batch.Err != nil {
				return received, batch.Err
			}
			if batch.IsHeartbeat() {
				continue
			}
			received = true
			*index = batch.Index

			for i := range batch.Events {
				alloc, err := batch.Events[i].Allocation()
				if err != nil || alloc == nil {
					continue
				}
				c, ok := l.completionFor(alloc)
				if !ok {
					continue
				}
				select {
				case sink <- c:
				case <-ctx.Done():
					return received, ctx.Err()
				}
			}
		}
	}
}

// completionFor maps a terminal allocation of one of our jobs to a completion.
func (l *Launcher) completionFor(alloc *api.Allocation) (core.Completion, bool) {
	if !strings.HasPrefix(alloc.JobID, util.UnitPrefix(l.nomad.JobPrefix)) {
		return core.Completion{}, false
	}

	var state core.UnitState
	switch alloc.ClientStatus {
	case api.AllocClientStatusComplete:
		state = core.UnitCompleted
	case api.AllocClientStatusFailed, api.AllocClientStatusLost:
		state = core.UnitFailed
	default:
		return core.Completion{}, false
	}

	if code, ok := exitCode(alloc); ok && (code == exitTimedOut || code == exitKilled) {
		state = core.UnitTimedOut
	}

	return core.Completion{
		UnitID: alloc.JobID,
		State:  state,
		Source: core.SourcePlatform,
		At:     l.now(),
	}, true
}

func exitCode(alloc *api.Allocation) (int, bool) {
	ts, ok := alloc.TaskStates[taskName]
	if !ok || ts == nil {
		return 0, false
	}
	for i := len(ts.Events) - 1; i >= 0; i-- {
		if e := ts.Events[i]; e != nil && e.Type == api.TaskTerminated {
			return e.ExitCode, true
		}
	}
	return 0, false
}
