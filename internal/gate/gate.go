// Package gate bounds the number of outstanding execution units.
//
// A single mutex protects the counter, the job_id to unit map and the unit index,
// so admission, attachment and release observe one consistent view.
package gate

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sevigo/runner-warden/internal/core"
)

// earlyTTL bounds how long a completion for an unknown unit is remembered.
const earlyTTL = 10 * time.Minute

// Ticket is proof of admission for one job.
type Ticket struct {
	JobID      string
	AdmittedAt time.Time
}

type entry struct {
	ticket *Ticket
	unit   *core.ExecutionUnit
}

type earlyCompletion struct {
	state core.UnitState
	seen  time.Time
}

// Gate is the process-wide admission controller.
type Gate struct {
	mu      sync.Mutex
	ceiling int
	count   int
	jobs    map[string]*entry
	units   map[string]string
	early   map[string]earlyCompletion
	now     func() time.Time
}

// New creates a gate admitting at most ceiling outstanding units.
func New(ceiling int) *Gate {
	if ceiling < 1 {
		ceiling = 1
	}
	return &Gate{
		ceiling: ceiling,
		jobs:    make(map[string]*entry),
		units:   make(map[string]string),
		early:   make(map[string]earlyCompletion),
		now:     time.Now,
	}
}

// Admit takes a slot for jobID. It fails with core.ErrDuplicateJob when the job
// already holds a slot and with core.ErrAdmissionDenied when the gate is full;
// neither failure changes any state.
func (g *Gate) Admit(jobID string) (*Ticket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.jobs[jobID]; ok {
		return nil, core.ErrDuplicateJob
	}
	if g.count >= g.ceiling {
		return nil, core.ErrAdmissionDenied
	}

	g.count++
	t := &Ticket{JobID: jobID, AdmittedAt: g.now()}
	g.jobs[jobID] = &entry{ticket: t}
	return t, nil
}

// Attach records the launched unit against an admitted ticket. If the platform
// already reported the unit as finished, the slot is released immediately and
// the returned flag is true.
func (g *Gate) Attach(t *Ticket, unit *core.ExecutionUnit) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.jobs[t.JobID]
	if !ok || e.ticket != t {
		return false, fmt.Errorf("ticket for job %s is no longer held", t.JobID)
	}

	u := *unit
	e.unit = &u
	g.units[u.ID] = t.JobID

	if early, ok := g.early[u.ID]; ok {
		delete(g.early, u.ID)
		g.releaseLocked(t.JobID, early.state)
		return true, nil
	}
	return false, nil
}

// Release frees the slot held by jobID. It returns false, without touching the
// counter, when the job holds no slot, so duplicate notifications are harmless.
func (g *Gate) Release(jobID string, state core.UnitState) bool {
	_, released := g.ReleaseJob(jobID, state)
	return released
}

// ReleaseJob is Release that also reports the id of the unit attached to the
// job, or "" when none was attached yet.
func (g *Gate) ReleaseJob(jobID string, state core.UnitState) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var unitID string
	if e, ok := g.jobs[jobID]; ok && e.unit != nil {
		unitID = e.unit.ID
	}
	return unitID, g.releaseLocked(jobID, state)
}

// ReleaseUnit frees the slot held by the job owning unitID. Completions for
// units that are not attached yet are remembered briefly so that a launch racing
// its own completion still gets released.
func (g *Gate) ReleaseUnit(unitID string, state core.UnitState) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	jobID, ok := g.units[unitID]
	if !ok {
		g.early[unitID] = earlyCompletion{state: state, seen: g.now()}
		return "", false
	}
	return jobID, g.releaseLocked(jobID, state)
}

func (g *Gate) releaseLocked(jobID string, state core.UnitState) bool {
	e, ok := g.jobs[jobID]
	if !ok {
		return false
	}
	if e.unit != nil {
		e.unit.State = state
		delete(g.units, e.unit.ID)
	}
	delete(g.jobs, jobID)
	if g.count > 0 {
		g.count--
	}
	return true
}

// Lookup returns a copy of the unit attached to jobID, if any.
func (g *Gate) Lookup(jobID string) (core.ExecutionUnit, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.jobs[jobID]
	if !ok || e.unit == nil {
		return core.ExecutionUnit{}, false
	}
	return *e.unit, true
}

// Outstanding is the number of held slots.
func (g *Gate) Outstanding() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Ceiling is the configured maximum.
func (g *Gate) Ceiling() int { return g.ceiling }

// Units lists attached units ordered by start time.
func (g *Gate) Units() []core.ExecutionUnit {
	g.mu.Lock()
	units := make([]core.ExecutionUnit, 0, len(g.jobs))
	for _, e := range g.jobs {
		if e.unit != nil {
			units = append(units, *e.unit)
		}
	}
	g.mu.Unlock()

	sort.Slice(units, func(i, j int) bool { return units[i].StartedAt.Before(units[j].StartedAt) })
	return units
}

// Expired returns units whose deadline plus grace has passed at now. It also
// forgets remembered completions older than earlyTTL.
func (g *Gate) Expired(now time.Time, grace time.Duration) []core.ExecutionUnit {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, c := range g.early {
		if now.Sub(c.seen) > earlyTTL {
			delete(g.early, id)
		}
	}

	var expired []core.ExecutionUnit
	for _, e := range g.jobs {
		if e.unit == nil || e.unit.Deadline.IsZero() {
			continue
		}
		if now.After(e.unit.Deadline.Add(grace)) {
			expired = append(expired, *e.unit)
		}
	}
	return expired
}
