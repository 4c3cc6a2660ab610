package core

import "time"

// UnitState is the lifecycle state of an execution unit.
type UnitState string

const (
	UnitRunning   UnitState = "running"
	UnitCompleted UnitState = "completed"
	UnitFailed    UnitState = "failed"
	UnitTimedOut  UnitState = "timed-out"
	// UnitRejected marks a job that never reached the platform.
	UnitRejected UnitState = "rejected"
)

// Terminal reports whether the state ends the unit's lifecycle.
func (s UnitState) Terminal() bool {
	switch s {
	case UnitCompleted, UnitFailed, UnitTimedOut, UnitRejected:
		return true
	default:
		return false
	}
}

// ResourceProfile describes the compute shape requested for a unit.
type ResourceProfile struct {
	Name             string `mapstructure:"name" yaml:"name" json:"name"`
	CPU              int    `mapstructure:"cpu" yaml:"cpu" json:"cpu"`
	MemoryMB         int    `mapstructure:"memory_mb" yaml:"memory_mb" json:"memory_mb"`
	Accelerator      string `mapstructure:"accelerator" yaml:"accelerator" json:"accelerator,omitempty"`
	AcceleratorCount uint64 `mapstructure:"accelerator_count" yaml:"accelerator_count" json:"accelerator_count,omitempty"`
}

// ExecutionUnit is the handle of one isolated runner launched for one job.
type ExecutionUnit struct {
	ID         string          `json:"id"`
	JobID      string          `json:"job_id"`
	Repository string          `json:"repository"`
	Profile    ResourceProfile `json:"profile"`
	StartedAt  time.Time       `json:"started_at"`
	Deadline   time.Time       `json:"deadline"`
	State      UnitState       `json:"state"`
}

// CompletionSource values identify who reported a completion.
const (
	SourcePlatform = "platform"
	SourceCallback = "callback"
	SourceWatchdog = "watchdog"
)

// Completion reports that a unit reached a terminal state. Either UnitID or
// JobID must be set.
type Completion struct {
	UnitID string
	JobID  string
	State  UnitState
	Source string
	At     time.Time
}

// CallbackBinding lets a unit report its own completion.
type CallbackBinding struct {
	URL   string
	Token string
}

// LaunchRequest carries everything the launcher needs for one unit.
type LaunchRequest struct {
	Event      *JobEvent
	Credential *JobCredential
	Profile    ResourceProfile
	MaxRuntime time.Duration
	Callback   *CallbackBinding
}
