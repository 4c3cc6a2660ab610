package core

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

const redacted = "[REDACTED]"

// JobCredential is a single-use runner registration bound to exactly one job.
// The token material is unexported and every formatting path redacts it; the
// only way to read it is Consume, which succeeds once.
type JobCredential struct {
	jobID      string
	runnerID   int64
	runnerName string

	mu       sync.Mutex
	token    string
	consumed bool
}

// NewJobCredential binds token material to a job and the runner it registered.
func NewJobCredential(jobID string, runnerID int64, runnerName, token string) *JobCredential {
	return &JobCredential{
		jobID:      jobID,
		runnerID:   runnerID,
		runnerName: runnerName,
		token:      token,
	}
}

func (c *JobCredential) JobID() string      { return c.jobID }
func (c *JobCredential) RunnerID() int64    { return c.runnerID }
func (c *JobCredential) RunnerName() string { return c.runnerName }

// Consume hands the token to the caller and wipes it from memory.
func (c *JobCredential) Consume() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumed {
		return "", ErrCredentialConsumed
	}
	c.consumed = true
	token := c.token
	c.token = ""
	return token, nil
}

// Consumed reports whether the token has already been handed out.
func (c *JobCredential) Consumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consumed
}

func (c *JobCredential) String() string {
	return fmt.Sprintf("JobCredential{job=%s runner=%d token=%s}", c.jobID, c.runnerID, redacted)
}

func (c *JobCredential) GoString() string { return c.String() }

func (c *JobCredential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("job_id", c.jobID),
		slog.Int64("runner_id", c.runnerID),
		slog.String("token", redacted),
	)
}

func (c *JobCredential) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		JobID    string `json:"job_id"`
		RunnerID int64  `json:"runner_id"`
		Token    string `json:"token"`
	}{c.jobID, c.runnerID, redacted})
}
