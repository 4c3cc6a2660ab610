package nomad

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/nomad/api"

	"github.com/sevigo/runner-warden/internal/core"
)

const (
	taskName = "runner"

	// EnvJITConfig is read by the actions runner as its --jitconfig input.
	EnvJITConfig     = "ACTIONS_RUNNER_INPUT_JITCONFIG"
	EnvJobID         = "RUNNER_WARDEN_JOB_ID"
	EnvCallbackURL   = "RUNNER_WARDEN_CALLBACK_URL"
	EnvCallbackToken = "RUNNER_WARDEN_CALLBACK_TOKEN"

	metaJobID      = "runner_warden_job_id"
	metaRepository = "runner_warden_repository"
	metaProfile    = "runner_warden_profile"
)

// jobSpec is everything needed to render one unit as a Nomad batch job.
type jobSpec struct {
	ID          string
	Region      string
	Namespace   string
	Datacenters []string
	Priority    int
	Driver      string

	Image      string
	User       string
	Entrypoint string
	MaxRuntime time.Duration
	KillGrace  time.Duration
	Profile    core.ResourceProfile

	JobID      string
	Repository string
	Env        map[string]string
}

// buildJob renders a single-shot batch job. The runtime ceiling is enforced by
// wrapping the runner in timeout(1), so the platform kills the unit even if this
// process is gone. Secrets only ever travel through the task environment.
func buildJob(spec jobSpec) *api.Job {
	job := api.NewBatchJob(spec.ID, spec.ID, spec.Region, spec.Priority)
	job.Namespace = ptr(spec.Namespace)
	if len(spec.Datacenters) > 0 {
		job.Datacenters = spec.Datacenters
	}
	job.Meta = map[string]string{
		metaJobID:      spec.JobID,
		metaRepository: spec.Repository,
		metaProfile:    spec.Profile.Name,
	}

	tg := api.NewTaskGroup(taskName, 1)
	tg.RestartPolicy = &api.RestartPolicy{
		Attempts: ptr(0),
		Mode:     ptr("fail"),
	}
	tg.ReschedulePolicy = &api.ReschedulePolicy{
		Attempts:  ptr(0),
		Unlimited: ptr(false),
	}

	task := api.NewTask(taskName, spec.Driver)
	task.User = spec.User
	task.KillTimeout = ptr(spec.KillGrace)
	task.Env = spec.Env
	task.Meta = map[string]string{metaJobID: spec.JobID}

	timeoutArgs := []string{
		"timeout",
		fmt.Sprintf("--kill-after=%ds", int(spec.KillGrace.Seconds())),
		strconv.Itoa(int(spec.MaxRuntime.Seconds())) + "s",
	}
	switch spec.Driver {
	case "docker", "podman":
		task.SetConfig("image", spec.Image)
		task.SetConfig("entrypoint", timeoutArgs)
		task.SetConfig("command", spec.Entrypoint)
	default:
		task.SetConfig("command", timeoutArgs[0])
		task.SetConfig("args", append(timeoutArgs[1:], spec.Entrypoint))
	}

	resources := &api.Resources{
		CPU:      ptr(spec.Profile.CPU),
		MemoryMB: ptr(spec.Profile.MemoryMB),
	}
	if spec.Profile.Accelerator != "" {
		count := spec.Profile.AcceleratorCount
		if count == 0 {
			count = 1
		}
		resources.Devices = []*api.RequestedDevice{{
			Name:  spec.Profile.Accelerator,
			Count: ptr(count),
		}}
	}
	task.Require(resources)

	tg.AddTask(task)
	job.AddTaskGroup(tg)
	return job
}

func ptr[T any](v T) *T { return &v }
