// Package nomad launches execution units as one-shot HashiCorp Nomad batch jobs
// and turns allocation events back into completions.
package nomad

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/nomad/api"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/util"
)

// killGrace is how long a unit may take to exit after its runtime ceiling.
const killGrace = 30 * time.Second

type jobsAPI interface {
	Register(job *api.Job, q *api.WriteOptions) (*api.JobRegisterResponse, *api.WriteMeta, error)
	Deregister(jobID string, purge bool, q *api.WriteOptions) (string, *api.WriteMeta, error)
}

type eventStreamer interface {
	Stream(ctx context.Context, topics map[api.Topic][]string, index uint64, q *api.QueryOptions) (<-chan *api.Events, error)
}

// Launcher implements core.UnitLauncher and core.CompletionSource.
type Launcher struct {
	jobs   jobsAPI
	events eventStreamer
	nomad  config.NomadConfig
	runner config.RunnerConfig
	grace  time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewLauncher connects to the Nomad API described by cfg.Nomad. Unset fields
// fall back to the NOMAD_* environment variables read by api.DefaultConfig.
func NewLauncher(cfg *config.Config, logger *slog.Logger) (*Launcher, error) {
	apiCfg := api.DefaultConfig()
	if cfg.Nomad.Addr != "" {
		apiCfg.Address = cfg.Nomad.Addr
	}
	if cfg.Nomad.Region != "" {
		apiCfg.Region = cfg.Nomad.Region
	}
	if cfg.Nomad.Namespace != "" {
		apiCfg.Namespace = cfg.Nomad.Namespace
	}
	if cfg.Nomad.Token != "" {
		apiCfg.SecretID = cfg.Nomad.Token
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("create nomad client: %w", err)
	}
	logger.Info("connected nomad launcher", "address", apiCfg.Address, "namespace", cfg.Nomad.Namespace)
	return newLauncher(cfg, client.Jobs(), client.EventStream(), logger), nil
}

func newLauncher(cfg *config.Config, jobs jobsAPI, events eventStreamer, logger *slog.Logger) *Launcher {
	return &Launcher{
		jobs:   jobs,
		events: events,
		nomad:  cfg.Nomad,
		runner: cfg.Runner,
		grace:  killGrace,
		now:    time.Now,
		logger: logger,
	}
}

// Launch registers the unit and returns once Nomad accepted the job. The
// credential is consumed here, so a failed launch leaves it unusable.
func (l *Launcher) Launch(ctx context.Context, req core.LaunchRequest) (*core.ExecutionUnit, error) {
	token, err := req.Credential.Consume()
	if err != nil {
		return nil, err
	}

	env := map[string]string{
		EnvJITConfig: token,
		EnvJobID:     req.Event.JobID,
	}
	if req.Callback != nil {
		env[EnvCallbackURL] = req.Callback.URL
		env[EnvCallbackToken] = req.Callback.Token
	}

	maxRuntime := req.MaxRuntime
	if maxRuntime <= 0 {
		maxRuntime = l.runner.MaxRuntime
	}

	unitID := util.UnitName(l.nomad.JobPrefix, req.Event.JobID)
	job := buildJob(jobSpec{
		ID:          unitID,
		Region:      l.nomad.Region,
		Namespace:   l.nomad.Namespace,
		Datacenters: l.nomad.Datacenters,
		Priority:    l.nomad.Priority,
		Driver:      l.nomad.Driver,
		Image:       l.runner.Image,
		User:        l.runner.User,
		Entrypoint:  l.runner.Entrypoint,
		MaxRuntime:  maxRuntime,
		KillGrace:   l.grace,
		Profile:     req.Profile,
		JobID:       req.Event.JobID,
		Repository:  req.Event.RepoFullName,
		Env:         env,
	})

	started := l.now()
	resp, _, err := l.jobs.Register(job, l.writeOptions(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to register nomad job %s: %w", unitID, err)
	}

	l.logger.Info("launched execution unit",
		"unit_id", unitID,
		"job_id", req.Event.JobID,
		"profile", req.Profile.Name,
		"eval_id", resp.EvalID,
	)
	return &core.ExecutionUnit{
		ID:         unitID,
		JobID:      req.Event.JobID,
		Repository: req.Event.RepoFullName,
		Profile:    req.Profile,
		StartedAt:  started,
		Deadline:   started.Add(maxRuntime),
		State:      core.UnitRunning,
	}, nil
}

// Stop deregisters and purges the unit's job.
func (l *Launcher) Stop(ctx context.Context, unitID string) error {
	if _, _, err := l.jobs.Deregister(unitID, true, l.writeOptions(ctx)); err != nil {
		return fmt.Errorf("failed to deregister nomad job %s: %w", unitID, err)
	}
	return nil
}

func (l *Launcher) writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{Namespace: l.nomad.Namespace}).WithContext(ctx)
}
