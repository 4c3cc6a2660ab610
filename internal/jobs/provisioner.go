// Package jobs runs the provisioning pipeline and the background work that keeps
// the concurrency gate honest: completion processing and the watchdog sweep.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/sevigo/runner-warden/internal/callback"
	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/gate"
	"github.com/sevigo/runner-warden/internal/logger"
	"github.com/sevigo/runner-warden/internal/storage"
)

// revokeTimeout bounds the best-effort revocation after a failed launch.
const revokeTimeout = 10 * time.Second

// Provisioner implements core.Provisioner. Per job it runs admit, then
// credential exchange, then launch, and releases the gate slot on any failure
// after admission before reporting it.
type Provisioner struct {
	cfg      *config.Config
	gate     *gate.Gate
	issuer   core.CredentialIssuer
	launcher core.UnitLauncher
	signer   *callback.Signer
	store    storage.Store
	logger   *slog.Logger

	// background tracks best-effort revocations and stops.
	background sync.WaitGroup
}

// NewProvisioner wires the pipeline. signer may be nil, which disables
// completion callbacks.
func NewProvisioner(
	cfg *config.Config,
	g *gate.Gate,
	issuer core.CredentialIssuer,
	launcher core.UnitLauncher,
	signer *callback.Signer,
	store storage.Store,
	logger *slog.Logger,
) *Provisioner {
	return &Provisioner{
		cfg:      cfg,
		gate:     g,
		issuer:   issuer,
		launcher: launcher,
		signer:   signer,
		store:    store,
		logger:   logger,
	}
}

// Provision launches one execution unit for event. When the job completes
// before its unit is attached, the unit is stopped in the background and
// Provision still succeeds: the job was served and must not be redelivered.
func (p *Provisioner) Provision(ctx context.Context, event *core.JobEvent) (*core.ExecutionUnit, error) {
	log := p.logger.With("job_id", event.JobID, "repo", event.RepoFullName, "delivery_id", event.DeliveryID)

	ticket, err := p.gate.Admit(event.JobID)
	if err != nil {
		if errors.Is(err, core.ErrAdmissionDenied) {
			log.Warn("admission denied", "outstanding", p.gate.Outstanding(), "ceiling", p.gate.Ceiling())
		}
		return nil, err
	}

	// In-flight calls are bounded by their own timeouts and are not abandoned
	// when the delivering client goes away.
	base := context.WithoutCancel(ctx)
	profile := p.cfg.Runner.ProfileFor(event.Labels)

	p.record(base, &storage.JobRecord{
		JobID:      event.JobID,
		DeliveryID: event.DeliveryID,
		Repository: event.RepoFullName,
		Profile:    profile.Name,
		State:      "admitted",
	})

	issueCtx, cancel := context.WithTimeout(base, p.cfg.GitHub.IssueTimeout)
	cred, err := p.issuer.IssueCredential(issueCtx, event)
	cancel()
	if err != nil {
		p.reject(base, log, event.JobID, "credential issuance failed", err)
		return nil, &core.CredentialIssuanceError{JobID: event.JobID, Err: err}
	}

	req := core.LaunchRequest{
		Event:      event,
		Credential: cred,
		Profile:    profile,
		MaxRuntime: p.cfg.Runner.MaxRuntime,
	}
	if cb, err := p.callbackFor(event.JobID, ticket.AdmittedAt); err != nil {
		log.Warn("launching without completion callback", "error", err)
	} else {
		req.Callback = cb
	}

	launchCtx, cancel := context.WithTimeout(base, p.cfg.Runner.LaunchTimeout)
	unit, err := p.launcher.Launch(launchCtx, req)
	cancel()
	if err != nil {
		p.reject(base, log, event.JobID, "launch failed", err)
		p.revoke(base, log, event, cred)
		return nil, &core.LaunchError{JobID: event.JobID, Err: err}
	}

	releasedEarly, err := p.gate.Attach(ticket, unit)
	if err != nil {
		// The job finished while its unit was launching and no longer holds a
		// slot. The unit is stopped so it cannot run untracked.
		log.Warn("job released before its unit was attached, stopping unit", "unit_id", unit.ID, "error", err)
		p.stopDetached(base, log, unit.ID)
		return unit, nil
	}
	state := core.UnitRunning
	if releasedEarly {
		state = core.UnitCompleted
	}
	p.update(base, event.JobID, unit.ID, state, "")

	log.Info("execution unit provisioned", "unit_id", unit.ID, "profile", profile.Name, "deadline", unit.Deadline)
	return unit, nil
}

// Wait blocks until background revocations and stops have finished.
func (p *Provisioner) Wait() {
	p.background.Wait()
}

func (p *Provisioner) reject(ctx context.Context, log *slog.Logger, jobID, msg string, cause error) {
	released := p.gate.Release(jobID, core.UnitRejected)
	log.Error(msg, "error", cause, "released", released)
	p.update(ctx, jobID, "", core.UnitRejected, logger.Sanitize(fmt.Sprintf("%s: %v", msg, cause)))
}

// revoke removes the runner registration of a credential that was never used.
// A retry of the job must obtain a fresh credential.
func (p *Provisioner) revoke(ctx context.Context, log *slog.Logger, event *core.JobEvent, cred *core.JobCredential) {
	p.background.Add(1)
	go func() {
		defer p.background.Done()
		revokeCtx, cancel := context.WithTimeout(ctx, revokeTimeout)
		defer cancel()
		if err := p.issuer.Revoke(revokeCtx, event, cred); err != nil {
			log.Warn("failed to revoke unused runner credential", "runner_id", cred.RunnerID(), "error", err)
		}
	}()
}

func (p *Provisioner) stopDetached(ctx context.Context, log *slog.Logger, unitID string) {
	p.background.Add(1)
	go func() {
		defer p.background.Done()
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		defer cancel()
		if err := p.launcher.Stop(stopCtx, unitID); err != nil {
			log.Error("failed to stop detached unit", "unit_id", unitID, "error", err)
		}
	}()
}

func (p *Provisioner) callbackFor(jobID string, admittedAt time.Time) (*core.CallbackBinding, error) {
	if p.signer == nil || p.cfg.Server.PublicURL == "" {
		return nil, nil
	}
	target, err := url.JoinPath(p.cfg.Server.PublicURL, "api", "v1", "jobs", url.PathEscape(jobID), "complete")
	if err != nil {
		return nil, fmt.Errorf("failed to build callback URL: %w", err)
	}
	expiry := admittedAt.Add(p.cfg.Runner.MaxRuntime + p.cfg.Gate.Grace)
	token, err := p.signer.Mint(jobID, expiry)
	if err != nil {
		return nil, err
	}
	return &core.CallbackBinding{URL: target, Token: token}, nil
}

func (p *Provisioner) record(ctx context.Context, rec *storage.JobRecord) {
	if err := p.store.RecordJob(ctx, rec); err != nil {
		p.logger.Warn("failed to record job", "job_id", rec.JobID, "error", err)
	}
}

func (p *Provisioner) update(ctx context.Context, jobID, unitID string, state core.UnitState, reason string) {
	if err := p.store.UpdateJobState(ctx, jobID, unitID, state, reason); err != nil {
		p.logger.Warn("failed to update job record", "job_id", jobID, "state", state, "error", err)
	}
}
