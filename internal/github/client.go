package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/go-github/v73/github"

	"github.com/sevigo/runner-warden/internal/config"
	"github.com/sevigo/runner-warden/internal/core"
	"github.com/sevigo/runner-warden/internal/util"
)

// Issuer implements core.CredentialIssuer with repository-scoped just-in-time
// runner configurations.
type Issuer struct {
	source        ClientSource
	runnerGroupID int64
	labels        []string
	namePrefix    string
	logger        *slog.Logger
}

// NewIssuer creates an Issuer registering runners in the configured runner group
// with the deployment's runner labels.
func NewIssuer(cfg *config.Config, source ClientSource, logger *slog.Logger) *Issuer {
	return &Issuer{
		source:        source,
		runnerGroupID: cfg.GitHub.RunnerGroupID,
		labels:        cfg.Runner.Labels,
		namePrefix:    cfg.Runner.NamePrefix,
		logger:        logger,
	}
}

// IssueCredential generates a JIT runner config for the job's repository.
func (i *Issuer) IssueCredential(ctx context.Context, event *core.JobEvent) (*core.JobCredential, error) {
	client, err := i.source.Client(ctx, event.InstallationID)
	if err != nil {
		return nil, err
	}

	labels := i.labels
	if len(labels) == 0 {
		labels = event.Labels
	}

	name := util.RunnerName(i.namePrefix, event.JobID)
	jit, _, err := client.Actions.GenerateRepoJITConfig(ctx, event.RepoOwner, event.RepoName, &github.GenerateJITConfigRequest{
		Name:          name,
		RunnerGroupID: i.runnerGroupID,
		Labels:        labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate JIT config for %s: %w", event.RepoFullName, err)
	}
	if jit.GetEncodedJITConfig() == "" {
		return nil, fmt.Errorf("received an empty JIT config for %s", event.RepoFullName)
	}

	i.logger.Info("issued JIT runner credential",
		"job_id", event.JobID,
		"repo", event.RepoFullName,
		"runner_id", jit.GetRunner().GetID(),
		"runner_name", name,
	)
	return core.NewJobCredential(event.JobID, jit.GetRunner().GetID(), name, jit.GetEncodedJITConfig()), nil
}

// Revoke removes the runner registration behind an unused credential. A runner
// that is already gone counts as revoked.
func (i *Issuer) Revoke(ctx context.Context, event *core.JobEvent, cred *core.JobCredential) error {
	if cred.RunnerID() == 0 {
		return nil
	}
	client, err := i.source.Client(ctx, event.InstallationID)
	if err != nil {
		return err
	}

	resp, err := client.Actions.RemoveRunner(ctx, event.RepoOwner, event.RepoName, cred.RunnerID())
	if err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("failed to remove runner %d from %s: %w", cred.RunnerID(), event.RepoFullName, err)
	}
	i.logger.Info("revoked unused runner registration", "job_id", event.JobID, "runner_id", cred.RunnerID())
	return nil
}
