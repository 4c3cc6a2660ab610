// Package core defines the essential interfaces and data structures that form the
// backbone of the application. These components are designed to be abstract,
// allowing for flexible and decoupled implementations of the provisioning pipeline.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-github/v73/github"
)

// ActionQueued is the only workflow_job action that leads to provisioning.
const ActionQueued = "queued"

// JobEvent is the validated, internal view of a workflow_job webhook delivery.
// It is only built from a payload whose signature has already been verified.
type JobEvent struct {
	JobID   string
	RunID   int64
	JobName string

	// Repository details
	RepoOwner    string
	RepoName     string
	RepoFullName string

	Labels         []string
	Action         string
	InstallationID int64
	DeliveryID     string
}

// EventFromWorkflowJob transforms a raw GitHub WorkflowJobEvent into the application's
// internal JobEvent representation. It acts as an anti-corruption layer: malformed
// payloads are rejected with ErrValidation, and well-formed payloads whose action is
// not "queued" are rejected with ErrNotActionable so callers can acknowledge them
// without provisioning anything.
func EventFromWorkflowJob(event *github.WorkflowJobEvent) (*JobEvent, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: empty workflow_job payload", ErrValidation)
	}

	action := strings.TrimSpace(event.GetAction())
	if action == "" {
		return nil, fmt.Errorf("%w: action is missing from the event", ErrValidation)
	}

	job := event.GetWorkflowJob()
	if job == nil || job.GetID() <= 0 {
		return nil, fmt.Errorf("%w: workflow job id is missing from the event", ErrValidation)
	}

	repo := event.GetRepo()
	if repo == nil || repo.GetOwner().GetLogin() == "" || repo.GetName() == "" {
		return nil, fmt.Errorf("%w: repository or owner information is missing from the event", ErrValidation)
	}

	if action != ActionQueued {
		return nil, fmt.Errorf("%w: action %q", ErrNotActionable, action)
	}

	fullName := repo.GetFullName()
	if fullName == "" {
		fullName = repo.GetOwner().GetLogin() + "/" + repo.GetName()
	}

	return &JobEvent{
		JobID:          strconv.FormatInt(job.GetID(), 10),
		RunID:          job.GetRunID(),
		JobName:        job.GetName(),
		RepoOwner:      repo.GetOwner().GetLogin(),
		RepoName:       repo.GetName(),
		RepoFullName:   fullName,
		Labels:         append([]string(nil), job.Labels...),
		Action:         action,
		InstallationID: event.GetInstallation().GetID(),
	}, nil
}

// LabelsServed reports whether every requested label is offered by this deployment.
// An empty served set accepts any job.
func LabelsServed(requested, served []string) bool {
	if len(served) == 0 {
		return true
	}
	offered := make(map[string]struct{}, len(served))
	for _, l := range served {
		offered[strings.ToLower(l)] = struct{}{}
	}
	for _, l := range requested {
		if _, ok := offered[strings.ToLower(l)]; !ok {
			return false
		}
	}
	return true
}
