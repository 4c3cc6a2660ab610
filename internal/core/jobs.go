package core

import (
	"context"
)

// Provisioner turns a validated job event into a launched execution unit.
// It returns ErrDuplicateJob, ErrAdmissionDenied, a *CredentialIssuanceError or a
// *LaunchError; on every failure after admission it has already released the
// concurrency slot it took.
type Provisioner interface {
	Provision(ctx context.Context, event *JobEvent) (*ExecutionUnit, error)
}

// CredentialIssuer exchanges a job for a single-use runner credential through the
// upstream issuing API.
//
//go:generate mockgen -destination=../../mocks/mock_core.go -package=mocks . CredentialIssuer,UnitLauncher,CompletionNotifier
type CredentialIssuer interface {
	// IssueCredential requests a just-in-time credential bound to event.JobID.
	IssueCredential(ctx context.Context, event *JobEvent) (*JobCredential, error)
	// Revoke invalidates a credential that will never be used, for example after
	// a failed launch. It is best-effort.
	Revoke(ctx context.Context, event *JobEvent, cred *JobCredential) error
}

// UnitLauncher starts and stops isolated execution units on the compute platform.
type UnitLauncher interface {
	// Launch submits one unit and returns as soon as the platform accepted it.
	// It never waits for the unit to finish.
	Launch(ctx context.Context, req LaunchRequest) (*ExecutionUnit, error)
	// Stop asks the platform to tear a unit down.
	Stop(ctx context.Context, unitID string) error
}

// CompletionSource delivers platform-side completion notifications into sink
// until ctx is cancelled.
type CompletionSource interface {
	Watch(ctx context.Context, sink chan<- Completion) error
}

// CompletionNotifier accepts completion notifications from any reporter.
type CompletionNotifier interface {
	Notify(ctx context.Context, c Completion) error
}
