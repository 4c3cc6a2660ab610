package core

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication means the delivery signature is missing or does not match.
	ErrAuthentication = errors.New("authentication failed")
	// ErrValidation means the delivery payload is malformed or incomplete.
	ErrValidation = errors.New("invalid payload")
	// ErrNotActionable marks a well-formed event that does not lead to provisioning.
	ErrNotActionable = errors.New("event not actionable")
	// ErrAdmissionDenied means the concurrency ceiling has been reached.
	ErrAdmissionDenied = errors.New("admission denied: concurrency ceiling reached")
	// ErrDuplicateJob means the job already owns a non-terminal execution unit.
	ErrDuplicateJob = errors.New("job already has an active execution unit")
	// ErrProvisioning groups every failure that happens after admission.
	ErrProvisioning = errors.New("provisioning failed")
	// ErrCredentialConsumed is returned when a single-use credential is read twice.
	ErrCredentialConsumed = errors.New("job credential already consumed")
)

// CredentialIssuanceError is returned when the issuing API did not produce a credential.
type CredentialIssuanceError struct {
	JobID string
	Err   error
}

func (e *CredentialIssuanceError) Error() string {
	return fmt.Sprintf("credential issuance failed for job %s: %v", e.JobID, e.Err)
}

func (e *CredentialIssuanceError) Unwrap() error { return e.Err }

// Is lets callers match any post-admission failure with errors.Is(err, ErrProvisioning).
func (e *CredentialIssuanceError) Is(target error) bool { return target == ErrProvisioning }

// LaunchError is returned when the compute platform rejected or timed out a launch.
type LaunchError struct {
	JobID string
	Err   error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("unit launch failed for job %s: %v", e.JobID, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *LaunchError) Is(target error) bool { return target == ErrProvisioning }
