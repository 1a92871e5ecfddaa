package shellpack

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the pipeline distinguishes.
// Use errors.Is against these; the concrete error in the chain carries the
// detail.
var (
	// ErrValidation covers bad input caught before any mutation: malformed
	// repository URL, empty required fields. No rollback is needed.
	ErrValidation = errors.New("validation failed")

	// ErrDependencyMissing means a required external tool is absent. The
	// pipeline never starts.
	ErrDependencyMissing = errors.New("required dependency missing")

	// ErrTransient marks failures worth retrying: network errors on
	// clone/push/fetch, command timeouts. Surfaced only after the retry
	// budget is spent.
	ErrTransient = errors.New("transient failure")

	// ErrIntegrity means fetched payloads do not match the manifest
	// checksum (or the manifest format is incompatible). Fatal; nothing is
	// restored.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrCancelled maps operator interrupts; it triggers the same rollback
	// path as a hard failure.
	ErrCancelled = errors.New("operation cancelled")
)

// StepError ties a failure to the pipeline step that raised it, preserving
// the cause for errors.Is/As and carrying a remedy the operator can try.
type StepError struct {
	Step   string
	Err    error
	Remedy string
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Step)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Remedy != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Remedy)
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Stepf wraps err as a StepError for step with a formatted remedy.
func Stepf(step string, err error, remedyFormat string, a ...any) *StepError {
	return &StepError{Step: step, Err: err, Remedy: fmt.Sprintf(remedyFormat, a...)}
}
