// Package drerrors defines the error taxonomy shared by the backup manager
// and the disaster recovery orchestrator. Every error carries the id of the
// operation that raised it so failures stay traceable in history and logs.
package drerrors

import "fmt"

// ValidationError indicates recovery prerequisites were not met: no valid
// backup available, insufficient disk or resource headroom.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed: %s", e.Op, e.Reason)
}

// IntegrityError indicates a checksum mismatch during restore or verify.
type IntegrityError struct {
	Op       string
	Item     string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch for item %q: expected %s, got %s", e.Op, e.Item, e.Expected, e.Actual)
}

// BackendError indicates a storage I/O failure, including a missing backup
// id or payload file.
type BackendError struct {
	Op      string
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("%s: storage backend %s: %v", e.Op, e.Backend, e.Err)
	}
	return fmt.Sprintf("%s: storage backend: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// PlanStepError indicates an action failed inside a recovery plan step.
// Critical step failures abort the whole execution; non-critical ones are
// accumulated and execution continues.
type PlanStepError struct {
	Op       string
	Step     string
	Action   string
	Critical bool
	Err      error
}

func (e *PlanStepError) Error() string {
	kind := "non-critical"
	if e.Critical {
		kind = "critical"
	}
	return fmt.Sprintf("%s: %s step %q action %q: %v", e.Op, kind, e.Step, e.Action, e.Err)
}

func (e *PlanStepError) Unwrap() error { return e.Err }

// ConcurrencyError indicates a recovery execution is already in progress.
type ConcurrencyError struct {
	Op      string
	Running string
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("%s: recovery %s already in progress", e.Op, e.Running)
}

// TimeoutError indicates the verification retry budget was exhausted while
// the system was still unhealthy.
type TimeoutError struct {
	Op      string
	Retries int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: verification still unhealthy after %d retries", e.Op, e.Retries)
}
