package model

import "time"

// Recovery execution statuses. The first four are transient phases; an
// execution persisted to history is always completed or failed.
const (
	RecoveryStatusValidating      = "validating"
	RecoveryStatusSelectingBackup = "selecting_backup"
	RecoveryStatusExecutingPlan   = "executing_plan"
	RecoveryStatusVerifying       = "verifying"
	RecoveryStatusInProgress      = "in_progress"
	RecoveryStatusCompleted       = "completed"
	RecoveryStatusFailed          = "failed"
)

// Per-step statuses.
const (
	StepStatusPending   = "pending"
	StepStatusRunning   = "running"
	StepStatusCompleted = "completed"
	StepStatusFailed    = "failed"
)

// Recovery execution types.
const (
	RecoveryTypeManual    = "manual"
	RecoveryTypeDrill     = "drill"
	RecoveryTypeAutomatic = "automatic"
)

// RecoveryPlan is configuration data: a versioned, ordered list of steps.
type RecoveryPlan struct {
	Name    string         `json:"name" yaml:"name"`
	Version string         `json:"version" yaml:"version"`
	Steps   []RecoveryStep `json:"steps" yaml:"steps"`
}

// RecoveryStep names the actions run at one point of the plan. An error in
// a critical step aborts the execution; in a non-critical step it is
// recorded and the next step still runs.
type RecoveryStep struct {
	ID       string        `json:"id" yaml:"id"`
	Name     string        `json:"name" yaml:"name"`
	Critical bool          `json:"critical" yaml:"critical"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	Actions  []string      `json:"actions" yaml:"actions"`
}

// StepResult records the outcome of one executed plan step.
type StepResult struct {
	StepID   string        `json:"step_id"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// CheckResult is the outcome of a single health checker during verification.
type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Details string `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// VerificationResult aggregates all health checker outcomes.
type VerificationResult struct {
	Healthy         bool          `json:"healthy"`
	Checks          []CheckResult `json:"checks"`
	RetriesConsumed int           `json:"retries_consumed"`
}

// RollbackResult records the outcome of a rollback attempt.
type RollbackResult struct {
	Attempted      bool   `json:"attempted"`
	Succeeded      bool   `json:"succeeded"`
	RestorePointID string `json:"restore_point_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// RecoveryExecution is the append-only record of one recovery run. It is
// created on entry to ExecuteRecovery and persisted to history once it
// reaches a terminal state.
type RecoveryExecution struct {
	ID              string              `json:"id"`
	StartTime       time.Time           `json:"start_time"`
	Type            string              `json:"type"`
	Reason          string              `json:"reason,omitempty"`
	BackupID        string              `json:"backup_id,omitempty"`
	BackupTimestamp time.Time           `json:"backup_timestamp,omitzero"`
	DataAge         time.Duration       `json:"data_age"`
	RPOAchieved     bool                `json:"rpo_achieved"`
	Status          string              `json:"status"`
	Steps           []StepResult        `json:"steps"`
	Errors          []string            `json:"errors,omitempty"`
	Verification    *VerificationResult `json:"verification,omitempty"`
	Rollback        *RollbackResult     `json:"rollback,omitempty"`
	Duration        time.Duration       `json:"duration"`
	RTOAchieved     bool                `json:"rto_achieved"`
}
