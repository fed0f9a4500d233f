// Package recovery implements the disaster recovery orchestrator: it
// drives one recovery execution at a time through the recovery plan,
// verifies system health afterwards, and tracks RTO/RPO achievement.
package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/drengine/internal/backup"
	"github.com/edvin/drengine/internal/drerrors"
	"github.com/edvin/drengine/internal/metrics"
	"github.com/edvin/drengine/internal/model"
	"github.com/edvin/drengine/internal/platform"
	"github.com/edvin/drengine/internal/schedule"
)

// HealthChecker reports whether one subsystem is healthy after recovery.
type HealthChecker func(ctx context.Context) (healthy bool, details string, err error)

// FailoverHandler is invoked after a failed recovery when auto-failover is
// enabled.
type FailoverHandler func(ctx context.Context, exec *model.RecoveryExecution) error

// ProgressEvent reports a step transition for external observability.
type ProgressEvent struct {
	ExecutionID string
	StepID      string
	StepIndex   int
	TotalSteps  int
	Status      string
}

type Options struct {
	Root                  string
	RTO                   time.Duration
	RPO                   time.Duration
	VerificationRetries   int
	VerificationRetryWait time.Duration
	MinDiskFreeBytes      int64
	AutoFailoverEnabled   bool
	PlanPath              string
	TestingSchedule       string
}

type namedChecker struct {
	name  string
	check HealthChecker
}

// Orchestrator owns the recovery history and the single "recovery in
// progress" flag. It holds the backup manager by reference to select and
// restore backups.
type Orchestrator struct {
	logger  zerolog.Logger
	opts    Options
	manager *backup.Manager
	plan    model.RecoveryPlan

	actions   map[string]ActionFunc
	checkers  []namedChecker
	failovers []FailoverHandler
	progress  func(ProgressEvent)

	mu      sync.Mutex
	running bool
	current *model.RecoveryExecution
	history []model.RecoveryExecution

	drills *schedule.Scheduler

	now      func() time.Time
	sleep    func(time.Duration)
	diskFree func(string) (uint64, error)
}

func NewOrchestrator(logger zerolog.Logger, opts Options) *Orchestrator {
	o := &Orchestrator{
		logger:   logger.With().Str("component", "disaster-recovery").Logger(),
		opts:     opts,
		actions:  make(map[string]ActionFunc),
		now:      time.Now,
		sleep:    time.Sleep,
		diskFree: platform.DiskFree,
	}
	o.registerBuiltinActions()
	return o
}

// Initialize loads the recovery plan, attaches the backup manager, loads
// persisted history, and starts the drill scheduler if configured.
func (o *Orchestrator) Initialize(ctx context.Context, manager *backup.Manager) error {
	o.manager = manager

	plan, err := LoadPlan(o.opts.PlanPath)
	if err != nil {
		return fmt.Errorf("initialize orchestrator: %w", err)
	}
	o.plan = plan

	history, err := loadHistory(o.opts.Root)
	if err != nil {
		return fmt.Errorf("initialize orchestrator: %w", err)
	}
	o.mu.Lock()
	o.history = history
	o.mu.Unlock()

	if o.opts.TestingSchedule != "" {
		interval, recognized := schedule.ParseCadence(o.opts.TestingSchedule)
		if !recognized {
			o.logger.Warn().Str("schedule", o.opts.TestingSchedule).Dur("interval", interval).
				Msg("unrecognized testing schedule, falling back to daily")
		}
		o.drills = schedule.NewScheduler(o.logger, "recovery-drill", interval, func() {
			if _, err := o.TestRecovery(context.Background(), TestOptions{}); err != nil {
				o.logger.Error().Err(err).Msg("scheduled recovery drill failed")
			}
		})
		o.drills.Start()
	}

	o.logger.Info().Str("plan", plan.Name).Str("plan_version", plan.Version).
		Int("steps", len(plan.Steps)).Msg("disaster recovery orchestrator initialized")
	return nil
}

// Stop halts the drill scheduler. An in-flight recovery runs to completion.
func (o *Orchestrator) Stop() {
	if o.drills != nil {
		o.drills.Stop()
	}
}

// RegisterHealthChecker adds a named post-recovery health check. Checkers
// run in registration order during verification.
func (o *Orchestrator) RegisterHealthChecker(name string, check HealthChecker) {
	o.checkers = append(o.checkers, namedChecker{name: name, check: check})
}

// RegisterFailoverHandler adds a handler invoked after a failed recovery
// when auto-failover is enabled.
func (o *Orchestrator) RegisterFailoverHandler(h FailoverHandler) {
	o.failovers = append(o.failovers, h)
}

// WithProgress sets the step-transition callback.
func (o *Orchestrator) WithProgress(fn func(ProgressEvent)) {
	o.progress = fn
}

// Status returns a snapshot of the execution currently in progress, or nil.
func (o *Orchestrator) Status() *model.RecoveryExecution {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil
	}
	snapshot := *o.current
	snapshot.Steps = append([]model.StepResult(nil), o.current.Steps...)
	snapshot.Errors = append([]string(nil), o.current.Errors...)
	return &snapshot
}

// setExec applies a mutation to the live execution record under the same
// lock Status uses to snapshot it. Sub-results (Verification, Rollback)
// are built fully before being attached, so snapshots can share their
// pointers safely.
func (o *Orchestrator) setExec(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn()
}

// History returns a copy of the persisted terminal executions.
func (o *Orchestrator) History() []model.RecoveryExecution {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.RecoveryExecution, len(o.history))
	copy(out, o.history)
	return out
}

type ExecuteOptions struct {
	BackupID          string
	Reason            string
	Type              string
	Items             []string
	RollbackOnFailure bool
}

// ExecuteRecovery drives one recovery execution through the plan. At most
// one execution runs system-wide; a concurrent call fails immediately with
// a ConcurrencyError. Prerequisite and selection failures raise a
// ValidationError and leave history untouched.
func (o *Orchestrator) ExecuteRecovery(ctx context.Context, opts ExecuteOptions) (*model.RecoveryExecution, error) {
	start := o.now()
	exec := &model.RecoveryExecution{
		ID:        platform.NewTimeOrderedID("rec", start),
		StartTime: start,
		Type:      opts.Type,
		Reason:    opts.Reason,
		Status:    model.RecoveryStatusValidating,
	}
	if exec.Type == "" {
		exec.Type = model.RecoveryTypeManual
	}

	o.mu.Lock()
	if o.running {
		runningID := ""
		if o.current != nil {
			runningID = o.current.ID
		}
		o.mu.Unlock()
		return nil, &drerrors.ConcurrencyError{Op: exec.ID, Running: runningID}
	}
	o.running = true
	o.current = exec
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.current = nil
		o.mu.Unlock()
	}()

	logger := o.logger.With().Str("execution_id", exec.ID).Logger()
	logger.Info().Str("type", exec.Type).Str("reason", exec.Reason).Msg("starting recovery")

	if err := o.validatePrerequisites(exec.ID); err != nil {
		return nil, err
	}

	o.setExec(func() { exec.Status = model.RecoveryStatusSelectingBackup })
	selected, err := o.selectBackup(ctx, exec.ID, opts.BackupID)
	if err != nil {
		return nil, err
	}
	o.setExec(func() {
		exec.BackupID = selected.ID
		exec.BackupTimestamp = selected.Timestamp
		exec.DataAge = start.Sub(selected.Timestamp)
		exec.RPOAchieved = exec.DataAge <= o.opts.RPO
	})
	logger.Info().Str("backup_id", selected.ID).Dur("data_age", exec.DataAge).
		Bool("rpo_achieved", exec.RPOAchieved).Msg("backup selected")

	o.setExec(func() { exec.Status = model.RecoveryStatusExecutingPlan })
	runErr := o.executePlan(ctx, logger, exec, selected, opts.Items)

	if runErr == nil {
		o.setExec(func() { exec.Status = model.RecoveryStatusVerifying })
		if verr := o.verify(ctx, logger, exec); verr != nil {
			runErr = verr
		}
	}

	duration := o.now().Sub(start)
	o.setExec(func() {
		if runErr == nil {
			exec.Status = model.RecoveryStatusCompleted
		} else {
			exec.Status = model.RecoveryStatusFailed
		}
		exec.Duration = duration
		exec.RTOAchieved = duration <= o.opts.RTO
	})

	if exec.Status == model.RecoveryStatusFailed && opts.RollbackOnFailure {
		o.rollback(ctx, logger, exec)
	}
	if exec.Status == model.RecoveryStatusFailed && o.opts.AutoFailoverEnabled {
		o.failover(ctx, logger, exec)
	}

	o.appendHistory(exec)
	metrics.RecordRecovery(exec.Status, exec.Type, exec.Duration)

	logger.Info().Str("status", exec.Status).Dur("duration", exec.Duration).
		Bool("rto_achieved", exec.RTOAchieved).Msg("recovery finished")

	if runErr != nil {
		return exec, runErr
	}
	return exec, nil
}

func (o *Orchestrator) validatePrerequisites(opID string) error {
	if o.opts.MinDiskFreeBytes > 0 {
		free, err := o.diskFree(o.opts.Root)
		if err != nil {
			return &drerrors.ValidationError{Op: opID, Reason: fmt.Sprintf("check disk headroom: %v", err)}
		}
		if free < uint64(o.opts.MinDiskFreeBytes) {
			return &drerrors.ValidationError{
				Op:     opID,
				Reason: fmt.Sprintf("insufficient disk space: %d bytes free, %d required", free, o.opts.MinDiskFreeBytes),
			}
		}
	}

	for _, rec := range o.manager.ListBackups() {
		if !rec.IsRestorePoint() && rec.Status == model.BackupStatusCompleted {
			return nil
		}
	}
	return &drerrors.ValidationError{Op: opID, Reason: "no backups available"}
}

// selectBackup picks the explicit backup id, or the newest backup that
// passes verification.
func (o *Orchestrator) selectBackup(ctx context.Context, opID, backupID string) (*model.Backup, error) {
	if backupID != "" {
		rec, err := o.manager.GetBackup(backupID)
		if err != nil {
			return nil, &drerrors.ValidationError{Op: opID, Reason: fmt.Sprintf("backup %s not found", backupID)}
		}
		res, err := o.manager.VerifyBackup(ctx, backupID)
		if err != nil {
			return nil, err
		}
		if !res.Valid {
			return nil, &drerrors.ValidationError{Op: opID, Reason: fmt.Sprintf("backup %s failed verification: %s", backupID, res.Reason)}
		}
		return rec, nil
	}

	for _, rec := range o.manager.ListBackups() {
		if rec.IsRestorePoint() || rec.Status != model.BackupStatusCompleted {
			continue
		}
		res, err := o.manager.VerifyBackup(ctx, rec.ID)
		if err != nil || !res.Valid {
			o.logger.Warn().Str("backup_id", rec.ID).Msg("skipping backup that failed verification")
			continue
		}
		rec := rec
		return &rec, nil
	}
	return nil, &drerrors.ValidationError{Op: opID, Reason: "no valid backup found"}
}

// executePlan runs every plan step in declared order. A critical step
// failure halts the plan; a non-critical failure is accumulated and the
// next step still runs.
func (o *Orchestrator) executePlan(ctx context.Context, logger zerolog.Logger, exec *model.RecoveryExecution, selected *model.Backup, items []string) error {
	total := len(o.plan.Steps)
	for i, step := range o.plan.Steps {
		result := model.StepResult{StepID: step.ID, Status: model.StepStatusRunning}
		o.reportProgress(exec, step.ID, i, total, model.StepStatusRunning)

		stepStart := o.now()
		err := o.runStep(ctx, logger, exec, selected, items, step)
		result.Duration = o.now().Sub(stepStart)

		if err != nil {
			result.Status = model.StepStatusFailed
			result.Error = err.Error()
			o.setExec(func() { exec.Steps = append(exec.Steps, result) })
			o.reportProgress(exec, step.ID, i, total, model.StepStatusFailed)

			if step.Critical {
				logger.Error().Err(err).Str("step", step.ID).Msg("critical step failed, halting plan")
				return err
			}
			logger.Warn().Err(err).Str("step", step.ID).Msg("non-critical step failed, continuing")
			o.setExec(func() { exec.Errors = append(exec.Errors, err.Error()) })
			continue
		}

		result.Status = model.StepStatusCompleted
		o.setExec(func() { exec.Steps = append(exec.Steps, result) })
		o.reportProgress(exec, step.ID, i, total, model.StepStatusCompleted)
	}
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, logger zerolog.Logger, exec *model.RecoveryExecution, selected *model.Backup, items []string, step model.RecoveryStep) error {
	stepCtx := ctx
	if step.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, step.Timeout)
		defer cancel()
	}

	ac := &ActionContext{
		Execution: exec,
		Backup:    selected,
		Manager:   o.manager,
		Items:     items,
		Logger:    logger.With().Str("step", step.ID).Logger(),
	}

	for _, name := range step.Actions {
		fn, ok := o.actions[name]
		if !ok {
			return &drerrors.PlanStepError{
				Op: exec.ID, Step: step.ID, Action: name, Critical: step.Critical,
				Err: fmt.Errorf("no action registered"),
			}
		}
		if err := fn(stepCtx, ac); err != nil {
			return &drerrors.PlanStepError{
				Op: exec.ID, Step: step.ID, Action: name, Critical: step.Critical, Err: err,
			}
		}
	}
	return nil
}

func (o *Orchestrator) reportProgress(exec *model.RecoveryExecution, stepID string, index, total int, status string) {
	if o.progress == nil {
		return
	}
	o.progress(ProgressEvent{
		ExecutionID: exec.ID,
		StepID:      stepID,
		StepIndex:   index,
		TotalSteps:  total,
		Status:      status,
	})
}

// VerifyRecovery runs every registered health checker, retrying up to the
// configured budget with a fixed wait between attempts. It raises a
// TimeoutError if the system is still unhealthy once the budget is spent.
func (o *Orchestrator) VerifyRecovery(ctx context.Context, exec *model.RecoveryExecution) error {
	return o.verify(ctx, o.logger, exec)
}

func (o *Orchestrator) verify(ctx context.Context, logger zerolog.Logger, exec *model.RecoveryExecution) error {
	retries := 0
	for {
		result := o.runCheckers(ctx)
		result.RetriesConsumed = retries
		o.setExec(func() { exec.Verification = result })

		if result.Healthy {
			logger.Info().Int("retries", retries).Msg("verification healthy")
			return nil
		}
		if retries >= o.opts.VerificationRetries {
			logger.Error().Int("retries", retries).Msg("verification budget exhausted")
			return &drerrors.TimeoutError{Op: exec.ID, Retries: retries}
		}
		retries++
		logger.Warn().Int("retry", retries).Msg("verification unhealthy, retrying")
		o.sleep(o.opts.VerificationRetryWait)
	}
}

func (o *Orchestrator) runCheckers(ctx context.Context) *model.VerificationResult {
	result := &model.VerificationResult{Healthy: true}
	for _, c := range o.checkers {
		healthy, details, err := c.check(ctx)
		check := model.CheckResult{Name: c.name, Healthy: healthy, Details: details}
		if err != nil {
			check.Healthy = false
			check.Error = err.Error()
		}
		if !check.Healthy {
			result.Healthy = false
		}
		result.Checks = append(result.Checks, check)
	}
	return result
}

// RollbackRecovery restores the restore-point backup tagged with this
// execution's id. Checksum verification is skipped for speed. A missing
// restore point is recorded as a rollback failure without raising further.
func (o *Orchestrator) RollbackRecovery(ctx context.Context, exec *model.RecoveryExecution) {
	o.rollback(ctx, o.logger, exec)
}

func (o *Orchestrator) rollback(ctx context.Context, logger zerolog.Logger, exec *model.RecoveryExecution) {
	outcome := &model.RollbackResult{Attempted: true}
	// Attached once fully built; snapshots share the pointer.
	defer o.setExec(func() { exec.Rollback = outcome })

	rp, ok := o.manager.FindRestorePoint(exec.ID)
	if !ok {
		outcome.Error = "no restore point found for execution"
		logger.Error().Msg("rollback failed: no restore point found")
		return
	}
	outcome.RestorePointID = rp.ID

	if err := o.manager.RestoreBackup(ctx, rp.ID, backup.RestoreOptions{SkipVerification: true}); err != nil {
		outcome.Error = err.Error()
		logger.Error().Err(err).Str("restore_point_id", rp.ID).Msg("rollback restore failed")
		return
	}

	outcome.Succeeded = true
	logger.Info().Str("restore_point_id", rp.ID).Msg("rollback completed")
}

func (o *Orchestrator) failover(ctx context.Context, logger zerolog.Logger, exec *model.RecoveryExecution) {
	for _, h := range o.failovers {
		if err := h(ctx, exec); err != nil {
			logger.Error().Err(err).Msg("failover handler failed")
		}
	}
}

func (o *Orchestrator) appendHistory(exec *model.RecoveryExecution) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, *exec)
	if err := saveHistory(o.opts.Root, o.history); err != nil {
		o.logger.Error().Err(err).Msg("failed to persist recovery history")
	}
}
