package recovery

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/edvin/drengine/internal/backup"
	"github.com/edvin/drengine/internal/model"
)

// ActionContext carries everything a plan action needs: the execution being
// driven, the selected backup, and the backup manager.
type ActionContext struct {
	Execution *model.RecoveryExecution
	Backup    *model.Backup
	Manager   *backup.Manager
	Items     []string
	Logger    zerolog.Logger
}

// ActionFunc is one named plan action. Plan steps reference actions by
// name; the dispatch table keeps the plan genuinely configurable.
type ActionFunc func(ctx context.Context, ac *ActionContext) error

// RegisterAction adds or replaces a named action. Platform-specific
// service control hooks are wired in this way.
func (o *Orchestrator) RegisterAction(name string, fn ActionFunc) {
	o.actions[name] = fn
}

func (o *Orchestrator) registerBuiltinActions() {
	o.actions["create_restore_point"] = func(ctx context.Context, ac *ActionContext) error {
		rp, err := ac.Manager.CreateBackup(ctx, backup.CreateOptions{
			Type:            model.BackupTypeRestorePoint,
			ContinueOnError: true,
			Metadata: map[string]string{
				model.MetadataKeyExecutionID: ac.Execution.ID,
			},
		})
		if err != nil {
			return err
		}
		ac.Logger.Info().Str("restore_point_id", rp.ID).Msg("restore point created")
		return nil
	}

	o.actions["restore_backup"] = func(ctx context.Context, ac *ActionContext) error {
		// The restore point was taken by an earlier step; checksum
		// verification stays on for the actual data restore.
		return ac.Manager.RestoreBackup(ctx, ac.Backup.ID, backup.RestoreOptions{
			Items: ac.Items,
		})
	}

	// Service control is platform-supplied; the defaults only log so a
	// bare engine still executes the full plan.
	o.actions["stop_services"] = func(ctx context.Context, ac *ActionContext) error {
		ac.Logger.Info().Msg("no service controller registered, skipping service stop")
		return nil
	}
	o.actions["start_services"] = func(ctx context.Context, ac *ActionContext) error {
		ac.Logger.Info().Msg("no service controller registered, skipping service start")
		return nil
	}
	o.actions["cleanup_artifacts"] = func(ctx context.Context, ac *ActionContext) error {
		ac.Logger.Debug().Msg("nothing to clean up")
		return nil
	}
}
