package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edvin/drengine/internal/backup"
	"github.com/edvin/drengine/internal/config"
	"github.com/edvin/drengine/internal/logging"
	"github.com/edvin/drengine/internal/model"
	"github.com/edvin/drengine/internal/recovery"
	"github.com/edvin/drengine/internal/storage"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "backup":
		cmdBackup(os.Args[2:])
	case "restore":
		cmdRestore(os.Args[2:])
	case "list":
		cmdList()
	case "verify":
		cmdVerify(os.Args[2:])
	case "clean":
		cmdClean()
	case "recover":
		cmdRecover(os.Args[2:])
	case "drill":
		cmdDrill(os.Args[2:])
	case "history":
		cmdHistory()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: drengine <command> [flags]

Commands:
  backup    Create a backup
  restore   Restore a backup by id
  list      List catalog entries
  verify    Verify a backup's integrity
  clean     Apply the retention policy now
  recover   Run a full disaster recovery
  drill     Run a recovery drill in an isolated ledger
  history   Show recovery history`)
}

type engine struct {
	cfg          *config.Config
	manager      *backup.Manager
	orchestrator *recovery.Orchestrator
}

// newEngine wires the same stack as the daemon, minus the schedulers and
// the metrics server.
func newEngine(ctx context.Context) *engine {
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}

	logger := logging.NewLogger(cfg)

	backends := storage.NewRegistry()
	local, err := storage.NewLocalBackend(filepath.Join(cfg.BackupPath, "payloads"))
	if err != nil {
		fatal("failed to initialize local storage backend: %v", err)
	}
	backends.Register(local)
	if cfg.S3Bucket != "" {
		backends.Register(storage.NewS3Backend(storage.S3Options{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		}))
	}
	backend, err := backends.Get(cfg.StorageBackend)
	if err != nil {
		fatal("failed to select storage backend: %v", err)
	}

	items := backup.NewRegistry()
	for name, file := range map[string]string{
		"config":          "config.json",
		"state":           "state.json",
		"structured-data": "projects.json",
	} {
		path := filepath.Join(cfg.DataPath, file)
		items.RegisterCollector(name, backup.FileCollector(path))
		items.RegisterRestorer(name, backup.FileRestorer(path))
	}

	manager := backup.NewManager(logger, backup.Options{
		Root:                  cfg.BackupPath,
		EncryptionEnabled:     cfg.EncryptionEnabled,
		EncryptionKeyMaterial: cfg.EncryptionKey,
		CompressionEnabled:    cfg.CompressionEnabled,
		CompressionLevel:      cfg.CompressionLevel,
		RetentionDays:         cfg.RetentionDays,
		MaxBackups:            cfg.MaxBackups,
	}, backend, items)
	if err := manager.Initialize(ctx); err != nil {
		fatal("failed to initialize backup manager: %v", err)
	}

	orchestrator := recovery.NewOrchestrator(logger, recovery.Options{
		Root:                  cfg.BackupPath,
		RTO:                   cfg.RTO,
		RPO:                   cfg.RPO,
		VerificationRetries:   cfg.VerificationRetries,
		VerificationRetryWait: cfg.VerificationRetryWait,
		MinDiskFreeBytes:      cfg.MinDiskFreeBytes,
		AutoFailoverEnabled:   cfg.AutoFailoverEnabled,
		PlanPath:              cfg.RecoveryPlanPath,
	})
	if err := orchestrator.Initialize(ctx, manager); err != nil {
		fatal("failed to initialize orchestrator: %v", err)
	}

	return &engine{cfg: cfg, manager: manager, orchestrator: orchestrator}
}

func cmdBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	backupType := fs.String("type", model.BackupTypeFull, "Backup type")
	itemList := fs.String("items", "", "Comma-separated item subset (default: all registered items)")
	continueOnError := fs.Bool("continue-on-error", false, "Skip items whose collector is missing or fails")
	fs.Parse(args)

	ctx := context.Background()
	e := newEngine(ctx)

	rec, err := e.manager.CreateBackup(ctx, backup.CreateOptions{
		Type:            *backupType,
		Items:           splitItems(*itemList),
		ContinueOnError: *continueOnError,
	})
	if err != nil {
		fatal("backup failed: %v", err)
	}

	fmt.Printf("Created backup %s\n", rec.ID)
	fmt.Printf("  items: %s\n", strings.Join(rec.Items, ", "))
	fmt.Printf("  size: %d bytes, compressed: %t, encrypted: %t\n", rec.SizeBytes, rec.Compressed, rec.Encrypted)
}

func cmdRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	itemList := fs.String("items", "", "Comma-separated item subset (default: everything in the backup)")
	skipVerification := fs.Bool("skip-verification", false, "Skip checksum verification")
	restorePoint := fs.Bool("restore-point", false, "Create a restore point of current state first")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drengine restore [flags] <backup-id>")
		os.Exit(1)
	}

	ctx := context.Background()
	e := newEngine(ctx)

	err := e.manager.RestoreBackup(ctx, fs.Arg(0), backup.RestoreOptions{
		Items:              splitItems(*itemList),
		SkipVerification:   *skipVerification,
		CreateRestorePoint: *restorePoint,
	})
	if err != nil {
		fatal("restore failed: %v", err)
	}
	fmt.Printf("Restored backup %s\n", fs.Arg(0))
}

func cmdList() {
	e := newEngine(context.Background())

	records := e.manager.ListBackups()
	if len(records) == 0 {
		fmt.Println("No backups in catalog")
		return
	}
	for _, rec := range records {
		fmt.Printf("%s  %-14s %-10s %8d bytes  %s\n",
			rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Type, rec.Status, rec.SizeBytes, rec.ID)
	}
}

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drengine verify <backup-id>")
		os.Exit(1)
	}

	ctx := context.Background()
	e := newEngine(ctx)

	res, err := e.manager.VerifyBackup(ctx, fs.Arg(0))
	if err != nil {
		fatal("verify failed: %v", err)
	}
	if res.Valid {
		fmt.Printf("Backup %s is valid\n", fs.Arg(0))
		return
	}
	fmt.Printf("Backup %s is INVALID: %s\n", fs.Arg(0), res.Reason)
	os.Exit(1)
}

func cmdClean() {
	ctx := context.Background()
	e := newEngine(ctx)

	removed, err := e.manager.CleanOldBackups(ctx)
	if err != nil {
		fatal("cleanup failed: %v", err)
	}
	fmt.Printf("Removed %d backups\n", removed)
}

func cmdRecover(args []string) {
	fs := flag.NewFlagSet("recover", flag.ExitOnError)
	backupID := fs.String("backup", "", "Backup id to recover from (default: newest valid backup)")
	reason := fs.String("reason", "manual recovery", "Why this recovery is being run")
	rollback := fs.Bool("rollback", true, "Roll back to the pre-recovery restore point on failure")
	fs.Parse(args)

	ctx := context.Background()
	e := newEngine(ctx)

	exec, err := e.orchestrator.ExecuteRecovery(ctx, recovery.ExecuteOptions{
		BackupID:          *backupID,
		Reason:            *reason,
		RollbackOnFailure: *rollback,
	})
	if exec != nil {
		printExecution(exec)
	}
	if err != nil {
		fatal("recovery failed: %v", err)
	}
}

func cmdDrill(args []string) {
	fs := flag.NewFlagSet("drill", flag.ExitOnError)
	simulate := fs.Bool("simulate-disaster", false, "Corrupt the drill state before recovering")
	fs.Parse(args)

	ctx := context.Background()
	e := newEngine(ctx)

	result, err := e.orchestrator.TestRecovery(ctx, recovery.TestOptions{SimulateDisaster: *simulate})
	if err != nil {
		fatal("drill failed: %v", err)
	}
	fmt.Printf("Drill %s: status=%s data_restored=%t rto=%t rpo=%t\n",
		result.DrillID, result.Execution.Status, result.DataRestored, result.RTOAchieved, result.RPOAchieved)
}

func cmdHistory() {
	e := newEngine(context.Background())

	history := e.orchestrator.History()
	if len(history) == 0 {
		fmt.Println("No recoveries recorded")
		return
	}
	for _, exec := range history {
		printExecution(&exec)
	}
}

func printExecution(exec *model.RecoveryExecution) {
	fmt.Printf("%s  %-9s %-9s backup=%s duration=%s rto=%t rpo=%t\n",
		exec.StartTime.Format("2006-01-02 15:04:05"), exec.Type, exec.Status,
		exec.BackupID, exec.Duration, exec.RTOAchieved, exec.RPOAchieved)
	for _, step := range exec.Steps {
		fmt.Printf("    %-22s %-9s %s\n", step.StepID, step.Status, step.Duration)
	}
	for _, msg := range exec.Errors {
		fmt.Printf("    non-fatal: %s\n", msg)
	}
}

func splitItems(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
