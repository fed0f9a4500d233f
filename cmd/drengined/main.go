package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/edvin/drengine/internal/backup"
	"github.com/edvin/drengine/internal/config"
	"github.com/edvin/drengine/internal/logging"
	"github.com/edvin/drengine/internal/metrics"
	"github.com/edvin/drengine/internal/platform"
	"github.com/edvin/drengine/internal/recovery"
	"github.com/edvin/drengine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backends := storage.NewRegistry()
	local, err := storage.NewLocalBackend(filepath.Join(cfg.BackupPath, "payloads"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize local storage backend")
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
		logger.Fatal().Err(err).Msg("failed to select storage backend")
	}

	items := backup.NewRegistry()
	registerItems(items, cfg.DataPath)

	manager := backup.NewManager(logger, backup.Options{
		Root:                  cfg.BackupPath,
		EncryptionEnabled:     cfg.EncryptionEnabled,
		EncryptionKeyMaterial: cfg.EncryptionKey,
		CompressionEnabled:    cfg.CompressionEnabled,
		CompressionLevel:      cfg.CompressionLevel,
		RetentionDays:         cfg.RetentionDays,
		MaxBackups:            cfg.MaxBackups,
		Schedule:              cfg.BackupSchedule,
	}, backend, items)
	if err := manager.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize backup manager")
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
		TestingSchedule:       cfg.TestingSchedule,
	})
	registerHealthCheckers(orchestrator, cfg, backend)
	if err := orchestrator.Initialize(ctx, manager); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize disaster recovery orchestrator")
	}

	srv := metrics.NewServer(cfg.HTTPListenAddr)
	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting metrics server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	logger.Info().Str("backend", backend.Name()).Str("backup_path", cfg.BackupPath).
		Msg("disaster recovery engine running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	orchestrator.Stop()
	manager.Stop()
	srv.Shutdown(context.Background())
	cancel()
}

// registerItems wires the default snapshot items to files under the data
// directory. Optional items are only registered when the file exists so a
// fresh install still produces complete backups.
func registerItems(items *backup.Registry, dataPath string) {
	required := map[string]string{
		"config":          filepath.Join(dataPath, "config.json"),
		"state":           filepath.Join(dataPath, "state.json"),
		"structured-data": filepath.Join(dataPath, "projects.json"),
	}
	optional := map[string]string{
		"logs":    filepath.Join(dataPath, "activity.log"),
		"uploads": filepath.Join(dataPath, "uploads.tar"),
	}

	for name, path := range required {
		items.RegisterCollector(name, backup.FileCollector(path))
		items.RegisterRestorer(name, backup.FileRestorer(path))
	}
	for name, path := range optional {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		items.RegisterCollector(name, backup.FileCollector(path))
		items.RegisterRestorer(name, backup.FileRestorer(path))
	}
}

func registerHealthCheckers(o *recovery.Orchestrator, cfg *config.Config, backend storage.Backend) {
	o.RegisterHealthChecker("data-files", func(ctx context.Context) (bool, string, error) {
		for _, name := range []string{"config.json", "state.json", "projects.json"} {
			if _, err := os.Stat(filepath.Join(cfg.DataPath, name)); err != nil {
				return false, fmt.Sprintf("%s missing", name), nil
			}
		}
		return true, "all data files present", nil
	})

	o.RegisterHealthChecker("storage-backend", func(ctx context.Context) (bool, string, error) {
		if _, err := backend.List(ctx); err != nil {
			return false, "", err
		}
		return true, "backend reachable", nil
	})

	o.RegisterHealthChecker("disk-headroom", func(ctx context.Context) (bool, string, error) {
		free, err := platform.DiskFree(cfg.BackupPath)
		if err != nil {
			return false, "", err
		}
		if cfg.MinDiskFreeBytes > 0 && free < uint64(cfg.MinDiskFreeBytes) {
			return false, fmt.Sprintf("%d bytes free", free), nil
		}
		return true, fmt.Sprintf("%d bytes free", free), nil
	})
}
