package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"BACKUP_PATH", "STORAGE_BACKEND", "ENCRYPTION_ENABLED", "COMPRESSION_LEVEL",
		"RETENTION_DAYS", "MAX_BACKUPS", "RTO", "RPO", "VERIFICATION_RETRIES",
		"HTTP_LISTEN_ADDR", "LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/drengine/data", cfg.DataPath)
	assert.Equal(t, "/var/lib/drengine/backups", cfg.BackupPath)
	assert.Equal(t, "local", cfg.StorageBackend)
	assert.True(t, cfg.EncryptionEnabled)
	assert.Equal(t, 6, cfg.CompressionLevel)
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 3, cfg.MaxBackups)
	assert.Equal(t, 30*time.Minute, cfg.RTO)
	assert.Equal(t, 24*time.Hour, cfg.RPO)
	assert.Equal(t, 3, cfg.VerificationRetries)
	assert.Equal(t, ":8091", cfg.HTTPListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_AllEnvVars(t *testing.T) {
	t.Setenv("BACKUP_PATH", "/tmp/backups")
	t.Setenv("STORAGE_BACKEND", "s3")
	t.Setenv("ENCRYPTION_ENABLED", "false")
	t.Setenv("COMPRESSION_LEVEL", "9")
	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("MAX_BACKUPS", "5")
	t.Setenv("RTO", "15m")
	t.Setenv("RPO", "1h")
	t.Setenv("VERIFICATION_RETRIES", "5")
	t.Setenv("S3_BUCKET", "dr-backups")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/backups", cfg.BackupPath)
	assert.Equal(t, "s3", cfg.StorageBackend)
	assert.False(t, cfg.EncryptionEnabled)
	assert.Equal(t, 9, cfg.CompressionLevel)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 5, cfg.MaxBackups)
	assert.Equal(t, 15*time.Minute, cfg.RTO)
	assert.Equal(t, time.Hour, cfg.RPO)
	assert.Equal(t, 5, cfg.VerificationRetries)
	assert.Equal(t, "dr-backups", cfg.S3Bucket)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "not-a-number")
	t.Setenv("RTO", "eventually")
	t.Setenv("ENCRYPTION_ENABLED", "sure")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, 30*time.Minute, cfg.RTO)
	assert.True(t, cfg.EncryptionEnabled)
}

func TestValidate_S3RequiresBucket(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "s3")
	os.Unsetenv("S3_BUCKET")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
}

func TestValidate_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "ftp")

	cfg, err := Load()
	require.NoError(t, err)

	require.Error(t, cfg.Validate())
}
