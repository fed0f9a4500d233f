package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Backup engine.
	DataPath           string `validate:"required"`
	BackupPath         string `validate:"required"`
	StorageBackend     string `validate:"oneof=local s3"`
	EncryptionEnabled  bool
	EncryptionKey      string
	CompressionEnabled bool
	CompressionLevel   int `validate:"min=1,max=9"`
	RetentionDays      int `validate:"min=0"`
	MaxBackups         int `validate:"min=1"`
	BackupSchedule     string

	// Recovery objectives and verification.
	RTO                   time.Duration `validate:"gt=0"`
	RPO                   time.Duration `validate:"gt=0"`
	TestingSchedule       string
	VerificationRetries   int `validate:"min=0"`
	VerificationRetryWait time.Duration
	AutoFailoverEnabled   bool
	RecoveryPlanPath      string
	MinDiskFreeBytes      int64

	// S3 backend (used when StorageBackend is "s3").
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string

	// Daemon.
	HTTPListenAddr string
	LogLevel       string
}

func Load() (*Config, error) {
	cfg := &Config{
		DataPath:           getEnv("DATA_PATH", "/var/lib/drengine/data"),
		BackupPath:         getEnv("BACKUP_PATH", "/var/lib/drengine/backups"),
		StorageBackend:     getEnv("STORAGE_BACKEND", "local"),
		EncryptionEnabled:  getEnvBool("ENCRYPTION_ENABLED", true),
		EncryptionKey:      getEnv("ENCRYPTION_KEY", ""),
		CompressionEnabled: getEnvBool("COMPRESSION_ENABLED", true),
		CompressionLevel:   getEnvInt("COMPRESSION_LEVEL", 6),
		RetentionDays:      getEnvInt("RETENTION_DAYS", 30),
		MaxBackups:         getEnvInt("MAX_BACKUPS", 3),
		BackupSchedule:     getEnv("BACKUP_SCHEDULE", ""),

		RTO:                   getEnvDuration("RTO", 30*time.Minute),
		RPO:                   getEnvDuration("RPO", 24*time.Hour),
		TestingSchedule:       getEnv("TESTING_SCHEDULE", ""),
		VerificationRetries:   getEnvInt("VERIFICATION_RETRIES", 3),
		VerificationRetryWait: getEnvDuration("VERIFICATION_RETRY_WAIT", 10*time.Second),
		AutoFailoverEnabled:   getEnvBool("AUTO_FAILOVER_ENABLED", false),
		RecoveryPlanPath:      getEnv("RECOVERY_PLAN_PATH", ""),
		MinDiskFreeBytes:      int64(getEnvInt("MIN_DISK_FREE_BYTES", 100*1024*1024)),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Prefix:    getEnv("S3_PREFIX", "backups/"),

		HTTPListenAddr: getEnv("HTTP_LISTEN_ADDR", ":8091"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks structural constraints plus the cross-field rules that
// depend on the selected storage backend.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if c.StorageBackend == "s3" && c.S3Bucket == "" {
		return fmt.Errorf("validate config: S3_BUCKET is required when STORAGE_BACKEND=s3")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
