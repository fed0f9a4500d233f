package model

import "time"

// Backup types.
const (
	BackupTypeFull         = "full"
	BackupTypeIncremental  = "incremental"
	BackupTypeScheduled    = "scheduled"
	BackupTypeTest         = "test"
	BackupTypeRestorePoint = "restore_point"
)

// Backup statuses.
const (
	BackupStatusInProgress = "in_progress"
	BackupStatusCompleted  = "completed"
	BackupStatusFailed     = "failed"
)

// Backup is a single catalog record. Records are immutable once their
// status is completed.
type Backup struct {
	ID               string            `json:"id"`
	Type             string            `json:"type"`
	Timestamp        time.Time         `json:"timestamp"`
	Status           string            `json:"status"`
	Items            []string          `json:"items"`
	SizeBytes        int64             `json:"size_bytes"`
	Duration         time.Duration     `json:"duration"`
	Compressed       bool              `json:"compressed"`
	CompressionRatio float64           `json:"compression_ratio,omitempty"`
	Encrypted        bool              `json:"encrypted"`
	StorageBackend   string            `json:"storage_backend"`
	Locator          string            `json:"locator"`
	Checksums        map[string]string `json:"checksums"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// IsRestorePoint reports whether the record is a pre-recovery safety backup.
// Restore points are exempt from retention cleanup.
func (b *Backup) IsRestorePoint() bool {
	return b.Type == BackupTypeRestorePoint
}

// MetadataKeyExecutionID tags a restore-point backup with the recovery
// execution that created it, so rollback can find it again.
const MetadataKeyExecutionID = "execution_id"
