package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	backupOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drengine_backup_operations_total",
		Help: "Total number of backup operations",
	}, []string{"status", "type"})

	backupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drengine_backup_duration_seconds",
		Help:    "Duration of backup operations",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"type"})

	backupSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "drengine_backup_size_bytes",
		Help: "Size of the most recent backup payload in bytes",
	}, []string{"type"})

	recoveryOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drengine_recovery_operations_total",
		Help: "Total number of recovery executions",
	}, []string{"status", "type"})

	recoveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "drengine_recovery_duration_seconds",
		Help:    "Duration of recovery executions",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"type"})

	lastBackupTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "drengine_last_successful_backup_timestamp_seconds",
		Help: "Unix timestamp of the last completed backup",
	})
)

func RecordBackup(status, backupType string, size int64, duration time.Duration) {
	backupOperations.WithLabelValues(status, backupType).Inc()
	backupDuration.WithLabelValues(backupType).Observe(duration.Seconds())
	if status == "completed" {
		backupSize.WithLabelValues(backupType).Set(float64(size))
		lastBackupTimestamp.SetToCurrentTime()
	}
}

func RecordRecovery(status, recoveryType string, duration time.Duration) {
	recoveryOperations.WithLabelValues(status, recoveryType).Inc()
	recoveryDuration.WithLabelValues(recoveryType).Observe(duration.Seconds())
}
