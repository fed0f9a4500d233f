package backup

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/drengine/internal/model"
	"github.com/edvin/drengine/internal/schedule"
)

// Scheduler drives recurring scheduled backups. A failed tick is logged and
// does not cancel future ticks.
type Scheduler struct {
	inner *schedule.Scheduler
}

func NewScheduler(logger zerolog.Logger, m *Manager, interval time.Duration) *Scheduler {
	log := logger.With().Str("component", "backup-scheduler").Logger()
	task := func() {
		rec, err := m.CreateBackup(context.Background(), CreateOptions{
			Type:            model.BackupTypeScheduled,
			ContinueOnError: true,
		})
		if err != nil {
			log.Error().Err(err).Msg("scheduled backup failed")
			return
		}
		log.Info().Str("backup_id", rec.ID).Msg("scheduled backup completed")
	}
	return &Scheduler{inner: schedule.NewScheduler(log, "backup", interval, task)}
}

func (s *Scheduler) Start() { s.inner.Start() }

// Stop halts future ticks; an in-flight backup runs to completion.
func (s *Scheduler) Stop() { s.inner.Stop() }
