package schedule

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler runs a task at a fixed interval until stopped. A failing run is
// logged by the task itself and never cancels future ticks. Stop halts
// future ticks but does not interrupt a run already in flight.
type Scheduler struct {
	logger   zerolog.Logger
	interval time.Duration
	task     func()

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewScheduler(logger zerolog.Logger, name string, interval time.Duration, task func()) *Scheduler {
	return &Scheduler{
		logger:   logger.With().Str("component", "scheduler").Str("schedule", name).Logger(),
		interval: interval,
		task:     task,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	s.logger.Info().Dur("interval", s.interval).Msg("starting scheduler")
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.task()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop halts future ticks and waits for the scheduler goroutine to exit.
// An in-flight task run still completes.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}
