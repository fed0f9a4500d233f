package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseCadence(t *testing.T) {
	tests := []struct {
		in         string
		want       time.Duration
		recognized bool
	}{
		{"@hourly", time.Hour, true},
		{"@daily", 24 * time.Hour, true},
		{"0 * * * *", time.Hour, true},
		{"0 2 * * *", 24 * time.Hour, true},
		{"6h", 6 * time.Hour, true},
		{"every 15m", 15 * time.Minute, true},
		{"*/5 * * * *", 24 * time.Hour, false},
		{"soon", 24 * time.Hour, false},
	}

	for _, tt := range tests {
		got, ok := ParseCadence(tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
		assert.Equal(t, tt.recognized, ok, "input %q", tt.in)
	}
}

func TestScheduler_RunsAndStops(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler(zerolog.Nop(), "test", 10*time.Millisecond, func() {
		runs.Add(1)
	})

	s.Start()
	time.Sleep(55 * time.Millisecond)
	s.Stop()

	after := runs.Load()
	assert.GreaterOrEqual(t, after, int32(2))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "scheduler ticked after Stop")
}

func TestScheduler_StopTwiceIsSafe(t *testing.T) {
	s := NewScheduler(zerolog.Nop(), "test", time.Hour, func() {})
	s.Start()
	s.Stop()
	s.Stop()
}
