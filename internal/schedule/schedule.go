// Package schedule provides the structured cadence type used for scheduled
// backups and recovery drills, plus a stoppable interval scheduler.
package schedule

import (
	"strings"
	"time"
)

// ParseCadence turns a schedule string into an interval. Recognized forms:
//
//   - a Go duration ("6h", "90m")
//   - "every <duration>"
//   - "@hourly" / "@daily"
//   - the two legacy cron literals "0 * * * *" (hourly) and "0 2 * * *" (daily)
//
// Anything else falls back to daily; the second return value reports whether
// the input was recognized so callers can log the fallback.
func ParseCadence(s string) (time.Duration, bool) {
	switch strings.TrimSpace(s) {
	case "@hourly", "0 * * * *":
		return time.Hour, true
	case "@daily", "0 2 * * *":
		return 24 * time.Hour, true
	}

	spec := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "every "))
	if d, err := time.ParseDuration(spec); err == nil && d > 0 {
		return d, true
	}

	return 24 * time.Hour, false
}
