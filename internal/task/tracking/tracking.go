// Package tracking keeps the elapsed-time ledger of a task.
//
// Only the lifecycle state machine and the administrative task
// operations call into this package. A running session lives only in
// LastStartedAt until Finalize closes it, so pause/resume cycles never
// count the same interval twice.
package tracking

import (
	"math"
	"time"

	"taskflow-backend/internal/task/domain"
)

// MaxTrackedMinutes bounds manual corrections
const MaxTrackedMinutes = 100000

// Start opens a session at now. No-op if one is already running.
func Start(tt *domain.TimeTracking, now time.Time) {
	if tt.IsRunning {
		return
	}
	started := now
	tt.IsRunning = true
	tt.LastStartedAt = &started
}

// Finalize closes the running session and folds it into TotalSeconds.
// Returns the closed session, or nil when nothing was running.
func Finalize(tt *domain.TimeTracking, now time.Time) *domain.Session {
	if !tt.IsRunning {
		return nil
	}
	var startedAt time.Time
	var elapsed int64
	if tt.LastStartedAt != nil {
		startedAt = *tt.LastStartedAt
		elapsed = elapsedSeconds(startedAt, now)
	} else {
		startedAt = now
	}

	session := domain.Session{
		StartedAt:       startedAt,
		EndedAt:         now,
		DurationSeconds: elapsed,
	}
	tt.TotalSeconds += elapsed
	tt.Sessions = append(tt.Sessions, session)
	tt.IsRunning = false
	tt.LastStartedAt = nil
	return &session
}

// LiveTotal returns the tracked seconds including the in-progress session
func LiveTotal(tt domain.TimeTracking, now time.Time) int64 {
	total := tt.TotalSeconds
	if tt.IsRunning && tt.LastStartedAt != nil {
		total += elapsedSeconds(*tt.LastStartedAt, now)
	}
	return total
}

// Reset clears the ledger
func Reset(tt *domain.TimeTracking) {
	*tt = domain.TimeTracking{}
}

// SetTrackedMinutes replaces the ledger with a single synthetic total
func SetTrackedMinutes(tt *domain.TimeTracking, minutes int) error {
	if minutes < 0 || minutes > MaxTrackedMinutes {
		return domain.NewValidationError("minutes", "must be between 0 and %d", MaxTrackedMinutes)
	}
	*tt = domain.TimeTracking{TotalSeconds: int64(minutes) * 60}
	return nil
}

// TrackedMinutes rounds the finalized total to whole minutes
func TrackedMinutes(tt domain.TimeTracking) int {
	return int(math.Round(float64(tt.TotalSeconds) / 60))
}

func elapsedSeconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
