package game

import (
	"time"

	"trivia-party/internal/models"
)

// Timer math is pure: every function takes the clock reading as an
// argument and returns a new value, never mutating its input. Expiry is
// detected here but enforced by the orchestrator.

// StartTimer returns a running countdown of durationSec seconds.
func StartTimer(now time.Time, durationSec int) *models.Timer {
	return &models.Timer{
		StartedAt:   now,
		DurationSec: durationSec,
		ExpiresAt:   now.Add(time.Duration(durationSec) * time.Second),
	}
}

// EvaluateTimer reports the remaining whole seconds and whether the timer
// has expired. A paused timer never expires; its remaining seconds hold
// steady. Safe to call arbitrarily often.
func EvaluateTimer(now time.Time, t *models.Timer) (remainingSec int, expired bool) {
	if t == nil {
		return 0, false
	}
	if t.IsPaused {
		return t.PausedRemainingSec, false
	}
	rem := t.ExpiresAt.Sub(now)
	if rem <= 0 {
		return 0, true
	}
	return int((rem + time.Second - 1) / time.Second), false
}

// PauseTimer captures the remaining seconds and marks the timer paused.
// Pausing an already-paused timer is a no-op.
func PauseTimer(now time.Time, t *models.Timer) *models.Timer {
	if t == nil || t.IsPaused {
		return t
	}
	paused := *t
	rem := int(t.ExpiresAt.Sub(now) / time.Second)
	if rem < 0 {
		rem = 0
	}
	paused.IsPaused = true
	paused.PausedRemainingSec = rem
	return &paused
}

// ResumeTimer recomputes the expiry from the captured remaining seconds.
// Resuming a running timer is a no-op.
func ResumeTimer(now time.Time, t *models.Timer) *models.Timer {
	if t == nil || !t.IsPaused {
		return t
	}
	resumed := *t
	resumed.ExpiresAt = now.Add(time.Duration(t.PausedRemainingSec) * time.Second)
	resumed.IsPaused = false
	resumed.PausedRemainingSec = 0
	return &resumed
}

// ForceExpireTimer cuts a countdown short because every expected answer
// arrived early. The flag is presentational only; the destination phase is
// unchanged.
func ForceExpireTimer(now time.Time, t *models.Timer) *models.Timer {
	if t == nil {
		return nil
	}
	expired := *t
	expired.ExpiresAt = now
	expired.IsPaused = false
	expired.PausedRemainingSec = 0
	expired.IsEarlyAdvance = true
	return &expired
}
