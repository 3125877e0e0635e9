package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-party/internal/models"
)

func TestEvaluateTimer(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		at          time.Time
		timer       *models.Timer
		wantRemain  int
		wantExpired bool
	}{
		{
			name:       "nil timer",
			at:         base,
			timer:      nil,
			wantRemain: 0,
		},
		{
			name:       "running mid countdown",
			at:         base.Add(10 * time.Second),
			timer:      StartTimer(base, 30),
			wantRemain: 20,
		},
		{
			name:        "exactly at expiry",
			at:          base.Add(30 * time.Second),
			timer:       StartTimer(base, 30),
			wantRemain:  0,
			wantExpired: true,
		},
		{
			name:        "past expiry",
			at:          base.Add(45 * time.Second),
			timer:       StartTimer(base, 30),
			wantRemain:  0,
			wantExpired: true,
		},
		{
			name:       "paused timer holds steady and never expires",
			at:         base.Add(10 * time.Minute),
			timer:      PauseTimer(base.Add(18*time.Second), StartTimer(base, 30)),
			wantRemain: 12,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			remain, expired := EvaluateTimer(tc.at, tc.timer)
			assert.Equal(t, tc.wantRemain, remain)
			assert.Equal(t, tc.wantExpired, expired)
		})
	}
}

func TestPauseResumeKeepsRemainingSeconds(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	timer := StartTimer(base, 30)

	// Host pauses at 12s remaining, waits a long time, then resumes.
	paused := PauseTimer(base.Add(18*time.Second), timer)
	require.True(t, paused.IsPaused)
	assert.Equal(t, 12, paused.PausedRemainingSec)

	resumeAt := base.Add(5 * time.Minute)
	resumed := ResumeTimer(resumeAt, paused)
	require.False(t, resumed.IsPaused)

	remain, expired := EvaluateTimer(resumeAt, resumed)
	assert.Equal(t, 12, remain, "remaining seconds resume where they left off, not from wall clock")
	assert.False(t, expired)
}

func TestPauseResumeIdempotence(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	timer := StartTimer(base, 30)

	paused := PauseTimer(base.Add(10*time.Second), timer)
	assert.Equal(t, paused, PauseTimer(base.Add(20*time.Second), paused), "pausing a paused timer is a no-op")

	assert.Equal(t, timer, ResumeTimer(base.Add(5*time.Second), timer), "resuming a running timer is a no-op")
}

func TestPauseDoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	timer := StartTimer(base, 30)
	_ = PauseTimer(base.Add(3*time.Second), timer)
	assert.False(t, timer.IsPaused)
}

func TestForceExpireTimer(t *testing.T) {
	base := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	timer := StartTimer(base, 30)

	at := base.Add(8 * time.Second)
	cut := ForceExpireTimer(at, timer)
	require.NotNil(t, cut)
	assert.True(t, cut.IsEarlyAdvance)

	remain, expired := EvaluateTimer(at, cut)
	assert.Equal(t, 0, remain)
	assert.True(t, expired)
}
