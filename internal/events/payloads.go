package events

import (
	"time"

	"trivia-party/internal/models"
)

// Event payload types shared between the session, orchestrator, and
// gateway packages.

// Event type names as they appear in the outbox and on the bus.
const (
	TypeGameStarted       = "GameStarted"
	TypePhaseChanged      = "PhaseChanged"
	TypeTimerStarted      = "TimerStarted"
	TypeTimerPaused       = "TimerPaused"
	TypeTimerResumed      = "TimerResumed"
	TypeTimerExpired      = "TimerExpired"
	TypeAnswerSubmitted   = "AnswerSubmitted"
	TypeScoreboardUpdated = "ScoreboardUpdated"
	TypeGameCompleted     = "GameCompleted"
	TypeSessionSnapshot   = "SessionSnapshot"
)

// GameStartedPayload is emitted when the host starts an in-progress game.
type GameStartedPayload struct {
	SessionID   string    `json:"session_id"`
	Code        string    `json:"code"`
	StartedAt   time.Time `json:"started_at"`
	TotalRounds int       `json:"total_rounds"`
}

// PhaseChangedPayload is emitted on every advance or go-back.
type PhaseChangedPayload struct {
	SessionID       string           `json:"session_id"`
	Phase           models.GamePhase `json:"phase"`
	PreviousPhase   models.GamePhase `json:"previous_phase"`
	CurrentRound    int              `json:"current_round"`
	CurrentQuestion int              `json:"current_question"`
	EarlyAdvance    bool             `json:"early_advance,omitempty"`
	ChangedAt       time.Time        `json:"changed_at"`
}

// TimerStartedPayload is emitted when a phase begins a countdown.
type TimerStartedPayload struct {
	SessionID   string           `json:"session_id"`
	Phase       models.GamePhase `json:"phase"`
	StartedAt   time.Time        `json:"started_at"`
	ExpiresAt   time.Time        `json:"expires_at"`
	DurationSec int              `json:"duration_sec"`
}

// TimerPausedPayload is emitted when the host pauses the countdown.
type TimerPausedPayload struct {
	SessionID    string    `json:"session_id"`
	PausedAt     time.Time `json:"paused_at"`
	RemainingSec int       `json:"remaining_sec"`
}

// TimerResumedPayload is emitted when the host resumes the countdown.
type TimerResumedPayload struct {
	SessionID string    `json:"session_id"`
	ResumedAt time.Time `json:"resumed_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TimerExpiredPayload is emitted when the orchestrator detects expiry.
// EarlyAdvance marks countdowns cut short because all expected teams had
// answered; observers render a distinct "all answered" notice for those.
type TimerExpiredPayload struct {
	SessionID    string    `json:"session_id"`
	ExpiredAt    time.Time `json:"expired_at"`
	EarlyAdvance bool      `json:"early_advance,omitempty"`
}

// AnswerSubmittedPayload is emitted after a team's answer is recorded.
// Correctness is withheld until round-end.
type AnswerSubmittedPayload struct {
	SessionID   string    `json:"session_id"`
	QuestionID  string    `json:"question_id"`
	TeamID      string    `json:"team_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// ScoreboardUpdatedPayload carries the freshly recomputed scoreboard.
type ScoreboardUpdatedPayload struct {
	SessionID  string            `json:"session_id"`
	Scoreboard models.Scoreboard `json:"scoreboard"`
}

// GameCompletedPayload is emitted when a session reaches completed status.
type GameCompletedPayload struct {
	SessionID   string    `json:"session_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// SessionSnapshotPayload is the full authoritative session document.
// Observers are idempotent re-renderers of whatever snapshot they receive,
// so the gateway always fans out the whole thing, never a diff.
type SessionSnapshotPayload struct {
	Session models.Session `json:"session"`
}
