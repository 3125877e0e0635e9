package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the coarse lifecycle of a session. Phase only has
// meaning once the status is IN_PROGRESS.
type GameStatus string

const (
	GameStatusSetup      GameStatus = "setup"
	GameStatusReady      GameStatus = "ready"
	GameStatusInProgress GameStatus = "in-progress"
	GameStatusCompleted  GameStatus = "completed"
)

// GamePhase defines the current step of an in-progress session.
type GamePhase string

const (
	PhaseGameStart     GamePhase = "game-start"
	PhaseRoundStart    GamePhase = "round-start"
	PhaseRoundPlay     GamePhase = "round-play"
	PhaseRoundEnd      GamePhase = "round-end"
	PhaseGameEnd       GamePhase = "game-end"
	PhaseThanks        GamePhase = "thanks"
	PhaseReturnToLobby GamePhase = "return-to-lobby"
)

// Timer is the countdown attached to a phase. When IsPaused is true,
// PausedRemainingSec is authoritative and ExpiresAt must be ignored.
type Timer struct {
	StartedAt          time.Time `json:"started_at"`
	DurationSec        int       `json:"duration_sec"`
	ExpiresAt          time.Time `json:"expires_at"`
	IsPaused           bool      `json:"is_paused"`
	PausedRemainingSec int       `json:"paused_remaining_sec,omitempty"`
	IsEarlyAdvance     bool      `json:"is_early_advance,omitempty"`
}

// TeamScore is one team's entry in the scoreboard.
type TeamScore struct {
	Name        string         `json:"name"`
	Players     []PlayerInfo   `json:"players"`
	Score       int            `json:"score"`
	RoundScores map[string]int `json:"round_scores,omitempty"` // round number -> score
}

// Scoreboard maps team id (or "no-team") to its standing.
type Scoreboard struct {
	Updated time.Time            `json:"updated"`
	Teams   map[string]TeamScore `json:"teams"`
}

// NewScoreboard returns an empty scoreboard with the no-team bucket.
func NewScoreboard() Scoreboard {
	return Scoreboard{
		Teams: map[string]TeamScore{
			NoTeamID: {Name: "No Team", Players: []PlayerInfo{}},
		},
	}
}

// NoTeamID is the scoreboard bucket for players who have not picked a team.
const NoTeamID = "no-team"

// GameSettings holds JSONB per-session configuration. A zero timer value
// means the phase runs without a countdown.
type GameSettings struct {
	RoundPlayTimerSec  int `json:"round_play_timer_sec"`
	GameStartTimerSec  int `json:"game_start_timer_sec,omitempty"`
	RoundStartTimerSec int `json:"round_start_timer_sec,omitempty"`
	RoundEndTimerSec   int `json:"round_end_timer_sec,omitempty"`
	GameEndTimerSec    int `json:"game_end_timer_sec,omitempty"`
}

// Session is the authoritative live-game document observed by the host,
// players, and display clients.
type Session struct {
	ID              uuid.UUID    `json:"id"`
	HostID          uuid.UUID    `json:"host_id"`
	Name            string       `json:"name"`
	Code            string       `json:"code"`
	Status          GameStatus   `json:"status"`
	Phase           GamePhase    `json:"phase,omitempty"`
	CurrentRound    int          `json:"current_round"`
	CurrentQuestion int          `json:"current_question"`
	Timer           *Timer       `json:"timer,omitempty"`
	Scoreboard      Scoreboard   `json:"scoreboard"`
	Settings        GameSettings `json:"settings"`
	Version         int          `json:"version"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
