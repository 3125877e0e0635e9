package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a scoring unit within a session. Creation order is the ranking
// tie-break.
type Team struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerInfo is the denormalized player entry embedded in the scoreboard.
type PlayerInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Membership records that a player has joined a session. Created once per
// (session, player); team reassignment mutates TeamID in place. Never
// deleted on disconnect.
type Membership struct {
	SessionID  uuid.UUID  `json:"session_id"`
	PlayerID   uuid.UUID  `json:"player_id"`
	PlayerName string     `json:"player_name"`
	TeamID     *uuid.UUID `json:"team_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
