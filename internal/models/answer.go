package models

import (
	"time"

	"github.com/google/uuid"
)

// AnswerEvent is one team's submission for one question. Unique per
// (question, team); immutable once scored. IsCorrect is derived by the
// answer-key oracle, never client-supplied.
type AnswerEvent struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	TeamID         uuid.UUID `json:"team_id"`
	PlayerID       uuid.UUID `json:"player_id"`
	SubmittedValue string    `json:"submitted_value"`
	IsCorrect      bool      `json:"is_correct"`
	CreatedAt      time.Time `json:"created_at"`
}
