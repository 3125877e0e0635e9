package models

import "github.com/google/uuid"

// Round groups questions within a session.
type Round struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	RoundNumber int       `json:"round_number"`
	Title       string    `json:"title"`
}

// QuestionOptions holds the four multiple-choice answers.
type QuestionOptions struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c"`
	D string `json:"d"`
}

// Question is one prompt within a round. CorrectAnswer never leaves the
// server; AudioReady is a presentational flag, not a phase precondition.
type Question struct {
	ID             uuid.UUID       `json:"id"`
	SessionID      uuid.UUID       `json:"session_id"`
	RoundID        uuid.UUID       `json:"round_id"`
	QuestionNumber int             `json:"question_number"`
	Category       string          `json:"category"`
	Prompt         string          `json:"prompt"`
	Options        QuestionOptions `json:"options"`
	CorrectAnswer  string          `json:"-"`
	Difficulty     string          `json:"difficulty"`
	AudioReady     bool            `json:"audio_ready"`
}
