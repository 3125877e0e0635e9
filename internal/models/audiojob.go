package models

import (
	"time"

	"github.com/google/uuid"
)

// AudioJobStatus defines the lifecycle of an audio generation job.
type AudioJobStatus string

const (
	AudioJobPending    AudioJobStatus = "pending"
	AudioJobProcessing AudioJobStatus = "processing"
	AudioJobCompleted  AudioJobStatus = "completed"
	AudioJobFailed     AudioJobStatus = "failed"
)

// AudioJob tracks asynchronous text-to-speech generation for a session's
// questions. At most one pending/processing job exists per session; job
// progress never gates any session operation.
type AudioJob struct {
	ID                 uuid.UUID      `json:"id"`
	SessionID          uuid.UUID      `json:"session_id"`
	Status             AudioJobStatus `json:"status"`
	Progress           int            `json:"progress"` // percent 0-100
	TotalQuestions     int            `json:"total_questions"`
	CompletedQuestions int            `json:"completed_questions"`
	FailedQuestions    []uuid.UUID    `json:"failed_questions"`
	CurrentAPIKeyIndex int            `json:"current_api_key_index"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}
