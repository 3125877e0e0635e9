package audio

import (
	"context"

	"github.com/google/uuid"
)

// Storage receives synthesized audio for a question. Blob storage lives
// outside this service, so the SQL-backed implementation records
// readiness only and discards the bytes.
type Storage interface {
	SaveQuestionAudio(ctx context.Context, questionID uuid.UUID, audio []byte) error
}

// QuestionMarker flips a question's audio_ready flag.
type QuestionMarker interface {
	MarkAudioReady(ctx context.Context, questionID uuid.UUID, ready bool) error
}

// ReadinessStorage marks questions audio-ready without persisting bytes.
type ReadinessStorage struct {
	questions QuestionMarker
}

func NewReadinessStorage(questions QuestionMarker) *ReadinessStorage {
	return &ReadinessStorage{questions: questions}
}

func (s *ReadinessStorage) SaveQuestionAudio(ctx context.Context, questionID uuid.UUID, _ []byte) error {
	return s.questions.MarkAudioReady(ctx, questionID, true)
}
