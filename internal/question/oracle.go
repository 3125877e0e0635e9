package question

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// QuestionGetter is what the oracle needs from the question store.
type QuestionGetter interface {
	GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error)
}

// Oracle scores submitted answers against the stored answer key. It is
// the only component that reads CorrectAnswer after setup. A store
// failure surfaces as ErrScoringUnavailable so submission handlers can
// tell the client to retry rather than silently recording an unscored
// answer.
type Oracle struct {
	store QuestionGetter
}

func NewOracle(store QuestionGetter) *Oracle {
	return &Oracle{store: store}
}

// ScoreAnswer reports whether submitted matches the question's answer
// key. Matching is case-insensitive on the option key.
func (o *Oracle) ScoreAnswer(ctx context.Context, questionID uuid.UUID, submitted string) (bool, error) {
	q, err := o.store.GetQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, game.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("answer key lookup failed: %w", game.ErrScoringUnavailable)
	}
	return strings.EqualFold(strings.TrimSpace(submitted), q.CorrectAnswer), nil
}
