package question

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

type fakeQuestionGetter struct {
	question *models.Question
	err      error
}

func (f *fakeQuestionGetter) GetQuestion(context.Context, uuid.UUID) (*models.Question, error) {
	return f.question, f.err
}

func TestScoreAnswer(t *testing.T) {
	oracle := NewOracle(&fakeQuestionGetter{
		question: &models.Question{ID: uuid.New(), CorrectAnswer: "b"},
	})

	tests := []struct {
		name      string
		submitted string
		correct   bool
	}{
		{name: "exact match", submitted: "b", correct: true},
		{name: "case insensitive", submitted: "B", correct: true},
		{name: "surrounding whitespace", submitted: " b ", correct: true},
		{name: "wrong option", submitted: "c", correct: false},
		{name: "empty submission", submitted: "", correct: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oracle.ScoreAnswer(context.Background(), uuid.New(), tt.submitted)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, got)
		})
	}
}

func TestScoreAnswerStoreFailureIsScoringUnavailable(t *testing.T) {
	oracle := NewOracle(&fakeQuestionGetter{err: errors.New("connection refused")})

	_, err := oracle.ScoreAnswer(context.Background(), uuid.New(), "a")
	assert.ErrorIs(t, err, game.ErrScoringUnavailable)
}

func TestScoreAnswerUnknownQuestion(t *testing.T) {
	oracle := NewOracle(&fakeQuestionGetter{err: game.ErrNotFound})

	_, err := oracle.ScoreAnswer(context.Background(), uuid.New(), "a")
	assert.ErrorIs(t, err, game.ErrNotFound)
	assert.NotErrorIs(t, err, game.ErrScoringUnavailable)
}
