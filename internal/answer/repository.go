package answer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trivia-party/internal/models"
)

// ErrDuplicateAnswer is returned when a team already has an answer on
// record for the question. First write wins; later submissions from any
// member of the team are rejected, never overwritten.
var ErrDuplicateAnswer = errors.New("team already answered this question")

const uniqueViolation = "23505"

// Repository persists answer events in Postgres. The UNIQUE constraint on
// (question_id, team_id) is the arbiter for racing teammates, so two
// concurrent submissions cannot both land.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type CreateAnswerRequest struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	TeamID         uuid.UUID `json:"team_id"`
	PlayerID       uuid.UUID `json:"player_id"`
	SubmittedValue string    `json:"submitted_value"`
	IsCorrect      bool      `json:"is_correct"`
}

func (r *Repository) CreateAnswer(ctx context.Context, req CreateAnswerRequest) (*models.AnswerEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO answers (id, session_id, question_id, team_id, player_id,
			submitted_value, is_correct)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, session_id, question_id, team_id, player_id,
			submitted_value, is_correct, created_at`,
		req.ID, req.SessionID, req.QuestionID, req.TeamID, req.PlayerID,
		req.SubmittedValue, req.IsCorrect,
	)
	a, err := scanAnswer(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateAnswer
		}
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}
	return a, nil
}

func (r *Repository) CountAnswersForQuestion(ctx context.Context, questionID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM answers WHERE question_id = $1`, questionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return n, nil
}

func (r *Repository) ListAnswersForQuestion(ctx context.Context, questionID uuid.UUID) ([]models.AnswerEvent, error) {
	return r.list(ctx, `
		SELECT id, session_id, question_id, team_id, player_id,
			submitted_value, is_correct, created_at
		FROM answers WHERE question_id = $1 ORDER BY created_at ASC`, questionID)
}

func (r *Repository) ListAnswersForSession(ctx context.Context, sessionID uuid.UUID) ([]models.AnswerEvent, error) {
	return r.list(ctx, `
		SELECT id, session_id, question_id, team_id, player_id,
			submitted_value, is_correct, created_at
		FROM answers WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
}

func (r *Repository) list(ctx context.Context, query string, arg any) ([]models.AnswerEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer rows.Close()

	var out []models.AnswerEvent
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnswer(row rowScanner) (*models.AnswerEvent, error) {
	var a models.AnswerEvent
	err := row.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.TeamID, &a.PlayerID,
		&a.SubmittedValue, &a.IsCorrect, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
