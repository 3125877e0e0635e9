package question

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// Repository persists rounds and questions in Postgres. The correct
// answer is stored here and only ever read server-side.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type CreateRoundRequest struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	RoundNumber int       `json:"round_number"`
	Title       string    `json:"title"`
}

func (r *Repository) CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO rounds (id, session_id, round_number, title)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, round_number, title`,
		req.ID, req.SessionID, req.RoundNumber, req.Title,
	)
	var rd models.Round
	if err := row.Scan(&rd.ID, &rd.SessionID, &rd.RoundNumber, &rd.Title); err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}
	return &rd, nil
}

func (r *Repository) ListRounds(ctx context.Context, sessionID uuid.UUID) ([]models.Round, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, round_number, title FROM rounds
		WHERE session_id = $1 ORDER BY round_number ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var out []models.Round
	for rows.Next() {
		var rd models.Round
		if err := rows.Scan(&rd.ID, &rd.SessionID, &rd.RoundNumber, &rd.Title); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *Repository) CountRounds(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rounds WHERE session_id = $1`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rounds: %w", err)
	}
	return n, nil
}

type CreateQuestionRequest struct {
	ID             uuid.UUID              `json:"id"`
	SessionID      uuid.UUID              `json:"session_id"`
	RoundID        uuid.UUID              `json:"round_id"`
	QuestionNumber int                    `json:"question_number"`
	Category       string                 `json:"category"`
	Prompt         string                 `json:"prompt"`
	Options        models.QuestionOptions `json:"options"`
	CorrectAnswer  string                 `json:"correct_answer"`
	Difficulty     string                 `json:"difficulty"`
}

const questionColumns = `id, session_id, round_id, question_number, category,
	prompt, options, correct_answer, difficulty, audio_ready`

func (r *Repository) CreateQuestion(ctx context.Context, req CreateQuestionRequest) (*models.Question, error) {
	optionsBytes, err := json.Marshal(req.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal options: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO questions (id, session_id, round_id, question_number,
			category, prompt, options, correct_answer, difficulty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+questionColumns,
		req.ID, req.SessionID, req.RoundID, req.QuestionNumber,
		req.Category, req.Prompt, optionsBytes, req.CorrectAnswer, req.Difficulty,
	)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return q, nil
}

func (r *Repository) GetQuestion(ctx context.Context, id uuid.UUID) (*models.Question, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return q, nil
}

// GetQuestionByPosition resolves the active question from the session's
// one-based round and question numbers.
func (r *Repository) GetQuestionByPosition(ctx context.Context, sessionID uuid.UUID, roundNumber, questionNumber int) (*models.Question, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+qualifiedQuestionColumns+` FROM questions q
		JOIN rounds rd ON rd.id = q.round_id
		WHERE q.session_id = $1 AND rd.round_number = $2 AND q.question_number = $3`,
		sessionID, roundNumber, questionNumber)
	q, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question by position: %w", err)
	}
	return q, nil
}

func (r *Repository) CountQuestionsInRound(ctx context.Context, sessionID uuid.UUID, roundNumber int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM questions q
		JOIN rounds rd ON rd.id = q.round_id
		WHERE q.session_id = $1 AND rd.round_number = $2`,
		sessionID, roundNumber).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions in round: %w", err)
	}
	return n, nil
}

func (r *Repository) ListQuestionsForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+qualifiedQuestionColumns+` FROM questions q
		JOIN rounds rd ON rd.id = q.round_id
		WHERE q.session_id = $1
		ORDER BY rd.round_number ASC, q.question_number ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// RoundNumbersByQuestion maps every question of the session to its round
// number, for the scoreboard's per-round breakdown.
func (r *Repository) RoundNumbersByQuestion(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT q.id, rd.round_number FROM questions q
		JOIN rounds rd ON rd.id = q.round_id
		WHERE q.session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to map questions to rounds: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			id    uuid.UUID
			round int
		)
		if err := rows.Scan(&id, &round); err != nil {
			return nil, fmt.Errorf("failed to scan question round: %w", err)
		}
		out[id] = round
	}
	return out, rows.Err()
}

func (r *Repository) MarkAudioReady(ctx context.Context, questionID uuid.UUID, ready bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE questions SET audio_ready = $1 WHERE id = $2`, ready, questionID)
	if err != nil {
		return fmt.Errorf("failed to mark audio ready: %w", err)
	}
	return nil
}

const qualifiedQuestionColumns = `q.id, q.session_id, q.round_id, q.question_number,
	q.category, q.prompt, q.options, q.correct_answer, q.difficulty, q.audio_ready`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var (
		q            models.Question
		optionsBytes []byte
	)
	err := row.Scan(
		&q.ID, &q.SessionID, &q.RoundID, &q.QuestionNumber, &q.Category,
		&q.Prompt, &optionsBytes, &q.CorrectAnswer, &q.Difficulty, &q.AudioReady,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(optionsBytes, &q.Options); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}
	return &q, nil
}
