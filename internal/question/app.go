package question

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// QuestionStore defines what the app layer needs from the repository.
type QuestionStore interface {
	CreateRound(ctx context.Context, req CreateRoundRequest) (*models.Round, error)
	ListRounds(ctx context.Context, sessionID uuid.UUID) ([]models.Round, error)
	CreateQuestion(ctx context.Context, req CreateQuestionRequest) (*models.Question, error)
	GetQuestionByPosition(ctx context.Context, sessionID uuid.UUID, roundNumber, questionNumber int) (*models.Question, error)
	ListQuestionsForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
}

// SessionReader gates content edits on the session lifecycle.
type SessionReader interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// App handles round and question content management. Content is only
// editable while the session is in setup.
type App struct {
	store    QuestionStore
	sessions SessionReader
	logger   zerolog.Logger
}

func NewApp(store QuestionStore, sessions SessionReader, logger zerolog.Logger) *App {
	return &App{
		store:    store,
		sessions: sessions,
		logger:   logger.With().Str("component", "question_app").Logger(),
	}
}

type AddRoundRequest struct {
	SessionID   uuid.UUID `json:"session_id"`
	RoundNumber int       `json:"round_number"`
	Title       string    `json:"title"`
}

func (a *App) AddRound(ctx context.Context, hostID uuid.UUID, req AddRoundRequest) (*models.Round, error) {
	if err := a.requireSetup(ctx, req.SessionID, hostID); err != nil {
		return nil, err
	}
	if req.RoundNumber < 1 {
		return nil, fmt.Errorf("round_number must be positive")
	}
	return a.store.CreateRound(ctx, CreateRoundRequest{
		ID:          uuid.New(),
		SessionID:   req.SessionID,
		RoundNumber: req.RoundNumber,
		Title:       req.Title,
	})
}

type AddQuestionRequest struct {
	SessionID      uuid.UUID              `json:"session_id"`
	RoundID        uuid.UUID              `json:"round_id"`
	QuestionNumber int                    `json:"question_number"`
	Category       string                 `json:"category"`
	Prompt         string                 `json:"prompt"`
	Options        models.QuestionOptions `json:"options"`
	CorrectAnswer  string                 `json:"correct_answer"`
	Difficulty     string                 `json:"difficulty"`
}

func (a *App) AddQuestion(ctx context.Context, hostID uuid.UUID, req AddQuestionRequest) (*models.Question, error) {
	if err := a.requireSetup(ctx, req.SessionID, hostID); err != nil {
		return nil, err
	}
	if req.Prompt == "" || req.CorrectAnswer == "" {
		return nil, fmt.Errorf("prompt and correct_answer are required")
	}
	if req.QuestionNumber < 1 {
		return nil, fmt.Errorf("question_number must be positive")
	}
	return a.store.CreateQuestion(ctx, CreateQuestionRequest{
		ID:             uuid.New(),
		SessionID:      req.SessionID,
		RoundID:        req.RoundID,
		QuestionNumber: req.QuestionNumber,
		Category:       req.Category,
		Prompt:         req.Prompt,
		Options:        req.Options,
		CorrectAnswer:  req.CorrectAnswer,
		Difficulty:     req.Difficulty,
	})
}

func (a *App) ListRounds(ctx context.Context, sessionID uuid.UUID) ([]models.Round, error) {
	return a.store.ListRounds(ctx, sessionID)
}

func (a *App) ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error) {
	return a.store.ListQuestionsForSession(ctx, sessionID)
}

// CurrentQuestion resolves the question the session is presenting, or
// ErrNotFound outside round-play.
func (a *App) CurrentQuestion(ctx context.Context, sessionID uuid.UUID) (*models.Question, error) {
	s, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.GameStatusInProgress || s.Phase != models.PhaseRoundPlay {
		return nil, game.ErrNotFound
	}
	return a.store.GetQuestionByPosition(ctx, sessionID, s.CurrentRound+1, s.CurrentQuestion+1)
}

func (a *App) requireSetup(ctx context.Context, sessionID, hostID uuid.UUID) error {
	s, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.HostID != hostID {
		return game.ErrNotHost
	}
	if s.Status != models.GameStatusSetup {
		return fmt.Errorf("content is frozen once the session leaves setup: %w", game.ErrInvalidTransition)
	}
	return nil
}
