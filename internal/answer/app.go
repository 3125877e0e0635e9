package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"trivia-party/internal/events"
	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// AnswerStore defines what the app layer needs from the answer repository.
type AnswerStore interface {
	CreateAnswer(ctx context.Context, req CreateAnswerRequest) (*models.AnswerEvent, error)
	CountAnswersForQuestion(ctx context.Context, questionID uuid.UUID) (int, error)
	ListAnswersForQuestion(ctx context.Context, questionID uuid.UUID) ([]models.AnswerEvent, error)
}

// SessionStore supplies the session and takes the early-advance timer
// write.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	UpdateSession(ctx context.Context, s models.Session) (*models.Session, error)
}

// QuestionReader resolves the active question.
type QuestionReader interface {
	GetQuestionByPosition(ctx context.Context, sessionID uuid.UUID, roundNumber, questionNumber int) (*models.Question, error)
}

// RosterReader validates the submitting player and counts expected teams.
type RosterReader interface {
	GetMembership(ctx context.Context, sessionID, playerID uuid.UUID) (*models.Membership, error)
	ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error)
}

// ScoringOracle scores a submission against the answer key.
type ScoringOracle interface {
	ScoreAnswer(ctx context.Context, questionID uuid.UUID, submitted string) (bool, error)
}

// OutboxWriter defines the outbox inserts the answer path emits.
type OutboxWriter interface {
	InsertAnswerSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertSessionSnapshot(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App handles answer submission: validation, scoring, first-write-wins
// recording, and cutting the countdown short once every team has
// answered.
type App struct {
	store     AnswerStore
	sessions  SessionStore
	questions QuestionReader
	roster    RosterReader
	oracle    ScoringOracle
	outbox    OutboxWriter
	clock     clockwork.Clock
	logger    zerolog.Logger
}

func NewApp(store AnswerStore, sessions SessionStore, questions QuestionReader, roster RosterReader, oracle ScoringOracle, outbox OutboxWriter, clock clockwork.Clock, logger zerolog.Logger) *App {
	return &App{
		store:     store,
		sessions:  sessions,
		questions: questions,
		roster:    roster,
		oracle:    oracle,
		outbox:    outbox,
		clock:     clock,
		logger:    logger.With().Str("component", "answer_app").Logger(),
	}
}

type SubmitAnswerRequest struct {
	SessionID      uuid.UUID `json:"session_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	PlayerID       uuid.UUID `json:"player_id"`
	SubmittedValue string    `json:"submitted_value"`
}

// SubmitAnswer records one team's answer for the active question. The
// submission is scored before it is written so a failed oracle rejects
// the whole submission instead of recording an unscored answer. The
// answer is attributed to the player's team; whichever teammate submits
// first wins.
func (a *App) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*models.AnswerEvent, error) {
	s, err := a.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()

	if s.Status != models.GameStatusInProgress || s.Phase != models.PhaseRoundPlay {
		return nil, fmt.Errorf("answers are only accepted during round play: %w", game.ErrInvalidTransition)
	}
	if _, expired := game.EvaluateTimer(now, s.Timer); expired {
		return nil, fmt.Errorf("the countdown has ended: %w", game.ErrInvalidTransition)
	}

	active, err := a.questions.GetQuestionByPosition(ctx, s.ID, s.CurrentRound+1, s.CurrentQuestion+1)
	if err != nil {
		return nil, err
	}
	if active.ID != req.QuestionID {
		return nil, fmt.Errorf("question is not the active one: %w", game.ErrInvalidTransition)
	}

	membership, err := a.roster.GetMembership(ctx, s.ID, req.PlayerID)
	if err != nil {
		return nil, err
	}
	if membership.TeamID == nil {
		return nil, fmt.Errorf("player has no team: %w", game.ErrInvalidTransition)
	}

	correct, err := a.oracle.ScoreAnswer(ctx, req.QuestionID, req.SubmittedValue)
	if err != nil {
		return nil, err
	}

	saved, err := a.store.CreateAnswer(ctx, CreateAnswerRequest{
		ID:             uuid.New(),
		SessionID:      req.SessionID,
		QuestionID:     req.QuestionID,
		TeamID:         *membership.TeamID,
		PlayerID:       req.PlayerID,
		SubmittedValue: req.SubmittedValue,
		IsCorrect:      correct,
	})
	if err != nil {
		return nil, err
	}

	a.emit(ctx, a.outbox.InsertAnswerSubmitted, s.ID, events.AnswerSubmittedPayload{
		SessionID:   s.ID.String(),
		QuestionID:  req.QuestionID.String(),
		TeamID:      membership.TeamID.String(),
		SubmittedAt: saved.CreatedAt,
	})

	a.maybeCutCountdown(ctx, s, active.ID)
	return saved, nil
}

func (a *App) ListAnswersForQuestion(ctx context.Context, questionID uuid.UUID) ([]models.AnswerEvent, error) {
	return a.store.ListAnswersForQuestion(ctx, questionID)
}

// maybeCutCountdown force-expires the running timer once every team with
// players has an answer on record, pulling the next deadline to now so
// the orchestrator advances immediately. Best effort: losing the version
// race just means the countdown runs out on its own.
func (a *App) maybeCutCountdown(ctx context.Context, s *models.Session, questionID uuid.UUID) {
	if s.Timer == nil || s.Timer.IsPaused || s.Timer.IsEarlyAdvance {
		return
	}

	members, err := a.roster.ListMemberships(ctx, s.ID)
	if err != nil {
		a.logger.Error().Err(err).Str("session_id", s.ID.String()).Msg("failed to list memberships")
		return
	}
	teams := make(map[uuid.UUID]struct{})
	for _, m := range members {
		if m.TeamID != nil {
			teams[*m.TeamID] = struct{}{}
		}
	}
	if len(teams) == 0 {
		return
	}
	submitted, err := a.store.CountAnswersForQuestion(ctx, questionID)
	if err != nil {
		a.logger.Error().Err(err).Str("session_id", s.ID.String()).Msg("failed to count answers")
		return
	}
	if submitted < len(teams) {
		return
	}

	now := a.clock.Now()
	next := *s
	next.Timer = game.ForceExpireTimer(now, s.Timer)
	next.UpdatedAt = now
	updated, err := a.sessions.UpdateSession(ctx, next)
	if err != nil {
		if !errors.Is(err, game.ErrConflict) {
			a.logger.Error().Err(err).Str("session_id", s.ID.String()).Msg("failed to cut countdown")
		}
		return
	}

	a.logger.Info().Str("session_id", s.ID.String()).Msg("all teams answered, countdown cut short")
	a.emit(ctx, a.outbox.InsertSessionSnapshot, updated.ID, events.SessionSnapshotPayload{Session: *updated})
}

func (a *App) emit(ctx context.Context, insert func(context.Context, uuid.UUID, []byte) error, sessionID uuid.UUID, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to marshal event payload")
		return
	}
	if err := insert(ctx, sessionID, data); err != nil {
		a.logger.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to insert outbox event")
	}
}
