package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"trivia-party/internal/events"
	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// maxConflictRetries bounds the reload-and-reapply loop on optimistic
// save conflicts. Commands are serialized through the host, so a conflict
// means a derived write (roster scoreboard patch) raced us.
const maxConflictRetries = 3

const (
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeLength   = 6
)

// SessionStore defines what the app layer needs from the repository.
type SessionStore interface {
	CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)
	ListSessionsByHost(ctx context.Context, hostID uuid.UUID) ([]models.Session, error)
	UpdateSession(ctx context.Context, s models.Session) (*models.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

// RosterReader defines what the app layer needs from the roster repository.
type RosterReader interface {
	ListTeams(ctx context.Context, sessionID uuid.UUID) ([]models.Team, error)
	ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error)
}

// QuestionReader defines what the app layer needs from the question repository.
type QuestionReader interface {
	CountRounds(ctx context.Context, sessionID uuid.UUID) (int, error)
	CountQuestionsInRound(ctx context.Context, sessionID uuid.UUID, roundNumber int) (int, error)
	GetQuestionByPosition(ctx context.Context, sessionID uuid.UUID, roundNumber, questionNumber int) (*models.Question, error)
	RoundNumbersByQuestion(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]int, error)
}

// AnswerReader defines what the app layer needs from the answer repository.
type AnswerReader interface {
	CountAnswersForQuestion(ctx context.Context, questionID uuid.UUID) (int, error)
	ListAnswersForSession(ctx context.Context, sessionID uuid.UUID) ([]models.AnswerEvent, error)
}

// OutboxWriter defines the outbox inserts the app layer emits.
type OutboxWriter interface {
	InsertGameStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertPhaseChanged(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertTimerStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertTimerPaused(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertTimerResumed(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertTimerExpired(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertScoreboardUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertGameCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertSessionSnapshot(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App handles session lifecycle and host command business logic. All game
// state math lives in the game package; the app supplies it with stored
// facts and persists what comes back.
type App struct {
	store     SessionStore
	roster    RosterReader
	questions QuestionReader
	answers   AnswerReader
	outbox    OutboxWriter
	clock     clockwork.Clock
	logger    zerolog.Logger
	defaults  models.GameSettings
}

func NewApp(store SessionStore, roster RosterReader, questions QuestionReader, answers AnswerReader, outbox OutboxWriter, clock clockwork.Clock, logger zerolog.Logger) *App {
	return &App{
		store:     store,
		roster:    roster,
		questions: questions,
		answers:   answers,
		outbox:    outbox,
		clock:     clock,
		logger:    logger.With().Str("component", "session_app").Logger(),
	}
}

// WithDefaultSettings sets the settings applied to games created without
// any explicit settings of their own.
func (a *App) WithDefaultSettings(s models.GameSettings) *App {
	a.defaults = s
	return a
}

type CreateGameRequest struct {
	HostID   uuid.UUID           `json:"host_id"`
	Name     string              `json:"name"`
	Settings models.GameSettings `json:"settings"`
}

// CreateGame creates a session in setup with a fresh join code. Code
// uniqueness among non-completed sessions is enforced by the store; on a
// collision we roll a new code and try again.
func (a *App) CreateGame(ctx context.Context, req CreateGameRequest) (*models.Session, error) {
	if req.HostID == uuid.Nil {
		return nil, fmt.Errorf("host_id is required")
	}
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.Settings == (models.GameSettings{}) {
		req.Settings = a.defaults
	}

	var (
		created *models.Session
		err     error
	)
	for attempt := 0; attempt < 5; attempt++ {
		created, err = a.store.CreateSession(ctx, CreateSessionRequest{
			ID:       uuid.New(),
			HostID:   req.HostID,
			Name:     req.Name,
			Code:     newJoinCode(),
			Settings: req.Settings,
		})
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	a.logger.Info().
		Str("session_id", created.ID.String()).
		Str("code", created.Code).
		Msg("game created")
	return created, nil
}

func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return a.store.GetSession(ctx, id)
}

func (a *App) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	return a.store.GetSessionByCode(ctx, code)
}

func (a *App) ListSessionsByHost(ctx context.Context, hostID uuid.UUID) ([]models.Session, error) {
	return a.store.ListSessionsByHost(ctx, hostID)
}

func (a *App) DeleteSession(ctx context.Context, id, hostID uuid.UUID) error {
	s, err := a.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if s.HostID != hostID {
		return game.ErrNotHost
	}
	return a.store.DeleteSession(ctx, id)
}

// MarkReady moves a session from setup to ready once its content exists.
func (a *App) MarkReady(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	s, err := a.loadForHost(ctx, id, hostID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.GameStatusSetup {
		return nil, fmt.Errorf("session is %s: %w", s.Status, game.ErrInvalidTransition)
	}
	rounds, err := a.questions.CountRounds(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count rounds: %w", err)
	}
	if rounds == 0 {
		return nil, fmt.Errorf("session has no rounds: %w", game.ErrInvalidTransition)
	}

	next := *s
	next.Status = models.GameStatusReady
	next.UpdatedAt = a.clock.Now()
	saved, err := a.store.UpdateSession(ctx, next)
	if err != nil {
		return nil, err
	}
	a.emitSnapshot(ctx, saved)
	return saved, nil
}

// StartGame begins play: the session enters in-progress at game-start.
func (a *App) StartGame(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	s, err := a.loadForHost(ctx, id, hostID)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	started, err := game.Start(*s, now)
	if err != nil {
		return nil, err
	}
	totalRounds, err := a.questions.CountRounds(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to count rounds: %w", err)
	}

	saved, err := a.store.UpdateSession(ctx, started)
	if err != nil {
		return nil, err
	}

	a.emit(ctx, a.outbox.InsertGameStarted, saved.ID, events.GameStartedPayload{
		SessionID:   saved.ID.String(),
		Code:        saved.Code,
		StartedAt:   now,
		TotalRounds: totalRounds,
	})
	if saved.Timer != nil {
		a.emitTimerStarted(ctx, saved)
	}
	a.emitSnapshot(ctx, saved)

	a.logger.Info().Str("session_id", saved.ID.String()).Msg("game started")
	return saved, nil
}

// Advance is the host command moving the session to the next phase or
// question.
func (a *App) Advance(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	if _, err := a.loadForHost(ctx, id, hostID); err != nil {
		return nil, err
	}
	return a.advance(ctx, id)
}

// HandleDeadline is the orchestrator's entry point when a countdown
// deadline fires. A stale or moved deadline is a no-op: the timer is
// re-evaluated against the current clock before anything advances.
func (a *App) HandleDeadline(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := a.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	if s.Status != models.GameStatusInProgress || s.Timer == nil {
		return nil, nil
	}
	if _, expired := game.EvaluateTimer(now, s.Timer); !expired {
		return nil, nil
	}

	a.emit(ctx, a.outbox.InsertTimerExpired, s.ID, events.TimerExpiredPayload{
		SessionID:    s.ID.String(),
		ExpiredAt:    now,
		EarlyAdvance: s.Timer.IsEarlyAdvance,
	})
	return a.advance(ctx, id)
}

// advance runs the optimistic load-transform-save loop shared by the host
// command and the orchestrator's expiry path. When the destination phase
// presents standings, the scoreboard is recomputed before the save so both
// land in the same write; a recompute failure aborts the whole advance.
func (a *App) advance(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		s, err := a.store.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}

		in, err := a.buildAdvanceInput(ctx, s)
		if err != nil {
			return nil, err
		}
		res, err := game.Advance(*s, in)
		if err != nil {
			return nil, err
		}
		if res.NeedsScoreboard {
			sb, err := a.recomputeScoreboard(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to recompute scoreboard: %w", err)
			}
			res.Session.Scoreboard = sb
		}

		saved, err := a.store.UpdateSession(ctx, res.Session)
		if errors.Is(err, game.ErrConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}

		a.emitPhaseChanged(ctx, saved, s.Phase, res.EarlyAdvance)
		if saved.Timer != nil {
			a.emitTimerStarted(ctx, saved)
		}
		if res.NeedsScoreboard {
			a.emit(ctx, a.outbox.InsertScoreboardUpdated, saved.ID, events.ScoreboardUpdatedPayload{
				SessionID:  saved.ID.String(),
				Scoreboard: saved.Scoreboard,
			})
		}
		if saved.Status == models.GameStatusCompleted {
			a.emit(ctx, a.outbox.InsertGameCompleted, saved.ID, events.GameCompletedPayload{
				SessionID:   saved.ID.String(),
				CompletedAt: saved.UpdatedAt,
			})
		}
		a.emitSnapshot(ctx, saved)
		return saved, nil
	}
	return nil, fmt.Errorf("advance gave up after %d attempts: %w", maxConflictRetries, lastErr)
}

// GoBack reverses a premature advance from round-play to round-start.
func (a *App) GoBack(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	s, err := a.loadForHost(ctx, id, hostID)
	if err != nil {
		return nil, err
	}
	prev, err := game.GoBack(*s, a.clock.Now())
	if err != nil {
		return nil, err
	}
	saved, err := a.store.UpdateSession(ctx, prev)
	if err != nil {
		return nil, err
	}

	a.emitPhaseChanged(ctx, saved, s.Phase, false)
	if saved.Timer != nil {
		a.emitTimerStarted(ctx, saved)
	}
	a.emitSnapshot(ctx, saved)
	return saved, nil
}

// PauseTimer freezes the countdown. Pausing an already-paused timer
// returns the session unchanged.
func (a *App) PauseTimer(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	s, err := a.loadForHost(ctx, id, hostID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.GameStatusInProgress || s.Timer == nil {
		return nil, fmt.Errorf("no running timer: %w", game.ErrInvalidTransition)
	}
	now := a.clock.Now()
	paused := game.PauseTimer(now, s.Timer)
	if paused == s.Timer {
		return s, nil
	}

	next := *s
	next.Timer = paused
	next.UpdatedAt = now
	saved, err := a.store.UpdateSession(ctx, next)
	if err != nil {
		return nil, err
	}

	a.emit(ctx, a.outbox.InsertTimerPaused, saved.ID, events.TimerPausedPayload{
		SessionID:    saved.ID.String(),
		PausedAt:     now,
		RemainingSec: saved.Timer.PausedRemainingSec,
	})
	a.emitSnapshot(ctx, saved)
	return saved, nil
}

// ResumeTimer restarts a paused countdown with its captured remaining
// seconds. Resuming a running timer returns the session unchanged.
func (a *App) ResumeTimer(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	s, err := a.loadForHost(ctx, id, hostID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.GameStatusInProgress || s.Timer == nil {
		return nil, fmt.Errorf("no timer to resume: %w", game.ErrInvalidTransition)
	}
	now := a.clock.Now()
	resumed := game.ResumeTimer(now, s.Timer)
	if resumed == s.Timer {
		return s, nil
	}

	next := *s
	next.Timer = resumed
	next.UpdatedAt = now
	saved, err := a.store.UpdateSession(ctx, next)
	if err != nil {
		return nil, err
	}

	a.emit(ctx, a.outbox.InsertTimerResumed, saved.ID, events.TimerResumedPayload{
		SessionID: saved.ID.String(),
		ResumedAt: now,
		ExpiresAt: saved.Timer.ExpiresAt,
	})
	a.emitSnapshot(ctx, saved)
	return saved, nil
}

// EndGame force-completes a session regardless of phase.
func (a *App) EndGame(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	s, err := a.loadForHost(ctx, id, hostID)
	if err != nil {
		return nil, err
	}
	now := a.clock.Now()
	ended, err := game.End(*s, now)
	if err != nil {
		return nil, err
	}
	saved, err := a.store.UpdateSession(ctx, ended)
	if err != nil {
		return nil, err
	}

	a.emit(ctx, a.outbox.InsertGameCompleted, saved.ID, events.GameCompletedPayload{
		SessionID:   saved.ID.String(),
		CompletedAt: now,
	})
	a.emitSnapshot(ctx, saved)

	a.logger.Info().Str("session_id", saved.ID.String()).Msg("game ended by host")
	return saved, nil
}

// Standings returns the current ranking derived from the stored scoreboard.
func (a *App) Standings(ctx context.Context, id uuid.UUID) ([]game.Standing, error) {
	s, err := a.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	teams, err := a.roster.ListTeams(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	order := make([]uuid.UUID, len(teams))
	for i, t := range teams {
		order[i] = t.ID
	}
	return game.Standings(s.Scoreboard, order), nil
}

func (a *App) loadForHost(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error) {
	s, err := a.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.HostID != hostID {
		return nil, game.ErrNotHost
	}
	return s, nil
}

func (a *App) buildAdvanceInput(ctx context.Context, s *models.Session) (game.AdvanceInput, error) {
	in := game.AdvanceInput{Now: a.clock.Now()}

	totalRounds, err := a.questions.CountRounds(ctx, s.ID)
	if err != nil {
		return in, fmt.Errorf("failed to count rounds: %w", err)
	}
	in.TotalRounds = totalRounds

	questionsInRound, err := a.questions.CountQuestionsInRound(ctx, s.ID, s.CurrentRound+1)
	if err != nil {
		return in, fmt.Errorf("failed to count round questions: %w", err)
	}
	in.QuestionsInRound = questionsInRound

	if s.Phase == models.PhaseRoundPlay {
		members, err := a.roster.ListMemberships(ctx, s.ID)
		if err != nil {
			return in, fmt.Errorf("failed to list memberships: %w", err)
		}
		teamsSeen := make(map[uuid.UUID]struct{})
		for _, m := range members {
			if m.TeamID != nil {
				teamsSeen[*m.TeamID] = struct{}{}
			}
		}
		in.TeamsExpected = len(teamsSeen)

		q, err := a.questions.GetQuestionByPosition(ctx, s.ID, s.CurrentRound+1, s.CurrentQuestion+1)
		if err != nil {
			return in, fmt.Errorf("failed to get active question: %w", err)
		}
		submitted, err := a.answers.CountAnswersForQuestion(ctx, q.ID)
		if err != nil {
			return in, fmt.Errorf("failed to count answers: %w", err)
		}
		in.AnswersSubmitted = submitted
	}
	return in, nil
}

func (a *App) recomputeScoreboard(ctx context.Context, id uuid.UUID) (models.Scoreboard, error) {
	teams, err := a.roster.ListTeams(ctx, id)
	if err != nil {
		return models.Scoreboard{}, err
	}
	members, err := a.roster.ListMemberships(ctx, id)
	if err != nil {
		return models.Scoreboard{}, err
	}
	answers, err := a.answers.ListAnswersForSession(ctx, id)
	if err != nil {
		return models.Scoreboard{}, err
	}
	rounds, err := a.questions.RoundNumbersByQuestion(ctx, id)
	if err != nil {
		return models.Scoreboard{}, err
	}
	return game.RecomputeScoreboard(a.clock.Now(), teams, members, answers, rounds), nil
}

func (a *App) emitPhaseChanged(ctx context.Context, s *models.Session, previous models.GamePhase, early bool) {
	a.emit(ctx, a.outbox.InsertPhaseChanged, s.ID, events.PhaseChangedPayload{
		SessionID:       s.ID.String(),
		Phase:           s.Phase,
		PreviousPhase:   previous,
		CurrentRound:    s.CurrentRound,
		CurrentQuestion: s.CurrentQuestion,
		EarlyAdvance:    early,
		ChangedAt:       s.UpdatedAt,
	})
}

func (a *App) emitTimerStarted(ctx context.Context, s *models.Session) {
	a.emit(ctx, a.outbox.InsertTimerStarted, s.ID, events.TimerStartedPayload{
		SessionID:   s.ID.String(),
		Phase:       s.Phase,
		StartedAt:   s.Timer.StartedAt,
		ExpiresAt:   s.Timer.ExpiresAt,
		DurationSec: s.Timer.DurationSec,
	})
}

func (a *App) emitSnapshot(ctx context.Context, s *models.Session) {
	a.emit(ctx, a.outbox.InsertSessionSnapshot, s.ID, events.SessionSnapshotPayload{Session: *s})
}

// emit marshals and inserts one outbox row. Insert failures are logged,
// not returned: the state save already succeeded and the next snapshot
// reconverges observers.
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

func newJoinCode() string {
	b := make([]byte, joinCodeLength)
	for i := range b {
		b[i] = joinCodeAlphabet[rand.Intn(len(joinCodeAlphabet))]
	}
	return string(b)
}
