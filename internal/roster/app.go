package roster

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

// RosterStore defines what the app layer needs from the roster repository.
type RosterStore interface {
	CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error)
	GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListTeams(ctx context.Context, sessionID uuid.UUID) ([]models.Team, error)
	CreateMembership(ctx context.Context, m models.Membership) (*models.Membership, error)
	GetMembership(ctx context.Context, sessionID, playerID uuid.UUID) (*models.Membership, error)
	UpdateMembershipTeam(ctx context.Context, sessionID, playerID uuid.UUID, teamID *uuid.UUID) (*models.Membership, error)
	ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error)
}

// SessionStore defines the session reads and the derived scoreboard write
// the roster needs. UpdateScoreboard bumps the session version so host
// commands in flight observe the race.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*models.Session, error)
	UpdateScoreboard(ctx context.Context, id uuid.UUID, sb models.Scoreboard) (*models.Session, error)
}

// AnswerReader supplies the answer set for scoreboard rebuilds.
type AnswerReader interface {
	ListAnswersForSession(ctx context.Context, sessionID uuid.UUID) ([]models.AnswerEvent, error)
}

// QuestionReader supplies the question-to-round mapping for rebuilds.
type QuestionReader interface {
	RoundNumbersByQuestion(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]int, error)
}

// OutboxWriter defines the outbox inserts the roster emits.
type OutboxWriter interface {
	InsertScoreboardUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertSessionSnapshot(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App handles joins, team management, and the scoreboard rebuilds that
// roster changes trigger.
type App struct {
	store     RosterStore
	sessions  SessionStore
	answers   AnswerReader
	questions QuestionReader
	outbox    OutboxWriter
	clock     clockwork.Clock
	logger    zerolog.Logger
}

func NewApp(store RosterStore, sessions SessionStore, answers AnswerReader, questions QuestionReader, outbox OutboxWriter, clock clockwork.Clock, logger zerolog.Logger) *App {
	return &App{
		store:     store,
		sessions:  sessions,
		answers:   answers,
		questions: questions,
		outbox:    outbox,
		clock:     clock,
		logger:    logger.With().Str("component", "roster_app").Logger(),
	}
}

type JoinGameRequest struct {
	Code       string    `json:"code"`
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
}

type JoinGameResponse struct {
	Session   *models.Session `json:"session"`
	TeamID    *uuid.UUID      `json:"team_id,omitempty"`
	Rejoining bool            `json:"rejoining"`
}

// JoinGame admits a player by join code. New players are admitted only
// before the game starts; a registered player rejoining mid-game resumes
// on their previous team with no new membership row.
func (a *App) JoinGame(ctx context.Context, req JoinGameRequest) (*JoinGameResponse, error) {
	if req.PlayerID == uuid.Nil || req.PlayerName == "" {
		return nil, fmt.Errorf("player_id and player_name are required")
	}
	s, err := a.sessions.GetSessionByCode(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	membership, err := a.store.GetMembership(ctx, s.ID, req.PlayerID)
	if err != nil && !errors.Is(err, game.ErrNotFound) {
		return nil, err
	}

	decision := game.EvaluateJoin(*s, membership)
	if !decision.Admit {
		return nil, decision.Reason
	}
	if decision.Rejoining {
		a.logger.Info().
			Str("session_id", s.ID.String()).
			Str("player_id", req.PlayerID.String()).
			Msg("player rejoined")
		return &JoinGameResponse{Session: s, TeamID: decision.TeamID, Rejoining: true}, nil
	}

	if _, err := a.store.CreateMembership(ctx, models.Membership{
		SessionID:  s.ID,
		PlayerID:   req.PlayerID,
		PlayerName: req.PlayerName,
	}); err != nil {
		return nil, err
	}
	updated, err := a.rebuildScoreboard(ctx, s.ID)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("session_id", s.ID.String()).
		Str("player_id", req.PlayerID.String()).
		Msg("player joined")
	return &JoinGameResponse{Session: updated}, nil
}

// CreateTeam adds a scoring unit. Teams can only be formed before play
// starts.
func (a *App) CreateTeam(ctx context.Context, sessionID uuid.UUID, name string) (*models.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	s, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireLobby(s); err != nil {
		return nil, err
	}

	team, err := a.store.CreateTeam(ctx, CreateTeamRequest{
		ID:        uuid.New(),
		SessionID: sessionID,
		Name:      name,
	})
	if err != nil {
		return nil, err
	}
	if _, err := a.rebuildScoreboard(ctx, sessionID); err != nil {
		return nil, err
	}
	return team, nil
}

// SelectTeam assigns a joined player to a team, or back to the no-team
// bucket when teamID is nil. Locked once the game is in progress.
func (a *App) SelectTeam(ctx context.Context, sessionID, playerID uuid.UUID, teamID *uuid.UUID) (*models.Membership, error) {
	s, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := requireLobby(s); err != nil {
		return nil, err
	}
	if teamID != nil {
		team, err := a.store.GetTeam(ctx, *teamID)
		if err != nil {
			return nil, err
		}
		if team.SessionID != sessionID {
			return nil, game.ErrNotFound
		}
	}

	m, err := a.store.UpdateMembershipTeam(ctx, sessionID, playerID, teamID)
	if err != nil {
		return nil, err
	}
	if _, err := a.rebuildScoreboard(ctx, sessionID); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *App) ListTeams(ctx context.Context, sessionID uuid.UUID) ([]models.Team, error) {
	return a.store.ListTeams(ctx, sessionID)
}

func (a *App) ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error) {
	return a.store.ListMemberships(ctx, sessionID)
}

func requireLobby(s *models.Session) error {
	switch s.Status {
	case models.GameStatusSetup, models.GameStatusReady:
		return nil
	case models.GameStatusCompleted:
		return game.ErrGameEnded
	default:
		return game.ErrGameInProgress
	}
}

// rebuildScoreboard recomputes the full scoreboard from the roster and
// answer set and patches it onto the session, then fans the result out.
func (a *App) rebuildScoreboard(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	teams, err := a.store.ListTeams(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	members, err := a.store.ListMemberships(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := a.answers.ListAnswersForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rounds, err := a.questions.RoundNumbersByQuestion(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sb := game.RecomputeScoreboard(a.clock.Now(), teams, members, answers, rounds)
	updated, err := a.sessions.UpdateScoreboard(ctx, sessionID, sb)
	if err != nil {
		return nil, err
	}

	a.emit(ctx, a.outbox.InsertScoreboardUpdated, sessionID, events.ScoreboardUpdatedPayload{
		SessionID:  sessionID.String(),
		Scoreboard: updated.Scoreboard,
	})
	a.emit(ctx, a.outbox.InsertSessionSnapshot, sessionID, events.SessionSnapshotPayload{Session: *updated})
	return updated, nil
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
