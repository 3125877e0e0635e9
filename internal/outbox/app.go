package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OutboxRepository defines what the app layer needs from the repository.
type OutboxRepository interface {
	InsertOutboxGameStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxPhaseChanged(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxTimerStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxTimerPaused(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxTimerResumed(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxTimerExpired(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxAnswerSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxScoreboardUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxGameCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error
	InsertOutboxSessionSnapshot(ctx context.Context, sessionID uuid.UUID, payload []byte) error
}

// App validates and records domain events in the outbox. It satisfies the
// OutboxWriter interfaces of the session, roster, and answer apps.
type App struct {
	repo OutboxRepository
}

func NewApp(repo OutboxRepository) *App {
	return &App{repo: repo}
}

func (a *App) insert(ctx context.Context, eventType string, insert func(context.Context, uuid.UUID, []byte) error, sessionID uuid.UUID, payload []byte) error {
	if len(payload) == 0 || !json.Valid(payload) {
		return fmt.Errorf("invalid %s payload: not valid JSON", eventType)
	}
	if err := insert(ctx, sessionID, payload); err != nil {
		return fmt.Errorf("failed to insert %s event: %w", eventType, err)
	}
	log.Debug().
		Str("session_id", sessionID.String()).
		Str("event_type", eventType).
		Msg("outbox event inserted")
	return nil
}

func (a *App) InsertGameStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "GameStarted", a.repo.InsertOutboxGameStarted, sessionID, payload)
}

func (a *App) InsertPhaseChanged(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "PhaseChanged", a.repo.InsertOutboxPhaseChanged, sessionID, payload)
}

func (a *App) InsertTimerStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "TimerStarted", a.repo.InsertOutboxTimerStarted, sessionID, payload)
}

func (a *App) InsertTimerPaused(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "TimerPaused", a.repo.InsertOutboxTimerPaused, sessionID, payload)
}

func (a *App) InsertTimerResumed(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "TimerResumed", a.repo.InsertOutboxTimerResumed, sessionID, payload)
}

func (a *App) InsertTimerExpired(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "TimerExpired", a.repo.InsertOutboxTimerExpired, sessionID, payload)
}

func (a *App) InsertAnswerSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "AnswerSubmitted", a.repo.InsertOutboxAnswerSubmitted, sessionID, payload)
}

func (a *App) InsertScoreboardUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "ScoreboardUpdated", a.repo.InsertOutboxScoreboardUpdated, sessionID, payload)
}

func (a *App) InsertGameCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "GameCompleted", a.repo.InsertOutboxGameCompleted, sessionID, payload)
}

func (a *App) InsertSessionSnapshot(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return a.insert(ctx, "SessionSnapshot", a.repo.InsertOutboxSessionSnapshot, sessionID, payload)
}
