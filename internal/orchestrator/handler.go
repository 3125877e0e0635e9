package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trivia-party/internal/events"
)

// DomainEvent is the envelope published by the outbox relay.
type DomainEvent struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// HandleDomainEvent routes incoming domain events. The scheduler derives
// all deadlines from the database, so events never carry authoritative
// timer state here; they only tell the scheduler that a sooner deadline
// may exist.
func (o *Orchestrator) HandleDomainEvent(ctx context.Context, eventType string, sessionID uuid.UUID, payload []byte) error {
	log.Debug().
		Str("event_type", eventType).
		Str("session_id", sessionID.String()).
		Msg("handling domain event")

	switch eventType {
	case events.TypeGameStarted:
		var p events.GameStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal GameStarted payload: %w", err)
		}
		log.Info().
			Str("session_id", sessionID.String()).
			Str("code", p.Code).
			Int("total_rounds", p.TotalRounds).
			Msg("game started, waking scheduler")
		o.wake()
		return nil

	case events.TypeTimerStarted:
		var p events.TimerStartedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal TimerStarted payload: %w", err)
		}
		log.Info().
			Str("session_id", sessionID.String()).
			Str("phase", string(p.Phase)).
			Time("expires_at", p.ExpiresAt).
			Msg("countdown started, waking scheduler")
		o.wake()
		return nil

	case events.TypeTimerResumed:
		var p events.TimerResumedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal TimerResumed payload: %w", err)
		}
		log.Info().
			Str("session_id", sessionID.String()).
			Time("expires_at", p.ExpiresAt).
			Msg("countdown resumed, waking scheduler")
		o.wake()
		return nil

	case events.TypeTimerPaused:
		// Pausing clears next_deadline in the same write that pauses the
		// timer, so the scheduler's next query already sees it. Waking is
		// still cheap and drops the session from the current wait.
		var p events.TimerPausedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal TimerPaused payload: %w", err)
		}
		log.Info().
			Str("session_id", sessionID.String()).
			Int("remaining_sec", p.RemainingSec).
			Msg("countdown paused")
		o.wake()
		return nil

	case events.TypeGameCompleted:
		log.Info().
			Str("session_id", sessionID.String()).
			Msg("game completed, no scheduler action needed")
		return nil

	case events.TypeAnswerSubmitted, events.TypeSessionSnapshot:
		// An answer can cut the countdown short once every team has one in,
		// and the session write that cuts it carries only a snapshot. Both
		// can pull next_deadline sooner than the wait in progress, so
		// re-check the database.
		log.Debug().
			Str("event_type", eventType).
			Str("session_id", sessionID.String()).
			Msg("session write observed, waking scheduler")
		o.wake()
		return nil

	case events.TypePhaseChanged, events.TypeTimerExpired,
		events.TypeScoreboardUpdated:
		// Observer-facing events; the scheduler learns about any deadline
		// change from the TimerStarted that accompanies them.
		return nil

	default:
		log.Warn().
			Str("event_type", eventType).
			Str("session_id", sessionID.String()).
			Msg("unknown event type, ignoring")
		return nil
	}
}
