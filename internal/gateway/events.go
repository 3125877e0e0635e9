package gateway

import (
	"encoding/json"
	"time"

	"trivia-party/internal/events"
	"trivia-party/internal/models"
)

// SessionEvent is what the gateway pushes to WebSocket clients. Data is
// the raw domain payload; clients route on Type.
type SessionEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of session event
type EventType string

const (
	EventTypeGameStarted       EventType = "GameStarted"
	EventTypePhaseChanged      EventType = "PhaseChanged"
	EventTypeTimerStarted      EventType = "TimerStarted"
	EventTypeTimerPaused       EventType = "TimerPaused"
	EventTypeTimerResumed      EventType = "TimerResumed"
	EventTypeTimerExpired      EventType = "TimerExpired"
	EventTypeAnswerSubmitted   EventType = "AnswerSubmitted"
	EventTypeScoreboardUpdated EventType = "ScoreboardUpdated"
	EventTypeGameCompleted     EventType = "GameCompleted"
	EventTypeSessionSnapshot   EventType = "SessionSnapshot"
)

// mapEventType maps a bus event type name to the WebSocket event type.
func mapEventType(eventType string) (EventType, bool) {
	switch eventType {
	case events.TypeGameStarted:
		return EventTypeGameStarted, true
	case events.TypePhaseChanged:
		return EventTypePhaseChanged, true
	case events.TypeTimerStarted:
		return EventTypeTimerStarted, true
	case events.TypeTimerPaused:
		return EventTypeTimerPaused, true
	case events.TypeTimerResumed:
		return EventTypeTimerResumed, true
	case events.TypeTimerExpired:
		return EventTypeTimerExpired, true
	case events.TypeAnswerSubmitted:
		return EventTypeAnswerSubmitted, true
	case events.TypeScoreboardUpdated:
		return EventTypeScoreboardUpdated, true
	case events.TypeGameCompleted:
		return EventTypeGameCompleted, true
	case events.TypeSessionSnapshot:
		return EventTypeSessionSnapshot, true
	default:
		return "", false
	}
}

// newSnapshotEvent wraps a session document in a SessionSnapshot event.
// Used on connect so late joiners render current state without waiting
// for the next broadcast.
func newSnapshotEvent(s *models.Session, now time.Time) (*SessionEvent, error) {
	data, err := json.Marshal(events.SessionSnapshotPayload{Session: *s})
	if err != nil {
		return nil, err
	}
	return &SessionEvent{
		ID:        "snapshot-" + s.ID.String(),
		SessionID: s.ID.String(),
		Type:      EventTypeSessionSnapshot,
		Timestamp: now,
		Data:      data,
	}, nil
}
