package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// EnsureStream creates or updates the JetStream stream the relay
// publishes to. The duplicate window must comfortably cover the relay's
// retry horizon for the msg-id dedup to hold.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name, subjectPrefix string) error {
	cfg := jetstream.StreamConfig{
		Name:        name,
		Description: "Trivia session event stream for outbox pattern",
		Subjects:    []string{fmt.Sprintf("%s.>", subjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Duplicates:  2 * time.Minute,
	}

	if _, err := js.Stream(ctx, name); err != nil {
		if _, err := js.CreateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		return nil
	}
	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("update stream: %w", err)
	}
	return nil
}

// envelope is the wire format every event crosses the bus in. Consumers
// dedupe on eventId and route on eventType.
type envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSPublisher publishes outbox events to a JetStream stream, one
// subject per event type under the configured prefix.
type NATSPublisher struct {
	js            jetstream.JetStream
	subjectPrefix string
	logger        *slog.Logger
}

func NewNATSPublisher(js jetstream.JetStream, subjectPrefix string, logger *slog.Logger) *NATSPublisher {
	return &NATSPublisher{
		js:            js,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}
}

func (p *NATSPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, event.EventType)

	messageBytes, err := json.Marshal(envelope{
		EventID:   event.ID.String(),
		EventType: event.EventType,
		SessionID: event.SessionID.String(),
		Timestamp: event.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Payload:   event.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// The outbox row id doubles as the JetStream dedup key, so a relay
	// crash between publish and commit cannot double-deliver.
	_, err = p.js.Publish(ctx, subject, messageBytes, jetstream.WithMsgID(event.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	p.logger.Debug("published event",
		slog.String("subject", subject),
		slog.String("event_id", event.ID.String()))

	return nil
}

// MockPublisher is a simple in-memory publisher for development/testing.
type MockPublisher struct {
	logger *slog.Logger

	Published []OutboxEvent
}

func NewMockPublisher(logger *slog.Logger) *MockPublisher {
	return &MockPublisher{logger: logger}
}

func (p *MockPublisher) Publish(ctx context.Context, event OutboxEvent) error {
	p.Published = append(p.Published, event)
	p.logger.Info("publishing event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("session_id", event.SessionID.String()))
	return nil
}
