package outbox

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trivia-party/internal/events"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the relay worker can
// fetch and mark rows inside one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository persists outbox rows in Postgres.
type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// WithTx returns a Repository bound to the given transaction.
func (r *Repository) WithTx(tx *sql.Tx) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) insert(ctx context.Context, sessionID uuid.UUID, eventType string, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox_events (id, session_id, event_type, payload)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), sessionID, eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to insert %s outbox event: %w", eventType, err)
	}
	return nil
}

func (r *Repository) InsertOutboxGameStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeGameStarted, payload)
}

func (r *Repository) InsertOutboxPhaseChanged(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypePhaseChanged, payload)
}

func (r *Repository) InsertOutboxTimerStarted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeTimerStarted, payload)
}

func (r *Repository) InsertOutboxTimerPaused(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeTimerPaused, payload)
}

func (r *Repository) InsertOutboxTimerResumed(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeTimerResumed, payload)
}

func (r *Repository) InsertOutboxTimerExpired(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeTimerExpired, payload)
}

func (r *Repository) InsertOutboxAnswerSubmitted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeAnswerSubmitted, payload)
}

func (r *Repository) InsertOutboxScoreboardUpdated(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeScoreboardUpdated, payload)
}

func (r *Repository) InsertOutboxGameCompleted(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeGameCompleted, payload)
}

func (r *Repository) InsertOutboxSessionSnapshot(ctx context.Context, sessionID uuid.UUID, payload []byte) error {
	return r.insert(ctx, sessionID, events.TypeSessionSnapshot, payload)
}

// FetchUnsentOutbox returns up to limit unsent rows in insertion order,
// locked against concurrent relay workers.
func (r *Repository) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, event_type, payload, created_at
		FROM outbox_events
		WHERE sent_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) MarkOutboxSent(ctx context.Context, ids []uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET sent_at = now() WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to mark outbox events as sent: %w", err)
	}
	return nil
}
