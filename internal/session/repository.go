package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// Lookup misses surface as game.ErrNotFound and optimistic save losses as
// game.ErrConflict, the module-wide sentinels.

// Repository persists sessions in Postgres. Saves are optimistic: every
// write carries the version it read, and a stale version is a conflict,
// never a silent clobber.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type CreateSessionRequest struct {
	ID       uuid.UUID           `json:"id"`
	HostID   uuid.UUID           `json:"host_id"`
	Name     string              `json:"name"`
	Code     string              `json:"code"`
	Settings models.GameSettings `json:"settings"`
}

const sessionColumns = `id, host_id, name, code, status, phase, current_round,
	current_question, timer, scoreboard, settings, version, created_at, updated_at`

func (r *Repository) CreateSession(ctx context.Context, req CreateSessionRequest) (*models.Session, error) {
	settingsBytes, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session settings: %w", err)
	}
	scoreboardBytes, err := json.Marshal(models.NewScoreboard())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scoreboard: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO sessions (id, host_id, name, code, status, scoreboard, settings)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+sessionColumns,
		req.ID, req.HostID, req.Name, req.Code, models.GameStatusSetup,
		scoreboardBytes, settingsBytes,
	)
	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

func (r *Repository) GetSessionByCode(ctx context.Context, code string) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE code = $1 AND status <> $2`, code, models.GameStatusCompleted)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by code: %w", err)
	}
	return s, nil
}

func (r *Repository) ListActiveSessions(ctx context.Context) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE status = $1 ORDER BY updated_at DESC`, models.GameStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repository) ListSessionsByHost(ctx context.Context, hostID uuid.UUID) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE host_id = $1 ORDER BY created_at DESC`, hostID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpdateSession saves the full session document, guarded by the version it
// was loaded at. The scheduler's deadline mirror is derived here so the
// timer and next_deadline can never disagree: NULL while paused or
// timerless, expires_at otherwise.
func (r *Repository) UpdateSession(ctx context.Context, s models.Session) (*models.Session, error) {
	var timerBytes []byte
	if s.Timer != nil {
		var err error
		timerBytes, err = json.Marshal(s.Timer)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal timer: %w", err)
		}
	}
	scoreboardBytes, err := json.Marshal(s.Scoreboard)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scoreboard: %w", err)
	}
	settingsBytes, err := json.Marshal(s.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}

	var nextDeadline sql.NullTime
	if s.Timer != nil && !s.Timer.IsPaused {
		nextDeadline = sql.NullTime{Time: s.Timer.ExpiresAt, Valid: true}
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET status = $1, phase = $2, current_round = $3, current_question = $4,
		    timer = $5, scoreboard = $6, settings = $7, next_deadline = $8,
		    version = version + 1, updated_at = now()
		WHERE id = $9 AND version = $10
		RETURNING `+sessionColumns,
		s.Status, s.Phase, s.CurrentRound, s.CurrentQuestion,
		timerBytes, scoreboardBytes, settingsBytes, nextDeadline,
		s.ID, s.Version,
	)
	saved, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return saved, nil
}

// UpdateScoreboard patches only the scoreboard, bumping the version so any
// in-flight host command sees the conflict and retries. Used by roster
// mutations, which never touch phase or timer fields.
func (r *Repository) UpdateScoreboard(ctx context.Context, id uuid.UUID, sb models.Scoreboard) (*models.Session, error) {
	scoreboardBytes, err := json.Marshal(sb)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scoreboard: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET scoreboard = $1, version = version + 1, updated_at = now()
		WHERE id = $2
		RETURNING `+sessionColumns,
		scoreboardBytes, id,
	)
	saved, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update scoreboard: %w", err)
	}
	return saved, nil
}

func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return game.ErrNotFound
	}
	return nil
}

// NextDeadline is the soonest live countdown across all sessions.
type NextDeadline struct {
	SessionID uuid.UUID  `json:"session_id"`
	Deadline  *time.Time `json:"deadline"`
}

func (r *Repository) FetchNextDeadline(ctx context.Context) (*NextDeadline, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, next_deadline FROM sessions
		WHERE next_deadline IS NOT NULL AND status = $1
		ORDER BY next_deadline ASC
		LIMIT 1`, models.GameStatusInProgress)

	var nd NextDeadline
	var deadline sql.NullTime
	if err := row.Scan(&nd.SessionID, &deadline); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next deadline: %w", err)
	}
	if deadline.Valid {
		t := deadline.Time
		nd.Deadline = &t
	}
	return &nd, nil
}

func (r *Repository) FetchSessionsDue(ctx context.Context, limit int32) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM sessions
		WHERE next_deadline IS NOT NULL AND next_deadline <= now() AND status = $1
		ORDER BY next_deadline ASC
		LIMIT $2`, models.GameStatusInProgress, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due sessions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan due session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		s               models.Session
		timerBytes      []byte
		scoreboardBytes []byte
		settingsBytes   []byte
	)
	err := row.Scan(
		&s.ID, &s.HostID, &s.Name, &s.Code, &s.Status, &s.Phase,
		&s.CurrentRound, &s.CurrentQuestion, &timerBytes, &scoreboardBytes,
		&settingsBytes, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(timerBytes) > 0 {
		var timer models.Timer
		if err := json.Unmarshal(timerBytes, &timer); err != nil {
			return nil, fmt.Errorf("failed to unmarshal timer: %w", err)
		}
		s.Timer = &timer
	}
	if err := json.Unmarshal(scoreboardBytes, &s.Scoreboard); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoreboard: %w", err)
	}
	if err := json.Unmarshal(settingsBytes, &s.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &s, nil
}
