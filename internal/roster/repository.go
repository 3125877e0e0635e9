package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// Repository persists teams and memberships in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type CreateTeamRequest struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Name      string    `json:"name"`
}

func (r *Repository) CreateTeam(ctx context.Context, req CreateTeamRequest) (*models.Team, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO teams (id, session_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, session_id, name, created_at`,
		req.ID, req.SessionID, req.Name,
	)
	var t models.Team
	if err := row.Scan(&t.ID, &t.SessionID, &t.Name, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return &t, nil
}

func (r *Repository) GetTeam(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, name, created_at FROM teams WHERE id = $1`, id)
	var t models.Team
	if err := row.Scan(&t.ID, &t.SessionID, &t.Name, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &t, nil
}

// ListTeams returns the session's teams in creation order, which is also
// the ranking tie-break order.
func (r *Repository) ListTeams(ctx context.Context, sessionID uuid.UUID) ([]models.Team, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, name, created_at FROM teams
		WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var out []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Name, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) CreateMembership(ctx context.Context, m models.Membership) (*models.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO memberships (session_id, player_id, player_name, team_id)
		VALUES ($1, $2, $3, $4)
		RETURNING session_id, player_id, player_name, team_id, created_at`,
		m.SessionID, m.PlayerID, m.PlayerName, m.TeamID,
	)
	saved, err := scanMembership(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}
	return saved, nil
}

func (r *Repository) GetMembership(ctx context.Context, sessionID, playerID uuid.UUID) (*models.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT session_id, player_id, player_name, team_id, created_at
		FROM memberships WHERE session_id = $1 AND player_id = $2`,
		sessionID, playerID)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

func (r *Repository) UpdateMembershipTeam(ctx context.Context, sessionID, playerID uuid.UUID, teamID *uuid.UUID) (*models.Membership, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE memberships SET team_id = $1
		WHERE session_id = $2 AND player_id = $3
		RETURNING session_id, player_id, player_name, team_id, created_at`,
		teamID, sessionID, playerID)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update membership team: %w", err)
	}
	return m, nil
}

func (r *Repository) ListMemberships(ctx context.Context, sessionID uuid.UUID) ([]models.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, player_id, player_name, team_id, created_at
		FROM memberships WHERE session_id = $1 ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var out []models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (*models.Membership, error) {
	var (
		m      models.Membership
		teamID uuid.NullUUID
	)
	if err := row.Scan(&m.SessionID, &m.PlayerID, &m.PlayerName, &teamID, &m.CreatedAt); err != nil {
		return nil, err
	}
	if teamID.Valid {
		id := teamID.UUID
		m.TeamID = &id
	}
	return &m, nil
}
