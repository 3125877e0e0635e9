package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"trivia-party/internal/models"
)

// SessionStore is what the state provider needs from the session repository.
type SessionStore interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListActiveSessions(ctx context.Context) ([]models.Session, error)
}

// SessionStateProvider implements StateProvider against the session store.
type SessionStateProvider struct {
	sessions SessionStore
	clock    clockwork.Clock
}

// NewSessionStateProvider creates a new session state provider
func NewSessionStateProvider(sessions SessionStore, clock clockwork.Clock) *SessionStateProvider {
	return &SessionStateProvider{sessions: sessions, clock: clock}
}

// GetSessionState retrieves the renderable state of a session.
func (p *SessionStateProvider) GetSessionState(ctx context.Context, sessionID uuid.UUID) (*SessionStateResponse, error) {
	s, err := p.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	response := &SessionStateResponse{
		SessionID:       s.ID.String(),
		Name:            s.Name,
		Code:            s.Code,
		Status:          string(s.Status),
		Phase:           string(s.Phase),
		CurrentRound:    s.CurrentRound,
		CurrentQuestion: s.CurrentQuestion,
		Scoreboard:      s.Scoreboard,
	}

	if s.Timer != nil {
		response.Timer = timerInfo(s.Timer, p.clock.Now())
	}

	return response, nil
}

// timerInfo projects the stored timer into what a client should render.
// A paused timer's remaining seconds are frozen; a running timer's count
// down from its expiry.
func timerInfo(t *models.Timer, now time.Time) *TimerInfo {
	info := &TimerInfo{
		ExpiresAt:   t.ExpiresAt,
		DurationSec: t.DurationSec,
		IsPaused:    t.IsPaused,
	}
	if t.IsPaused {
		info.RemainingSec = t.PausedRemainingSec
		return info
	}
	remaining := int(t.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		remaining = 0
	}
	info.RemainingSec = remaining
	return info
}

// GetActiveSessions lists all in-progress sessions.
func (p *SessionStateProvider) GetActiveSessions(ctx context.Context) ([]SessionSummary, error) {
	sessions, err := p.sessions.ListActiveSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			SessionID:       s.ID.String(),
			Name:            s.Name,
			Code:            s.Code,
			Status:          string(s.Status),
			Phase:           string(s.Phase),
			CurrentRound:    s.CurrentRound,
			CurrentQuestion: s.CurrentQuestion,
			TotalTeams:      len(s.Scoreboard.Teams),
		})
	}
	return summaries, nil
}
