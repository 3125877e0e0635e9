package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trivia-party/internal/models"
)

// StateProvider interface defines methods for retrieving session state
type StateProvider interface {
	GetSessionState(ctx context.Context, sessionID uuid.UUID) (*SessionStateResponse, error)
	GetActiveSessions(ctx context.Context) ([]SessionSummary, error)
}

// SessionStateResponse represents the renderable state of a session.
type SessionStateResponse struct {
	SessionID       string            `json:"session_id"`
	Name            string            `json:"name"`
	Code            string            `json:"code"`
	Status          string            `json:"status"`
	Phase           string            `json:"phase,omitempty"`
	CurrentRound    int               `json:"current_round"`
	CurrentQuestion int               `json:"current_question"`
	Timer           *TimerInfo        `json:"timer,omitempty"`
	Scoreboard      models.Scoreboard `json:"scoreboard"`
}

// TimerInfo is the countdown as a client should render it.
type TimerInfo struct {
	ExpiresAt    time.Time `json:"expires_at"`
	DurationSec  int       `json:"duration_sec"`
	RemainingSec int       `json:"remaining_sec"`
	IsPaused     bool      `json:"is_paused"`
}

// SessionSummary represents a summary of an active session
type SessionSummary struct {
	SessionID       string `json:"session_id"`
	Name            string `json:"name"`
	Code            string `json:"code"`
	Status          string `json:"status"`
	Phase           string `json:"phase,omitempty"`
	CurrentRound    int    `json:"current_round"`
	CurrentQuestion int    `json:"current_question"`
	TotalTeams      int    `json:"total_teams"`
}

// StateHandler handles HTTP requests for session state
type StateHandler struct {
	stateProvider StateProvider
}

// NewStateHandler creates a new state handler
func NewStateHandler(provider StateProvider) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
	}
}

// HandleGetSessionState handles GET /api/sessions/{id}/state
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionIDStr := extractSessionIDFromPath(r.URL.Path)
	if sessionIDStr == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		http.Error(w, "Invalid session ID format", http.StatusBadRequest)
		return
	}

	state, err := h.stateProvider.GetSessionState(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to get session state")
		http.Error(w, "Failed to get session state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		log.Error().Err(err).Msg("failed to encode session state response")
	}
}

// HandleGetActiveSessions handles GET /api/sessions/active
func (h *StateHandler) HandleGetActiveSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := h.stateProvider.GetActiveSessions(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get active sessions")
		http.Error(w, "Failed to get active sessions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sessions); err != nil {
		log.Error().Err(err).Msg("failed to encode active sessions response")
	}
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions/active", h.HandleGetActiveSessions)

	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/state") {
			h.HandleGetSessionState(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
}

// extractSessionIDFromPath extracts session ID from path like /api/sessions/{id}/state
func extractSessionIDFromPath(path string) string {
	const prefix = "/api/sessions/"
	const suffix = "/state"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(path, prefix), suffix)
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
