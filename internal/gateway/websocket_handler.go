package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"trivia-party/internal/models"
)

// SessionReader is what the handler needs to replay current state to a
// freshly connected client.
type SessionReader interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// WebSocketHandler handles WebSocket upgrade requests for session connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	sessions          SessionReader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, sessions SessionReader) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		sessions:          sessions,
	}
}

// HandleSessionConnection handles WebSocket connections for a specific session.
func (h *WebSocketHandler) HandleSessionConnection(w http.ResponseWriter, r *http.Request) {
	sessionIDStr := r.URL.Query().Get("session_id")
	if sessionIDStr == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		http.Error(w, "invalid session_id format", http.StatusBadRequest)
		return
	}

	// In production this would come from a JWT or session cookie.
	// Anonymous connections are allowed so shared screens can spectate.
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = "observer"
	}

	// Fetch state before upgrading so an unknown session is a clean 404
	// instead of an immediately closed socket.
	snapshot, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.connectionManager.UpgradeConnection(w, r, playerID, sessionID)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("player_id", playerID).
			Msg("failed to upgrade WebSocket connection")
		return
	}

	h.sendSnapshot(conn, snapshot)
}

// sendSnapshot pushes the full current session state down one connection
// so a late joiner renders immediately.
func (h *WebSocketHandler) sendSnapshot(conn *Connection, s *models.Session) {
	event, err := newSnapshotEvent(s, time.Now())
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID.String()).Msg("failed to build snapshot event")
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("session_id", s.ID.String()).Msg("failed to marshal snapshot event")
		return
	}

	select {
	case conn.Send <- data:
		log.Debug().
			Str("connection_id", conn.ID).
			Str("session_id", s.ID.String()).
			Msg("sent connect snapshot")
	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Msg("send buffer full on connect, skipping snapshot")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	stats := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	w.Write([]byte("{"))
	w.Write([]byte("\"total_connections\":" + strconv.Itoa(stats["total_connections"].(int)) + ","))
	w.Write([]byte("\"active_sessions\":" + strconv.Itoa(stats["active_sessions"].(int))))
	w.Write([]byte("}"))
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSessionConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
