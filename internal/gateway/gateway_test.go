package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-party/internal/events"
	"trivia-party/internal/models"
)

// addConnection registers a connection directly, bypassing the WebSocket
// upgrade, so broadcast logic can be tested without a live socket.
func addConnection(cm *ConnectionManager, sessionID uuid.UUID, playerID string) *Connection {
	conn := &Connection{
		ID:        uuid.New().String(),
		PlayerID:  playerID,
		SessionID: sessionID,
		Send:      make(chan []byte, 256),
		Manager:   cm,
	}
	cm.registerConnection(conn)
	return conn
}

func recvEvent(t *testing.T, conn *Connection) SessionEvent {
	t.Helper()
	select {
	case data := <-conn.Send:
		var event SessionEvent
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	default:
		t.Fatal("no event in send buffer")
		return SessionEvent{}
	}
}

func TestBroadcastReachesWholeSessionPool(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	sessionID := uuid.New()

	host := addConnection(cm, sessionID, "host")
	player := addConnection(cm, sessionID, "player-1")
	stranger := addConnection(cm, uuid.New(), "player-2")

	cm.handleBroadcast(BroadcastMessage{
		SessionID: sessionID,
		Event: &SessionEvent{
			ID:        uuid.New().String(),
			SessionID: sessionID.String(),
			Type:      EventTypePhaseChanged,
			Timestamp: time.Now(),
			Data:      json.RawMessage(`{"phase":"round-play"}`),
		},
	})

	assert.Equal(t, EventTypePhaseChanged, recvEvent(t, host).Type)
	assert.Equal(t, EventTypePhaseChanged, recvEvent(t, player).Type)
	assert.Empty(t, stranger.Send, "other session's pool must not receive the event")
}

func TestBroadcastToPlayerFiltersPool(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	sessionID := uuid.New()

	host := addConnection(cm, sessionID, "host")
	player := addConnection(cm, sessionID, "player-1")

	cm.handleBroadcast(BroadcastMessage{
		SessionID: sessionID,
		PlayerID:  "player-1",
		Event: &SessionEvent{
			ID:        uuid.New().String(),
			SessionID: sessionID.String(),
			Type:      EventTypeScoreboardUpdated,
			Timestamp: time.Now(),
			Data:      json.RawMessage(`{}`),
		},
	})

	assert.Empty(t, host.Send)
	assert.Equal(t, EventTypeScoreboardUpdated, recvEvent(t, player).Type)
}

func TestUnregisterCleansEmptyPool(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	sessionID := uuid.New()
	conn := addConnection(cm, sessionID, "host")

	cm.unregisterConnection(conn)

	stats := cm.GetConnectionStats()
	assert.Equal(t, 0, stats["total_connections"])
	assert.Equal(t, 0, stats["active_sessions"])
}

func TestConvertToWebSocketEvent(t *testing.T) {
	sessionID := uuid.New().String()

	event, err := convertToWebSocketEvent(uuid.New().String(), events.TypeTimerExpired, sessionID, json.RawMessage(`{"early_advance":true}`))
	require.NoError(t, err)
	assert.Equal(t, EventTypeTimerExpired, event.Type)
	assert.Equal(t, sessionID, event.SessionID)

	_, err = convertToWebSocketEvent(uuid.New().String(), "NotARealEvent", sessionID, nil)
	assert.Error(t, err)
}

type fakeSessionStore struct {
	sessions map[uuid.UUID]models.Session
}

func (f *fakeSessionStore) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, assert.AnError
	}
	return &s, nil
}

func (f *fakeSessionStore) ListActiveSessions(_ context.Context) ([]models.Session, error) {
	var out []models.Session
	for _, s := range f.sessions {
		if s.Status == models.GameStatusInProgress {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestStateProviderProjectsRunningTimer(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC))
	now := clock.Now()
	sessionID := uuid.New()
	store := &fakeSessionStore{sessions: map[uuid.UUID]models.Session{
		sessionID: {
			ID:           sessionID,
			Name:         "pub night",
			Code:         "AB12CD",
			Status:       models.GameStatusInProgress,
			Phase:        models.PhaseRoundPlay,
			CurrentRound: 1,
			Timer: &models.Timer{
				StartedAt:   now.Add(-10 * time.Second),
				DurationSec: 30,
				ExpiresAt:   now.Add(20 * time.Second),
			},
			Scoreboard: models.NewScoreboard(),
		},
	}}

	state, err := NewSessionStateProvider(store, clock).GetSessionState(context.Background(), sessionID)
	require.NoError(t, err)

	require.NotNil(t, state.Timer)
	assert.False(t, state.Timer.IsPaused)
	assert.Equal(t, 20, state.Timer.RemainingSec)
	assert.Equal(t, "round-play", state.Phase)
}

func TestStateProviderFreezesPausedTimer(t *testing.T) {
	timer := &models.Timer{
		DurationSec:        30,
		ExpiresAt:          time.Now().Add(-time.Hour),
		IsPaused:           true,
		PausedRemainingSec: 12,
	}

	info := timerInfo(timer, time.Now())
	assert.True(t, info.IsPaused)
	assert.Equal(t, 12, info.RemainingSec)
}

func TestExtractSessionIDFromPath(t *testing.T) {
	id := uuid.New().String()

	assert.Equal(t, id, extractSessionIDFromPath("/api/sessions/"+id+"/state"))
	assert.Empty(t, extractSessionIDFromPath("/api/sessions//state"))
	assert.Empty(t, extractSessionIDFromPath("/api/sessions/"+id))
	assert.Empty(t, extractSessionIDFromPath("/api/sessions/"+id+"/teams/state"))
}
