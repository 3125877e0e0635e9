package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trivia-party/internal/httpapi"
	"trivia-party/internal/models"
)

// Service exposes session lifecycle and host commands over HTTP. Host
// commands carry the acting host_id in the request body; the app layer
// rejects non-host callers.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/games", s.handleCreateGame)
	r.Get("/games", s.handleListByHost)
	r.Get("/games/code/{code}", s.handleGetByCode)

	r.Get("/games/{id}", s.handleGetSession)
	r.Delete("/games/{id}", s.handleDeleteSession)
	r.Get("/games/{id}/standings", s.handleStandings)
	r.Post("/games/{id}/ready", s.command(s.app.MarkReady))
	r.Post("/games/{id}/start", s.command(s.app.StartGame))
	r.Post("/games/{id}/advance", s.command(s.app.Advance))
	r.Post("/games/{id}/back", s.command(s.app.GoBack))
	r.Post("/games/{id}/end", s.command(s.app.EndGame))
	r.Post("/games/{id}/timer/pause", s.command(s.app.PauseTimer))
	r.Post("/games/{id}/timer/resume", s.command(s.app.ResumeTimer))
}

type hostRequest struct {
	HostID uuid.UUID `json:"host_id"`
}

// command adapts the shared (session, host) -> session shape of every host
// command into an HTTP handler.
func (s *Service) command(fn func(ctx context.Context, id, hostID uuid.UUID) (*models.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req hostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostID == uuid.Nil {
			httpapi.BadRequest(w, "host_id is required")
			return
		}
		updated, err := fn(r.Context(), id, req.HostID)
		if err != nil {
			httpapi.RespondError(w, err)
			return
		}
		httpapi.RespondJSON(w, http.StatusOK, updated)
	}
}

func (s *Service) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.BadRequest(w, "invalid request body")
		return
	}
	created, err := s.app.CreateGame(r.Context(), req)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, created)
}

func (s *Service) handleListByHost(w http.ResponseWriter, r *http.Request) {
	hostID, err := uuid.Parse(r.URL.Query().Get("host_id"))
	if err != nil {
		httpapi.BadRequest(w, "host_id query parameter is required")
		return
	}
	sessions, err := s.app.ListSessionsByHost(r.Context(), hostID)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, sessions)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	session, err := s.app.GetSession(r.Context(), id)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, session)
}

func (s *Service) handleGetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	session, err := s.app.GetSessionByCode(r.Context(), code)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, session)
}

func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	hostID, err := uuid.Parse(r.URL.Query().Get("host_id"))
	if err != nil {
		httpapi.BadRequest(w, "host_id query parameter is required")
		return
	}
	if err := s.app.DeleteSession(r.Context(), id, hostID); err != nil {
		httpapi.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleStandings(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	standings, err := s.app.Standings(r.Context(), id)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, standings)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpapi.BadRequest(w, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}
