package roster

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trivia-party/internal/httpapi"
)

// Service exposes joins and team management over HTTP.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/games/join", s.handleJoin)
	r.Get("/games/{id}/teams", s.handleListTeams)
	r.Post("/games/{id}/teams", s.handleCreateTeam)
	r.Post("/games/{id}/teams/select", s.handleSelectTeam)
	r.Get("/games/{id}/players", s.handleListPlayers)
}

func (s *Service) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.BadRequest(w, "invalid request body")
		return
	}
	resp, err := s.app.JoinGame(r.Context(), req)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, resp)
}

func (s *Service) handleListTeams(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	teams, err := s.app.ListTeams(r.Context(), id)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, teams)
}

func (s *Service) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.BadRequest(w, "invalid request body")
		return
	}
	team, err := s.app.CreateTeam(r.Context(), id, req.Name)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, team)
}

func (s *Service) handleSelectTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		PlayerID uuid.UUID  `json:"player_id"`
		TeamID   *uuid.UUID `json:"team_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == uuid.Nil {
		httpapi.BadRequest(w, "player_id is required")
		return
	}
	m, err := s.app.SelectTeam(r.Context(), id, req.PlayerID, req.TeamID)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, m)
}

func (s *Service) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	members, err := s.app.ListMemberships(r.Context(), id)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, members)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpapi.BadRequest(w, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}
