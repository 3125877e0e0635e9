package question

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trivia-party/internal/httpapi"
)

// Service exposes content management over HTTP. Question listings use the
// model's JSON shape, which never includes the answer key.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/games/{id}/rounds", s.handleListRounds)
	r.Post("/games/{id}/rounds", s.handleAddRound)
	r.Get("/games/{id}/questions", s.handleListQuestions)
	r.Post("/games/{id}/questions", s.handleAddQuestion)
	r.Get("/games/{id}/questions/current", s.handleCurrentQuestion)
}

func (s *Service) handleAddRound(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		HostID uuid.UUID `json:"host_id"`
		AddRoundRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostID == uuid.Nil {
		httpapi.BadRequest(w, "host_id is required")
		return
	}
	req.SessionID = id
	round, err := s.app.AddRound(r.Context(), req.HostID, req.AddRoundRequest)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, round)
}

func (s *Service) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		HostID uuid.UUID `json:"host_id"`
		AddQuestionRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostID == uuid.Nil {
		httpapi.BadRequest(w, "host_id is required")
		return
	}
	req.SessionID = id
	question, err := s.app.AddQuestion(r.Context(), req.HostID, req.AddQuestionRequest)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, question)
}

func (s *Service) handleListRounds(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rounds, err := s.app.ListRounds(r.Context(), id)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, rounds)
}

func (s *Service) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	questions, err := s.app.ListQuestions(r.Context(), id)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, questions)
}

func (s *Service) handleCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	question, err := s.app.CurrentQuestion(r.Context(), id)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, question)
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpapi.BadRequest(w, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}
