package answer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trivia-party/internal/httpapi"
)

// Service exposes answer submission over HTTP.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/games/{id}/answers", s.handleSubmit)
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpapi.BadRequest(w, "invalid session id")
		return
	}
	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.BadRequest(w, "invalid request body")
		return
	}
	req.SessionID = id
	if req.QuestionID == uuid.Nil || req.PlayerID == uuid.Nil {
		httpapi.BadRequest(w, "question_id and player_id are required")
		return
	}

	saved, err := s.app.SubmitAnswer(r.Context(), req)
	if errors.Is(err, ErrDuplicateAnswer) {
		httpapi.RespondJSON(w, http.StatusConflict, map[string]string{
			"error": "your team already answered this question",
		})
		return
	}
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusCreated, saved)
}
