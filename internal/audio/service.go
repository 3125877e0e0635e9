package audio

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trivia-party/internal/httpapi"
)

// Service exposes audio job creation and status over HTTP.
type Service struct {
	app *App
}

func NewService(app *App) *Service {
	return &Service{app: app}
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/games/{id}/audio", s.handleCreateJob)
	r.Get("/audio/jobs/{jobID}", s.handleGetJob)
}

func (s *Service) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpapi.BadRequest(w, "invalid session id")
		return
	}
	var req struct {
		HostID uuid.UUID `json:"host_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.HostID == uuid.Nil {
		httpapi.BadRequest(w, "host_id is required")
		return
	}

	job, err := s.app.CreateJob(r.Context(), sessionID, req.HostID)
	if errors.Is(err, ErrDuplicateJob) {
		httpapi.RespondJSON(w, http.StatusConflict, map[string]any{
			"error":    "audio job already in progress",
			"job_id":   job.ID,
			"status":   job.Status,
			"progress": job.Progress,
		})
		return
	}
	if errors.Is(err, ErrNoQuestions) {
		httpapi.BadRequest(w, "session has no questions")
		return
	}
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusAccepted, job)
}

func (s *Service) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		httpapi.BadRequest(w, "invalid job id")
		return
	}
	job, err := s.app.GetJob(r.Context(), jobID)
	if err != nil {
		httpapi.RespondError(w, err)
		return
	}
	httpapi.RespondJSON(w, http.StatusOK, job)
}
