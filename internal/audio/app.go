package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// ErrNoQuestions is returned when a job is requested for a session that
// has no questions to synthesize.
var ErrNoQuestions = errors.New("session has no questions")

// JobStore is what the app needs from the repository.
type JobStore interface {
	CreateJob(ctx context.Context, req CreateJobRequest) (*models.AudioJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*models.AudioJob, error)
	GetLiveJob(ctx context.Context, sessionID uuid.UUID) (*models.AudioJob, error)
}

// SessionReader provides the session for host and status checks.
type SessionReader interface {
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// QuestionReader counts the work a job will cover.
type QuestionReader interface {
	ListQuestionsForSession(ctx context.Context, sessionID uuid.UUID) ([]models.Question, error)
}

// App owns audio job bookkeeping. Synthesis itself happens in the
// Sweeper; the app only creates and reports jobs.
type App struct {
	jobs      JobStore
	sessions  SessionReader
	questions QuestionReader
	logger    zerolog.Logger
}

func NewApp(jobs JobStore, sessions SessionReader, questions QuestionReader, logger zerolog.Logger) *App {
	return &App{
		jobs:      jobs,
		sessions:  sessions,
		questions: questions,
		logger:    logger,
	}
}

// CreateJob queues audio generation for every question in the session.
// Host-only, setup-only. When a live job already exists the existing job
// is returned alongside ErrDuplicateJob so callers can report its id.
func (a *App) CreateJob(ctx context.Context, sessionID, hostID uuid.UUID) (*models.AudioJob, error) {
	s, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.HostID != hostID {
		return nil, game.ErrNotHost
	}
	if s.Status != models.GameStatusSetup {
		return nil, fmt.Errorf("%w: audio can only be generated during setup", game.ErrInvalidTransition)
	}

	questions, err := a.questions.ListQuestionsForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	job, err := a.jobs.CreateJob(ctx, CreateJobRequest{
		ID:             uuid.New(),
		SessionID:      sessionID,
		TotalQuestions: len(questions),
	})
	if errors.Is(err, ErrDuplicateJob) {
		// Lost the race or a job already exists; surface it.
		existing, getErr := a.jobs.GetLiveJob(ctx, sessionID)
		if getErr != nil {
			return nil, err
		}
		return existing, ErrDuplicateJob
	}
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("session_id", sessionID.String()).
		Str("job_id", job.ID.String()).
		Int("total_questions", job.TotalQuestions).
		Msg("audio job queued")
	return job, nil
}

// GetJob reports a job's status and progress.
func (a *App) GetJob(ctx context.Context, id uuid.UUID) (*models.AudioJob, error) {
	return a.jobs.GetJob(ctx, id)
}
