package audio

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

// ErrDuplicateJob is returned when the live-job unique index rejects an
// insert because a pending or processing job already exists.
var ErrDuplicateJob = errors.New("audio job already in progress")

const uniqueViolation = "23505"

// Repository persists audio generation jobs.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type CreateJobRequest struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	TotalQuestions int       `json:"total_questions"`
}

const jobColumns = `id, session_id, status, progress, total_questions,
	completed_questions, failed_questions, current_api_key_index, created_at, updated_at`

func (r *Repository) CreateJob(ctx context.Context, req CreateJobRequest) (*models.AudioJob, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO audio_jobs (id, session_id, status, total_questions)
		VALUES ($1, $2, $3, $4)
		RETURNING `+jobColumns,
		req.ID, req.SessionID, models.AudioJobPending, req.TotalQuestions,
	)
	job, err := scanJob(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateJob
		}
		return nil, fmt.Errorf("failed to create audio job: %w", err)
	}
	return job, nil
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (*models.AudioJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM audio_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audio job: %w", err)
	}
	return job, nil
}

// GetLiveJob returns the session's pending or processing job, if any.
func (r *Repository) GetLiveJob(ctx context.Context, sessionID uuid.UUID) (*models.AudioJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+` FROM audio_jobs
		WHERE session_id = $1 AND status IN ($2, $3)`,
		sessionID, models.AudioJobPending, models.AudioJobProcessing)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get live audio job: %w", err)
	}
	return job, nil
}

// ClaimPendingJob atomically claims the oldest pending job, moving it to
// processing. Returns nil, nil when no job is waiting.
func (r *Repository) ClaimPendingJob(ctx context.Context) (*models.AudioJob, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE audio_jobs SET status = $1, updated_at = now()
		WHERE id = (
			SELECT id FROM audio_jobs
			WHERE status = $2
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+jobColumns,
		models.AudioJobProcessing, models.AudioJobPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending job: %w", err)
	}
	return job, nil
}

// ResetStuckJobs returns processing jobs that stopped making progress to
// pending so a sweeper can pick them up again after a crash.
func (r *Repository) ResetStuckJobs(ctx context.Context, stuckAfter time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE audio_jobs SET status = $1, updated_at = now()
		WHERE status = $2 AND updated_at < now() - $3::interval`,
		models.AudioJobPending, models.AudioJobProcessing,
		fmt.Sprintf("%d seconds", int(stuckAfter.Seconds())),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// UpdateJobProgress persists per-question progress made by the sweeper.
func (r *Repository) UpdateJobProgress(ctx context.Context, id uuid.UUID, completed, progress int, failed []uuid.UUID, keyIndex int) error {
	if failed == nil {
		failed = []uuid.UUID{}
	}
	failedBytes, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("failed to marshal failed questions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE audio_jobs
		SET completed_questions = $1, progress = $2, failed_questions = $3,
		    current_api_key_index = $4, updated_at = now()
		WHERE id = $5`,
		completed, progress, failedBytes, keyIndex, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// FinishJob records the terminal status of a job.
func (r *Repository) FinishJob(ctx context.Context, id uuid.UUID, status models.AudioJobStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE audio_jobs SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish job: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.AudioJob, error) {
	var job models.AudioJob
	var failedBytes []byte

	err := row.Scan(
		&job.ID, &job.SessionID, &job.Status, &job.Progress,
		&job.TotalQuestions, &job.CompletedQuestions, &failedBytes,
		&job.CurrentAPIKeyIndex, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(failedBytes, &job.FailedQuestions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed questions: %w", err)
	}
	return &job, nil
}
