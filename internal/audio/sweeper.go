package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trivia-party/internal/models"
)

// SweeperJobStore is what the sweeper needs from the repository.
type SweeperJobStore interface {
	ClaimPendingJob(ctx context.Context) (*models.AudioJob, error)
	ResetStuckJobs(ctx context.Context, stuckAfter time.Duration) (int64, error)
	UpdateJobProgress(ctx context.Context, id uuid.UUID, completed, progress int, failed []uuid.UUID, keyIndex int) error
	FinishJob(ctx context.Context, id uuid.UUID, status models.AudioJobStatus) error
}

// SweeperConfig tunes the background synthesis loop.
type SweeperConfig struct {
	Interval         time.Duration
	StuckAfter       time.Duration
	MaxAttempts      int
	PerQuestionDelay time.Duration
}

// DefaultSweeperConfig returns the default sweeper tuning.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:         15 * time.Second,
		StuckAfter:       5 * time.Minute,
		MaxAttempts:      3,
		PerQuestionDelay: 200 * time.Millisecond,
	}
}

// Sweeper claims pending audio jobs and synthesizes audio for each
// question, rotating API keys on failure. It never touches session phase;
// a game runs fine while its audio is still cooking.
type Sweeper struct {
	jobs      SweeperJobStore
	questions QuestionReader
	storage   Storage
	tts       TTSClient
	apiKeys   []string
	config    SweeperConfig
	logger    zerolog.Logger

	scheduler gocron.Scheduler
}

func NewSweeper(jobs SweeperJobStore, questions QuestionReader, storage Storage, tts TTSClient, apiKeys []string, config SweeperConfig, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		jobs:      jobs,
		questions: questions,
		storage:   storage,
		tts:       tts,
		apiKeys:   apiKeys,
		config:    config,
		logger:    logger,
	}
}

// Start schedules the sweep loop. Singleton mode stops overlapping sweeps
// when one synthesis pass outlives the interval.
func (s *Sweeper) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.config.Interval),
		gocron.NewTask(func() {
			s.sweep(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}

	scheduler.Start()
	s.scheduler = scheduler

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Int("api_keys", len(s.apiKeys)).
		Msg("audio sweeper started")
	return nil
}

// Stop shuts down the sweep loop.
func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

// sweep recovers stuck jobs, then drains the pending queue.
func (s *Sweeper) sweep(ctx context.Context) {
	reset, err := s.jobs.ResetStuckJobs(ctx, s.config.StuckAfter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to reset stuck audio jobs")
	} else if reset > 0 {
		s.logger.Warn().Int64("count", reset).Msg("reset stuck audio jobs to pending")
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := s.jobs.ClaimPendingJob(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to claim pending audio job")
			return
		}
		if job == nil {
			return
		}

		s.processJob(ctx, job)
	}
}

func (s *Sweeper) processJob(ctx context.Context, job *models.AudioJob) {
	s.logger.Info().
		Str("job_id", job.ID.String()).
		Str("session_id", job.SessionID.String()).
		Int("total_questions", job.TotalQuestions).
		Msg("processing audio job")

	if len(s.apiKeys) == 0 {
		s.logger.Error().Str("job_id", job.ID.String()).Msg("no TTS API keys configured")
		s.finishJob(ctx, job.ID, models.AudioJobFailed)
		return
	}

	questions, err := s.questions.ListQuestionsForSession(ctx, job.SessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to list questions for audio job")
		s.finishJob(ctx, job.ID, models.AudioJobFailed)
		return
	}

	completed := 0
	keyIndex := job.CurrentAPIKeyIndex
	var failed []uuid.UUID

	for _, q := range questions {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if q.AudioReady {
			completed++
			s.recordProgress(ctx, job, completed, failed, keyIndex)
			continue
		}

		audio, newKeyIndex, err := s.synthesizeWithRotation(ctx, q.Prompt, keyIndex)
		keyIndex = newKeyIndex
		if err == nil {
			err = s.storage.SaveQuestionAudio(ctx, q.ID, audio)
		}
		if err != nil {
			failed = append(failed, q.ID)
			s.logger.Error().
				Err(err).
				Str("job_id", job.ID.String()).
				Str("question_id", q.ID.String()).
				Msg("audio synthesis failed for question")
		}

		completed++
		s.recordProgress(ctx, job, completed, failed, keyIndex)

		// Spread calls out a little so one job does not hammer the API.
		if s.config.PerQuestionDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.config.PerQuestionDelay):
			}
		}
	}

	finalStatus := models.AudioJobCompleted
	if len(failed) > 0 {
		finalStatus = models.AudioJobFailed
	}
	s.finishJob(ctx, job.ID, finalStatus)

	s.logger.Info().
		Str("job_id", job.ID.String()).
		Str("status", string(finalStatus)).
		Int("completed", completed).
		Int("failed", len(failed)).
		Msg("audio job finished")
}

// synthesizeWithRotation retries synthesis, moving to the next API key on
// every failure. Rate limits and hard errors rotate alike; a fresh key is
// the best next move for both.
func (s *Sweeper) synthesizeWithRotation(ctx context.Context, text string, keyIndex int) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt < s.config.MaxAttempts; attempt++ {
		key := s.apiKeys[keyIndex%len(s.apiKeys)]
		audio, err := s.tts.Synthesize(ctx, text, key)
		if err == nil {
			return audio, keyIndex, nil
		}
		lastErr = err
		keyIndex++
		if errors.Is(err, ErrRateLimited) {
			s.logger.Warn().Int("key_index", keyIndex).Msg("TTS key rate limited, rotating")
		}
	}
	return nil, keyIndex, lastErr
}

func (s *Sweeper) recordProgress(ctx context.Context, job *models.AudioJob, completed int, failed []uuid.UUID, keyIndex int) {
	progress := 0
	if job.TotalQuestions > 0 {
		progress = completed * 100 / job.TotalQuestions
	}
	if err := s.jobs.UpdateJobProgress(ctx, job.ID, completed, progress, failed, keyIndex); err != nil {
		s.logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to update job progress")
	}
}

func (s *Sweeper) finishJob(ctx context.Context, id uuid.UUID, status models.AudioJobStatus) {
	if err := s.jobs.FinishJob(ctx, id, status); err != nil {
		s.logger.Error().Err(err).Str("job_id", id.String()).Msg("failed to finish job")
	}
}

// ParseAPIKeys parses the TTS_API_KEYS environment value, a JSON array of
// key strings.
func ParseAPIKeys(raw string) []string {
	if raw == "" {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil
	}
	return keys
}
