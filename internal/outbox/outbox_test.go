package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	inserted map[string]int
}

func (f *fakeRepo) note(t string) error {
	if f.inserted == nil {
		f.inserted = make(map[string]int)
	}
	f.inserted[t]++
	return nil
}

func (f *fakeRepo) InsertOutboxGameStarted(context.Context, uuid.UUID, []byte) error {
	return f.note("GameStarted")
}
func (f *fakeRepo) InsertOutboxPhaseChanged(context.Context, uuid.UUID, []byte) error {
	return f.note("PhaseChanged")
}
func (f *fakeRepo) InsertOutboxTimerStarted(context.Context, uuid.UUID, []byte) error {
	return f.note("TimerStarted")
}
func (f *fakeRepo) InsertOutboxTimerPaused(context.Context, uuid.UUID, []byte) error {
	return f.note("TimerPaused")
}
func (f *fakeRepo) InsertOutboxTimerResumed(context.Context, uuid.UUID, []byte) error {
	return f.note("TimerResumed")
}
func (f *fakeRepo) InsertOutboxTimerExpired(context.Context, uuid.UUID, []byte) error {
	return f.note("TimerExpired")
}
func (f *fakeRepo) InsertOutboxAnswerSubmitted(context.Context, uuid.UUID, []byte) error {
	return f.note("AnswerSubmitted")
}
func (f *fakeRepo) InsertOutboxScoreboardUpdated(context.Context, uuid.UUID, []byte) error {
	return f.note("ScoreboardUpdated")
}
func (f *fakeRepo) InsertOutboxGameCompleted(context.Context, uuid.UUID, []byte) error {
	return f.note("GameCompleted")
}
func (f *fakeRepo) InsertOutboxSessionSnapshot(context.Context, uuid.UUID, []byte) error {
	return f.note("SessionSnapshot")
}

func TestAppRejectsInvalidPayload(t *testing.T) {
	repo := &fakeRepo{}
	app := NewApp(repo)

	err := app.InsertGameStarted(context.Background(), uuid.New(), []byte("{not json"))
	require.Error(t, err)
	assert.Empty(t, repo.inserted)

	err = app.InsertGameStarted(context.Background(), uuid.New(), nil)
	require.Error(t, err)
}

func TestAppRoutesEventTypes(t *testing.T) {
	repo := &fakeRepo{}
	app := NewApp(repo)
	payload := []byte(`{"session_id":"x"}`)

	require.NoError(t, app.InsertPhaseChanged(context.Background(), uuid.New(), payload))
	require.NoError(t, app.InsertTimerExpired(context.Background(), uuid.New(), payload))
	require.NoError(t, app.InsertSessionSnapshot(context.Background(), uuid.New(), payload))

	assert.Equal(t, 1, repo.inserted["PhaseChanged"])
	assert.Equal(t, 1, repo.inserted["TimerExpired"])
	assert.Equal(t, 1, repo.inserted["SessionSnapshot"])
}

type flakyPublisher struct {
	failures int
	calls    int
}

func (p *flakyPublisher) Publish(context.Context, OutboxEvent) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("bus unavailable")
	}
	return nil
}

func TestPublishWithRetryRecovers(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	w := NewWorker(nil, pub, Config{MaxRetries: 3, RetryDelay: time.Millisecond}, discardLogger())

	err := w.publishWithRetry(context.Background(), OutboxEvent{ID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, 3, pub.calls)
}

func TestPublishWithRetryGivesUp(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	w := NewWorker(nil, pub, Config{MaxRetries: 2, RetryDelay: time.Millisecond}, discardLogger())

	err := w.publishWithRetry(context.Background(), OutboxEvent{ID: uuid.New()})
	require.Error(t, err)
	assert.Equal(t, 3, pub.calls)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
