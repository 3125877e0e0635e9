package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-party/internal/game"
	"trivia-party/internal/models"
)

type fakeStore struct {
	sessions map[uuid.UUID]models.Session
	// conflictsLeft makes the next N UpdateSession calls lose the version
	// race without changing state.
	conflictsLeft int
	updates       int
}

func newFakeStore(seed ...models.Session) *fakeStore {
	fs := &fakeStore{sessions: make(map[uuid.UUID]models.Session)}
	for _, s := range seed {
		fs.sessions[s.ID] = s
	}
	return fs
}

func (f *fakeStore) CreateSession(_ context.Context, req CreateSessionRequest) (*models.Session, error) {
	s := models.Session{
		ID:         req.ID,
		HostID:     req.HostID,
		Name:       req.Name,
		Code:       req.Code,
		Status:     models.GameStatusSetup,
		Scoreboard: models.NewScoreboard(),
		Settings:   req.Settings,
		Version:    1,
	}
	f.sessions[s.ID] = s
	return &s, nil
}

func (f *fakeStore) GetSession(_ context.Context, id uuid.UUID) (*models.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) GetSessionByCode(_ context.Context, code string) (*models.Session, error) {
	for _, s := range f.sessions {
		if s.Code == code && s.Status != models.GameStatusCompleted {
			return &s, nil
		}
	}
	return nil, game.ErrNotFound
}

func (f *fakeStore) ListSessionsByHost(_ context.Context, hostID uuid.UUID) ([]models.Session, error) {
	var out []models.Session
	for _, s := range f.sessions {
		if s.HostID == hostID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateSession(_ context.Context, s models.Session) (*models.Session, error) {
	f.updates++
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		return nil, game.ErrConflict
	}
	cur, ok := f.sessions[s.ID]
	if !ok {
		return nil, game.ErrNotFound
	}
	if cur.Version != s.Version {
		return nil, game.ErrConflict
	}
	s.Version++
	f.sessions[s.ID] = s
	return &s, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	delete(f.sessions, id)
	return nil
}

type fakeRoster struct {
	teams   []models.Team
	members []models.Membership
}

func (f *fakeRoster) ListTeams(context.Context, uuid.UUID) ([]models.Team, error) {
	return f.teams, nil
}

func (f *fakeRoster) ListMemberships(context.Context, uuid.UUID) ([]models.Membership, error) {
	return f.members, nil
}

type fakeQuestions struct {
	rounds         int
	perRound       int
	activeQuestion models.Question
}

func (f *fakeQuestions) CountRounds(context.Context, uuid.UUID) (int, error) {
	return f.rounds, nil
}

func (f *fakeQuestions) CountQuestionsInRound(context.Context, uuid.UUID, int) (int, error) {
	return f.perRound, nil
}

func (f *fakeQuestions) GetQuestionByPosition(context.Context, uuid.UUID, int, int) (*models.Question, error) {
	q := f.activeQuestion
	return &q, nil
}

func (f *fakeQuestions) RoundNumbersByQuestion(context.Context, uuid.UUID) (map[uuid.UUID]int, error) {
	return map[uuid.UUID]int{f.activeQuestion.ID: 1}, nil
}

type fakeAnswers struct {
	count int
	list  []models.AnswerEvent
}

func (f *fakeAnswers) CountAnswersForQuestion(context.Context, uuid.UUID) (int, error) {
	return f.count, nil
}

func (f *fakeAnswers) ListAnswersForSession(context.Context, uuid.UUID) ([]models.AnswerEvent, error) {
	return f.list, nil
}

type recordedEvent struct {
	eventType string
	payload   []byte
}

type fakeOutbox struct {
	events []recordedEvent
}

func (f *fakeOutbox) record(t string) func(context.Context, uuid.UUID, []byte) error {
	return func(_ context.Context, _ uuid.UUID, payload []byte) error {
		f.events = append(f.events, recordedEvent{eventType: t, payload: payload})
		return nil
	}
}

func (f *fakeOutbox) InsertGameStarted(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("GameStarted")(ctx, id, p)
}
func (f *fakeOutbox) InsertPhaseChanged(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("PhaseChanged")(ctx, id, p)
}
func (f *fakeOutbox) InsertTimerStarted(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("TimerStarted")(ctx, id, p)
}
func (f *fakeOutbox) InsertTimerPaused(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("TimerPaused")(ctx, id, p)
}
func (f *fakeOutbox) InsertTimerResumed(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("TimerResumed")(ctx, id, p)
}
func (f *fakeOutbox) InsertTimerExpired(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("TimerExpired")(ctx, id, p)
}
func (f *fakeOutbox) InsertScoreboardUpdated(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("ScoreboardUpdated")(ctx, id, p)
}
func (f *fakeOutbox) InsertGameCompleted(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("GameCompleted")(ctx, id, p)
}
func (f *fakeOutbox) InsertSessionSnapshot(ctx context.Context, id uuid.UUID, p []byte) error {
	return f.record("SessionSnapshot")(ctx, id, p)
}

func (f *fakeOutbox) types() []string {
	var out []string
	for _, e := range f.events {
		out = append(out, e.eventType)
	}
	return out
}

type appFixture struct {
	app       *App
	store     *fakeStore
	roster    *fakeRoster
	questions *fakeQuestions
	answers   *fakeAnswers
	outbox    *fakeOutbox
	clock     *clockwork.FakeClock
	session   models.Session
}

func newAppFixture(t *testing.T, mutate func(*models.Session)) *appFixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC))
	s := models.Session{
		ID:         uuid.New(),
		HostID:     uuid.New(),
		Name:       "pub night",
		Code:       "ABC123",
		Status:     models.GameStatusInProgress,
		Phase:      models.PhaseRoundStart,
		Scoreboard: models.NewScoreboard(),
		Settings:   models.GameSettings{RoundPlayTimerSec: 30},
		Version:    3,
	}
	if mutate != nil {
		mutate(&s)
	}

	fx := &appFixture{
		store:     newFakeStore(s),
		roster:    &fakeRoster{},
		questions: &fakeQuestions{rounds: 2, perRound: 2, activeQuestion: models.Question{ID: uuid.New()}},
		answers:   &fakeAnswers{},
		outbox:    &fakeOutbox{},
		clock:     clock,
		session:   s,
	}
	fx.app = NewApp(fx.store, fx.roster, fx.questions, fx.answers, fx.outbox, clock, zerolog.Nop())
	return fx
}

func TestStartGameEntersGameStart(t *testing.T) {
	fx := newAppFixture(t, func(s *models.Session) {
		s.Status = models.GameStatusReady
		s.Phase = ""
		s.Settings.GameStartTimerSec = 10
	})

	saved, err := fx.app.StartGame(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)

	assert.Equal(t, models.GameStatusInProgress, saved.Status)
	assert.Equal(t, models.PhaseGameStart, saved.Phase)
	require.NotNil(t, saved.Timer)
	assert.Equal(t, 10, saved.Timer.DurationSec)
	assert.Equal(t, []string{"GameStarted", "TimerStarted", "SessionSnapshot"}, fx.outbox.types())
}

func TestStartGameRequiresReadyStatus(t *testing.T) {
	fx := newAppFixture(t, func(s *models.Session) {
		s.Status = models.GameStatusSetup
	})

	_, err := fx.app.StartGame(context.Background(), fx.session.ID, fx.session.HostID)
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestCommandsRejectNonHost(t *testing.T) {
	fx := newAppFixture(t, nil)
	stranger := uuid.New()

	_, err := fx.app.Advance(context.Background(), fx.session.ID, stranger)
	assert.ErrorIs(t, err, game.ErrNotHost)

	_, err = fx.app.PauseTimer(context.Background(), fx.session.ID, stranger)
	assert.ErrorIs(t, err, game.ErrNotHost)

	err = fx.app.DeleteSession(context.Background(), fx.session.ID, stranger)
	assert.ErrorIs(t, err, game.ErrNotHost)
}

func TestAdvanceBlockedWhileCountdownRuns(t *testing.T) {
	fx := newAppFixture(t, nil)

	// round-start -> round-play starts the 30s countdown.
	saved, err := fx.app.Advance(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)
	require.Equal(t, models.PhaseRoundPlay, saved.Phase)
	require.NotNil(t, saved.Timer)

	_, err = fx.app.Advance(context.Background(), fx.session.ID, fx.session.HostID)
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestAdvanceProceedsWhenAllTeamsAnswered(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	fx := newAppFixture(t, func(s *models.Session) {
		s.Phase = models.PhaseRoundPlay
		s.Timer = &models.Timer{
			StartedAt:   time.Date(2025, 6, 1, 18, 59, 50, 0, time.UTC),
			DurationSec: 30,
			ExpiresAt:   time.Date(2025, 6, 1, 19, 0, 20, 0, time.UTC),
		}
	})
	fx.roster.members = []models.Membership{
		{SessionID: fx.session.ID, PlayerID: uuid.New(), TeamID: &teamA},
		{SessionID: fx.session.ID, PlayerID: uuid.New(), TeamID: &teamB},
	}
	fx.answers.count = 2

	saved, err := fx.app.Advance(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRoundPlay, saved.Phase)
	assert.Equal(t, 1, saved.CurrentQuestion)
}

func TestHandleDeadlineAdvancesExpiredTimer(t *testing.T) {
	fx := newAppFixture(t, func(s *models.Session) {
		s.Phase = models.PhaseRoundPlay
		s.CurrentQuestion = 1 // last question of the round
		s.Timer = &models.Timer{
			StartedAt:   time.Date(2025, 6, 1, 18, 59, 0, 0, time.UTC),
			DurationSec: 30,
			ExpiresAt:   time.Date(2025, 6, 1, 18, 59, 30, 0, time.UTC),
		}
	})

	saved, err := fx.app.HandleDeadline(context.Background(), fx.session.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, models.PhaseRoundEnd, saved.Phase)
	types := fx.outbox.types()
	require.NotEmpty(t, types)
	assert.Equal(t, "TimerExpired", types[0])
	assert.Contains(t, types, "ScoreboardUpdated")
	assert.Contains(t, types, "SessionSnapshot")
}

func TestHandleDeadlineIgnoresMovedDeadline(t *testing.T) {
	fx := newAppFixture(t, func(s *models.Session) {
		s.Phase = models.PhaseRoundPlay
		s.Timer = &models.Timer{
			StartedAt:   time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC),
			DurationSec: 30,
			ExpiresAt:   time.Date(2025, 6, 1, 19, 0, 30, 0, time.UTC),
		}
	})

	saved, err := fx.app.HandleDeadline(context.Background(), fx.session.ID)
	require.NoError(t, err)
	assert.Nil(t, saved)
	assert.Empty(t, fx.outbox.types())
	assert.Zero(t, fx.store.updates)
}

func TestAdvanceRetriesOnVersionConflict(t *testing.T) {
	fx := newAppFixture(t, nil)
	fx.store.conflictsLeft = 2

	saved, err := fx.app.Advance(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRoundPlay, saved.Phase)
	assert.Equal(t, 3, fx.store.updates)
}

func TestAdvanceGivesUpAfterBoundedConflicts(t *testing.T) {
	fx := newAppFixture(t, nil)
	fx.store.conflictsLeft = maxConflictRetries

	_, err := fx.app.Advance(context.Background(), fx.session.ID, fx.session.HostID)
	assert.ErrorIs(t, err, game.ErrConflict)
}

func TestPauseTwiceIsIdempotent(t *testing.T) {
	fx := newAppFixture(t, func(s *models.Session) {
		s.Phase = models.PhaseRoundPlay
		s.Timer = &models.Timer{
			StartedAt:   time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC),
			DurationSec: 30,
			ExpiresAt:   time.Date(2025, 6, 1, 19, 0, 30, 0, time.UTC),
		}
	})

	fx.clock.Advance(18 * time.Second)
	first, err := fx.app.PauseTimer(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)
	require.True(t, first.Timer.IsPaused)
	assert.Equal(t, 12, first.Timer.PausedRemainingSec)

	second, err := fx.app.PauseTimer(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)
	assert.Equal(t, first.Timer, second.Timer)
	assert.Equal(t, []string{"TimerPaused", "SessionSnapshot"}, fx.outbox.types())
}

func TestResumeRestoresRemainingSeconds(t *testing.T) {
	fx := newAppFixture(t, func(s *models.Session) {
		s.Phase = models.PhaseRoundPlay
		s.Timer = &models.Timer{
			IsPaused:           true,
			DurationSec:        30,
			PausedRemainingSec: 12,
		}
	})

	fx.clock.Advance(5 * time.Minute)
	saved, err := fx.app.ResumeTimer(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)

	require.False(t, saved.Timer.IsPaused)
	assert.Equal(t, fx.clock.Now().Add(12*time.Second), saved.Timer.ExpiresAt)
	assert.Equal(t, []string{"TimerResumed", "SessionSnapshot"}, fx.outbox.types())
}

func TestEndGameCompletesFromAnyPhase(t *testing.T) {
	fx := newAppFixture(t, func(s *models.Session) {
		s.Phase = models.PhaseRoundPlay
		s.Timer = &models.Timer{DurationSec: 30, ExpiresAt: time.Date(2025, 6, 1, 19, 0, 30, 0, time.UTC)}
	})

	saved, err := fx.app.EndGame(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCompleted, saved.Status)
	assert.Nil(t, saved.Timer)
	assert.Equal(t, []string{"GameCompleted", "SessionSnapshot"}, fx.outbox.types())
}

func TestThanksAdvanceCompletesSession(t *testing.T) {
	fx := newAppFixture(t, func(s *models.Session) {
		s.Phase = models.PhaseThanks
	})

	saved, err := fx.app.Advance(context.Background(), fx.session.ID, fx.session.HostID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseReturnToLobby, saved.Phase)
	assert.Equal(t, models.GameStatusCompleted, saved.Status)
	assert.Contains(t, fx.outbox.types(), "GameCompleted")
}

func TestCreateGameGeneratesJoinCode(t *testing.T) {
	fx := newAppFixture(t, nil)

	created, err := fx.app.CreateGame(context.Background(), CreateGameRequest{
		HostID: uuid.New(),
		Name:   "quiz night",
	})
	require.NoError(t, err)

	assert.Len(t, created.Code, 6)
	for _, c := range created.Code {
		assert.Contains(t, joinCodeAlphabet, string(c))
	}
	assert.Equal(t, models.GameStatusSetup, created.Status)
}
