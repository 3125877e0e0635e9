package answer

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

type fakeAnswerStore struct {
	answers   []models.AnswerEvent
	duplicate bool
}

func (f *fakeAnswerStore) CreateAnswer(_ context.Context, req CreateAnswerRequest) (*models.AnswerEvent, error) {
	if f.duplicate {
		return nil, ErrDuplicateAnswer
	}
	a := models.AnswerEvent{
		ID:             req.ID,
		SessionID:      req.SessionID,
		QuestionID:     req.QuestionID,
		TeamID:         req.TeamID,
		PlayerID:       req.PlayerID,
		SubmittedValue: req.SubmittedValue,
		IsCorrect:      req.IsCorrect,
		CreatedAt:      time.Now(),
	}
	f.answers = append(f.answers, a)
	return &a, nil
}

func (f *fakeAnswerStore) CountAnswersForQuestion(context.Context, uuid.UUID) (int, error) {
	return len(f.answers), nil
}

func (f *fakeAnswerStore) ListAnswersForQuestion(context.Context, uuid.UUID) ([]models.AnswerEvent, error) {
	return f.answers, nil
}

type fakeSessionStore struct {
	session models.Session
	updates int
}

func (f *fakeSessionStore) GetSession(context.Context, uuid.UUID) (*models.Session, error) {
	s := f.session
	return &s, nil
}

func (f *fakeSessionStore) UpdateSession(_ context.Context, s models.Session) (*models.Session, error) {
	f.updates++
	s.Version++
	f.session = s
	return &s, nil
}

type fakeQuestions struct{ active models.Question }

func (f *fakeQuestions) GetQuestionByPosition(context.Context, uuid.UUID, int, int) (*models.Question, error) {
	q := f.active
	return &q, nil
}

type fakeRoster struct{ members []models.Membership }

func (f *fakeRoster) GetMembership(_ context.Context, _ uuid.UUID, playerID uuid.UUID) (*models.Membership, error) {
	for _, m := range f.members {
		if m.PlayerID == playerID {
			return &m, nil
		}
	}
	return nil, game.ErrNotFound
}

func (f *fakeRoster) ListMemberships(context.Context, uuid.UUID) ([]models.Membership, error) {
	return f.members, nil
}

type fakeOracle struct {
	correct bool
	err     error
}

func (f *fakeOracle) ScoreAnswer(context.Context, uuid.UUID, string) (bool, error) {
	return f.correct, f.err
}

type fakeOutbox struct{ types []string }

func (f *fakeOutbox) InsertAnswerSubmitted(context.Context, uuid.UUID, []byte) error {
	f.types = append(f.types, "AnswerSubmitted")
	return nil
}

func (f *fakeOutbox) InsertSessionSnapshot(context.Context, uuid.UUID, []byte) error {
	f.types = append(f.types, "SessionSnapshot")
	return nil
}

type fixture struct {
	app      *App
	store    *fakeAnswerStore
	sessions *fakeSessionStore
	roster   *fakeRoster
	oracle   *fakeOracle
	outbox   *fakeOutbox
	clock    *clockwork.FakeClock

	question models.Question
	playerID uuid.UUID
	teamID   uuid.UUID
}

func newFixture(t *testing.T, mutate func(*models.Session)) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC))
	sessionID := uuid.New()
	s := models.Session{
		ID:     sessionID,
		HostID: uuid.New(),
		Status: models.GameStatusInProgress,
		Phase:  models.PhaseRoundPlay,
		Timer: &models.Timer{
			StartedAt:   clock.Now(),
			DurationSec: 30,
			ExpiresAt:   clock.Now().Add(30 * time.Second),
		},
		Scoreboard: models.NewScoreboard(),
		Version:    2,
	}
	if mutate != nil {
		mutate(&s)
	}

	fx := &fixture{
		store:    &fakeAnswerStore{},
		sessions: &fakeSessionStore{session: s},
		roster:   &fakeRoster{},
		oracle:   &fakeOracle{correct: true},
		outbox:   &fakeOutbox{},
		clock:    clock,
		question: models.Question{ID: uuid.New(), SessionID: sessionID},
		playerID: uuid.New(),
		teamID:   uuid.New(),
	}
	fx.roster.members = []models.Membership{{
		SessionID:  sessionID,
		PlayerID:   fx.playerID,
		PlayerName: "sam",
		TeamID:     &fx.teamID,
	}}
	fx.app = NewApp(fx.store, fx.sessions, &fakeQuestions{active: fx.question},
		fx.roster, fx.oracle, fx.outbox, clock, zerolog.Nop())
	return fx
}

func (fx *fixture) submit() (*models.AnswerEvent, error) {
	return fx.app.SubmitAnswer(context.Background(), SubmitAnswerRequest{
		SessionID:      fx.sessions.session.ID,
		QuestionID:     fx.question.ID,
		PlayerID:       fx.playerID,
		SubmittedValue: "b",
	})
}

func TestSubmitAnswerRecordsScoredAnswer(t *testing.T) {
	fx := newFixture(t, nil)

	saved, err := fx.submit()
	require.NoError(t, err)

	assert.True(t, saved.IsCorrect)
	assert.Equal(t, fx.teamID, saved.TeamID)
	assert.Contains(t, fx.outbox.types, "AnswerSubmitted")
}

func TestSubmitAnswerOutsideRoundPlay(t *testing.T) {
	fx := newFixture(t, func(s *models.Session) {
		s.Phase = models.PhaseRoundEnd
	})

	_, err := fx.submit()
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
	assert.Empty(t, fx.store.answers)
}

func TestSubmitAnswerAfterCountdownExpired(t *testing.T) {
	fx := newFixture(t, nil)
	fx.clock.Advance(31 * time.Second)

	_, err := fx.submit()
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestSubmitAnswerForInactiveQuestion(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.app.SubmitAnswer(context.Background(), SubmitAnswerRequest{
		SessionID:      fx.sessions.session.ID,
		QuestionID:     uuid.New(),
		PlayerID:       fx.playerID,
		SubmittedValue: "b",
	})
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestSubmitAnswerRequiresTeam(t *testing.T) {
	fx := newFixture(t, nil)
	fx.roster.members[0].TeamID = nil

	_, err := fx.submit()
	assert.ErrorIs(t, err, game.ErrInvalidTransition)
}

func TestSubmitAnswerUnknownPlayer(t *testing.T) {
	fx := newFixture(t, nil)
	fx.playerID = uuid.New()

	_, err := fx.submit()
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestSubmitAnswerOracleFailureRecordsNothing(t *testing.T) {
	fx := newFixture(t, nil)
	fx.oracle.err = game.ErrScoringUnavailable

	_, err := fx.submit()
	assert.ErrorIs(t, err, game.ErrScoringUnavailable)
	assert.Empty(t, fx.store.answers)
	assert.Empty(t, fx.outbox.types)
}

func TestSubmitAnswerDuplicateTeamSubmission(t *testing.T) {
	fx := newFixture(t, nil)
	fx.store.duplicate = true

	_, err := fx.submit()
	assert.ErrorIs(t, err, ErrDuplicateAnswer)
	assert.Empty(t, fx.outbox.types)
}

func TestAllTeamsAnsweredCutsCountdown(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.submit()
	require.NoError(t, err)

	// The only team has answered: the timer is force-expired and the
	// updated snapshot fans out.
	require.Equal(t, 1, fx.sessions.updates)
	timer := fx.sessions.session.Timer
	require.NotNil(t, timer)
	assert.True(t, timer.IsEarlyAdvance)
	assert.Equal(t, fx.clock.Now(), timer.ExpiresAt)
	assert.Equal(t, []string{"AnswerSubmitted", "SessionSnapshot"}, fx.outbox.types)
}

func TestCountdownNotCutWhileTeamsOutstanding(t *testing.T) {
	fx := newFixture(t, nil)
	otherTeam := uuid.New()
	fx.roster.members = append(fx.roster.members, models.Membership{
		SessionID:  fx.sessions.session.ID,
		PlayerID:   uuid.New(),
		PlayerName: "alex",
		TeamID:     &otherTeam,
	})

	_, err := fx.submit()
	require.NoError(t, err)

	assert.Zero(t, fx.sessions.updates)
	assert.False(t, fx.sessions.session.Timer.IsEarlyAdvance)
}

func TestPausedCountdownIsNotCut(t *testing.T) {
	fx := newFixture(t, func(s *models.Session) {
		s.Timer.IsPaused = true
		s.Timer.PausedRemainingSec = 20
	})

	_, err := fx.submit()
	require.NoError(t, err)
	assert.Zero(t, fx.sessions.updates)
}
