package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-party/internal/models"
)

func liveSession(phase models.GamePhase) models.Session {
	return models.Session{
		Status: models.GameStatusInProgress,
		Phase:  phase,
		Settings: models.GameSettings{
			RoundPlayTimerSec: 30,
		},
		Scoreboard: models.NewScoreboard(),
	}
}

func TestAdvanceFollowsDesignatedSuccessor(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		phase     models.GamePhase
		in        AdvanceInput
		wantPhase models.GamePhase
	}{
		{
			name:      "game-start to round-start",
			phase:     models.PhaseGameStart,
			in:        AdvanceInput{Now: now, TotalRounds: 2, QuestionsInRound: 3},
			wantPhase: models.PhaseRoundStart,
		},
		{
			name:      "round-start to round-play",
			phase:     models.PhaseRoundStart,
			in:        AdvanceInput{Now: now, TotalRounds: 2, QuestionsInRound: 3},
			wantPhase: models.PhaseRoundPlay,
		},
		{
			name:      "game-end to thanks",
			phase:     models.PhaseGameEnd,
			in:        AdvanceInput{Now: now, TotalRounds: 2, QuestionsInRound: 3},
			wantPhase: models.PhaseThanks,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Advance(liveSession(tc.phase), tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPhase, res.Session.Phase)
		})
	}
}

func TestAdvanceRequiresInProgress(t *testing.T) {
	now := time.Now()
	s := liveSession(models.PhaseGameStart)
	s.Status = models.GameStatusReady

	_, err := Advance(s, AdvanceInput{Now: now})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRoundPlayBlocksUntilExpiryOrAllAnswered(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	s := liveSession(models.PhaseRoundPlay)
	s.Timer = StartTimer(now, 30)

	// Timer running, one of two teams answered: blocked.
	_, err := Advance(s, AdvanceInput{
		Now: now.Add(5 * time.Second), TeamsExpected: 2, AnswersSubmitted: 1,
		TotalRounds: 1, QuestionsInRound: 1,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// Timer expired: allowed even with missing answers.
	res, err := Advance(s, AdvanceInput{
		Now: now.Add(31 * time.Second), TeamsExpected: 2, AnswersSubmitted: 1,
		TotalRounds: 1, QuestionsInRound: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRoundEnd, res.Session.Phase)
	assert.False(t, res.EarlyAdvance)
}

func TestRoundPlayEarlyAdvanceWhenAllTeamsAnswered(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	s := liveSession(models.PhaseRoundPlay)
	s.Timer = StartTimer(now, 30)

	res, err := Advance(s, AdvanceInput{
		Now: now.Add(10 * time.Second), TeamsExpected: 2, AnswersSubmitted: 2,
		TotalRounds: 1, QuestionsInRound: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRoundEnd, res.Session.Phase)
	assert.True(t, res.EarlyAdvance, "all answered before expiry flags the early advance")
	assert.True(t, res.NeedsScoreboard)
}

func TestRoundPlayIteratesQuestionsBeforeRoundEnd(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	s := liveSession(models.PhaseRoundPlay)
	s.Timer = StartTimer(now, 30)

	res, err := Advance(s, AdvanceInput{
		Now: now.Add(31 * time.Second), TeamsExpected: 1, AnswersSubmitted: 0,
		TotalRounds: 1, QuestionsInRound: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRoundPlay, res.Session.Phase)
	assert.Equal(t, 1, res.Session.CurrentQuestion)
	require.NotNil(t, res.Session.Timer, "each question restarts the countdown")
	assert.True(t, res.TimerStarted)
	assert.False(t, res.NeedsScoreboard)
}

func TestRoundEndLoopsWhileRoundsRemain(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	s := liveSession(models.PhaseRoundEnd)
	res, err := Advance(s, AdvanceInput{Now: now, TotalRounds: 3, QuestionsInRound: 2})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRoundStart, res.Session.Phase)
	assert.Equal(t, 1, res.Session.CurrentRound)
	assert.Equal(t, 0, res.Session.CurrentQuestion)

	// Last round: round-end goes to game-end instead.
	last := liveSession(models.PhaseRoundEnd)
	last.CurrentRound = 2
	res, err = Advance(last, AdvanceInput{Now: now, TotalRounds: 3, QuestionsInRound: 2})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseGameEnd, res.Session.Phase)
	assert.True(t, res.NeedsScoreboard)
}

func TestAdvanceThanksCompletesSession(t *testing.T) {
	now := time.Now()
	res, err := Advance(liveSession(models.PhaseThanks), AdvanceInput{Now: now})
	require.NoError(t, err)
	assert.Equal(t, models.PhaseReturnToLobby, res.Session.Phase)
	assert.Equal(t, models.GameStatusCompleted, res.Session.Status)
	assert.Nil(t, res.Session.Timer)

	_, err = Advance(res.Session, AdvanceInput{Now: now})
	assert.ErrorIs(t, err, ErrInvalidTransition, "return-to-lobby has no successor")
}

func TestTimerPolicyPerPhase(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	s := liveSession(models.PhaseRoundStart)
	s.Settings = models.GameSettings{RoundPlayTimerSec: 45, RoundStartTimerSec: 10}

	res, err := Advance(s, AdvanceInput{Now: now, TotalRounds: 1, QuestionsInRound: 1})
	require.NoError(t, err)
	require.NotNil(t, res.Session.Timer)
	assert.Equal(t, 45, res.Session.Timer.DurationSec)
	assert.Equal(t, now.Add(45*time.Second), res.Session.Timer.ExpiresAt)

	// Entering game-end without a configured countdown clears the timer.
	end := liveSession(models.PhaseRoundEnd)
	end.Timer = StartTimer(now, 10)
	res, err = Advance(end, AdvanceInput{Now: now, TotalRounds: 1, QuestionsInRound: 1})
	require.NoError(t, err)
	assert.Nil(t, res.Session.Timer)
}

func TestGoBackOnlyFromRoundPlay(t *testing.T) {
	now := time.Now()

	s := liveSession(models.PhaseRoundPlay)
	s.CurrentQuestion = 2
	prev, err := GoBack(s, now)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseRoundStart, prev.Phase)
	assert.Equal(t, s.CurrentRound, prev.CurrentRound, "go back stays in the same round")
	assert.Equal(t, 0, prev.CurrentQuestion)

	for _, phase := range []models.GamePhase{
		models.PhaseGameStart, models.PhaseRoundStart, models.PhaseRoundEnd,
		models.PhaseGameEnd, models.PhaseThanks,
	} {
		orig := liveSession(phase)
		got, err := GoBack(orig, now)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, orig, got, "failed go-back leaves the session unchanged")
	}
}
