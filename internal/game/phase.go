package game

import (
	"time"

	"trivia-party/internal/models"
)

// validTransitions is the forward adjacency of the game flow. The only
// backward edge, round-play -> round-start, is owned by GoBack.
var validTransitions = map[models.GamePhase][]models.GamePhase{
	models.PhaseGameStart:  {models.PhaseRoundStart},
	models.PhaseRoundStart: {models.PhaseRoundPlay},
	models.PhaseRoundPlay:  {models.PhaseRoundPlay, models.PhaseRoundEnd},
	models.PhaseRoundEnd:   {models.PhaseRoundStart, models.PhaseGameEnd},
	models.PhaseGameEnd:    {models.PhaseThanks},
	models.PhaseThanks:     {models.PhaseReturnToLobby},
}

// CanTransition reports whether current may move forward to target.
func CanTransition(current, target models.GamePhase) bool {
	for _, p := range validTransitions[current] {
		if p == target {
			return true
		}
	}
	return false
}

// Start flips a ready session to in-progress at the game-start phase.
func Start(s models.Session, now time.Time) (models.Session, error) {
	if s.Status != models.GameStatusReady {
		return s, ErrInvalidTransition
	}
	started := s
	started.Status = models.GameStatusInProgress
	started.Phase = models.PhaseGameStart
	started.CurrentRound = 0
	started.CurrentQuestion = 0
	applyTimerPolicy(&started, now)
	started.UpdatedAt = now
	return started, nil
}

// End force-completes a session from any live state, clearing the timer so
// no further deadline fires.
func End(s models.Session, now time.Time) (models.Session, error) {
	if s.Status == models.GameStatusCompleted {
		return s, ErrGameEnded
	}
	ended := s
	ended.Status = models.GameStatusCompleted
	ended.Timer = nil
	ended.UpdatedAt = now
	return ended, nil
}

// AdvanceInput carries the collaborator-supplied facts a transition may
// depend on. The machine itself never does I/O.
type AdvanceInput struct {
	Now time.Time
	// TeamsExpected is the number of teams with at least one player.
	TeamsExpected int
	// AnswersSubmitted is the number of answers recorded for the active
	// question.
	AnswersSubmitted int
	// TotalRounds and QuestionsInRound describe the session content.
	TotalRounds      int
	QuestionsInRound int
}

// AdvanceResult is the outcome of a successful transition.
type AdvanceResult struct {
	Session models.Session
	// NeedsScoreboard is set when the new phase presents standings; the
	// caller must recompute and persist the scoreboard together with the
	// phase, and abort the whole advance if recomputation fails.
	NeedsScoreboard bool
	// TimerStarted is set when the new phase begins a countdown.
	TimerStarted bool
	// EarlyAdvance is set when the exited countdown was cut short because
	// all expected teams had answered.
	EarlyAdvance bool
}

func allAnswered(in AdvanceInput) bool {
	return in.TeamsExpected > 0 && in.AnswersSubmitted >= in.TeamsExpected
}

// Advance moves the session to the designated successor of its current
// phase, starting or clearing the timer per the per-phase policy.
//
// Within round-play, advancing before the round's last question moves to
// the next question of the same round with a fresh countdown; the phase
// value itself never skips a step.
func Advance(s models.Session, in AdvanceInput) (AdvanceResult, error) {
	if s.Status != models.GameStatusInProgress {
		return AdvanceResult{}, ErrInvalidTransition
	}

	res := AdvanceResult{Session: s}
	next := &res.Session

	switch s.Phase {
	case models.PhaseGameStart:
		next.Phase = models.PhaseRoundStart

	case models.PhaseRoundStart:
		next.Phase = models.PhaseRoundPlay

	case models.PhaseRoundPlay:
		_, expired := EvaluateTimer(in.Now, s.Timer)
		hasTimer := s.Timer != nil
		if hasTimer && !expired && !allAnswered(in) {
			return AdvanceResult{}, ErrInvalidTransition
		}
		if s.Timer != nil && s.Timer.IsEarlyAdvance {
			res.EarlyAdvance = true
		} else if !expired && allAnswered(in) {
			res.EarlyAdvance = true
		}
		if s.CurrentQuestion+1 < in.QuestionsInRound {
			next.Phase = models.PhaseRoundPlay
			next.CurrentQuestion = s.CurrentQuestion + 1
		} else {
			next.Phase = models.PhaseRoundEnd
			res.NeedsScoreboard = true
		}

	case models.PhaseRoundEnd:
		if s.CurrentRound+1 < in.TotalRounds {
			next.Phase = models.PhaseRoundStart
			next.CurrentRound = s.CurrentRound + 1
			next.CurrentQuestion = 0
		} else {
			next.Phase = models.PhaseGameEnd
			res.NeedsScoreboard = true
		}

	case models.PhaseGameEnd:
		next.Phase = models.PhaseThanks

	case models.PhaseThanks:
		next.Phase = models.PhaseReturnToLobby
		next.Status = models.GameStatusCompleted

	default:
		return AdvanceResult{}, ErrInvalidTransition
	}

	applyTimerPolicy(next, in.Now)
	res.TimerStarted = next.Timer != nil
	next.UpdatedAt = in.Now
	return res, nil
}

// GoBack is the host's correction for a premature advance: round-play
// returns to round-start of the same round. Any other phase fails.
func GoBack(s models.Session, now time.Time) (models.Session, error) {
	if s.Status != models.GameStatusInProgress || s.Phase != models.PhaseRoundPlay {
		return s, ErrInvalidTransition
	}
	prev := s
	prev.Phase = models.PhaseRoundStart
	prev.CurrentQuestion = 0
	applyTimerPolicy(&prev, now)
	prev.UpdatedAt = now
	return prev, nil
}

// phaseDuration returns the configured countdown for a phase, zero meaning
// no timer.
func phaseDuration(phase models.GamePhase, settings models.GameSettings) int {
	switch phase {
	case models.PhaseGameStart:
		return settings.GameStartTimerSec
	case models.PhaseRoundStart:
		return settings.RoundStartTimerSec
	case models.PhaseRoundPlay:
		return settings.RoundPlayTimerSec
	case models.PhaseRoundEnd:
		return settings.RoundEndTimerSec
	case models.PhaseGameEnd:
		return settings.GameEndTimerSec
	default:
		return 0
	}
}

func applyTimerPolicy(s *models.Session, now time.Time) {
	if d := phaseDuration(s.Phase, s.Settings); d > 0 {
		s.Timer = StartTimer(now, d)
	} else {
		s.Timer = nil
	}
}
