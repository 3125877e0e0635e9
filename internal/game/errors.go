package game

import "errors"

var (
	// ErrInvalidTransition is returned when a phase command's preconditions
	// do not hold. Terminal for the triggering request.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrGameInProgress rejects a join from a player with no prior
	// membership once the session is in progress.
	ErrGameInProgress = errors.New("game already in progress")

	// ErrGameEnded rejects any join attempt on a completed session.
	ErrGameEnded = errors.New("game has ended")

	// ErrScoringUnavailable blocks transitions that depend on final scores
	// when the answer-key oracle cannot be reached.
	ErrScoringUnavailable = errors.New("scoring unavailable")

	// ErrConflict is returned when an optimistic save loses the version
	// race. Callers reload and reapply, bounded.
	ErrConflict = errors.New("version conflict")

	// ErrNotFound is returned when a lookup matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrNotHost rejects session commands from anyone but the host, the
	// single writer for phase and timer state.
	ErrNotHost = errors.New("caller is not the session host")
)
