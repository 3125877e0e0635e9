package game

import (
	"github.com/google/uuid"

	"trivia-party/internal/models"
)

// JoinDecision is the admission controller's verdict on a join request.
type JoinDecision struct {
	Admit bool
	// TeamID is set for a registered player rejoining an in-progress game;
	// they resume on their previously selected team with no team-selection
	// step.
	TeamID *uuid.UUID
	// Rejoining reports that the player already holds a membership and the
	// caller must not create another.
	Rejoining bool
	Reason    error
}

// EvaluateJoin decides whether a player may (re)join the session.
// membership is the player's existing record for this session, nil if they
// have never joined.
//
// Completed sessions reject everyone; setup/ready sessions admit anyone;
// in-progress sessions admit only previously registered players.
func EvaluateJoin(s models.Session, membership *models.Membership) JoinDecision {
	switch s.Status {
	case models.GameStatusCompleted:
		return JoinDecision{Reason: ErrGameEnded}
	case models.GameStatusSetup, models.GameStatusReady:
		if membership != nil {
			return JoinDecision{Admit: true, Rejoining: true, TeamID: membership.TeamID}
		}
		return JoinDecision{Admit: true}
	case models.GameStatusInProgress:
		if membership == nil {
			return JoinDecision{Reason: ErrGameInProgress}
		}
		return JoinDecision{Admit: true, Rejoining: true, TeamID: membership.TeamID}
	default:
		return JoinDecision{Reason: ErrGameInProgress}
	}
}
