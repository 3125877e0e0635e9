package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-party/internal/models"
)

func TestEvaluateJoin(t *testing.T) {
	team := uuid.New()
	member := &models.Membership{PlayerID: uuid.New(), TeamID: &team}

	cases := []struct {
		name       string
		status     models.GameStatus
		membership *models.Membership
		wantAdmit  bool
		wantReason error
	}{
		{
			name:      "setup admits anyone",
			status:    models.GameStatusSetup,
			wantAdmit: true,
		},
		{
			name:      "ready admits anyone",
			status:    models.GameStatusReady,
			wantAdmit: true,
		},
		{
			name:       "in-progress rejects unknown player",
			status:     models.GameStatusInProgress,
			wantReason: ErrGameInProgress,
		},
		{
			name:       "in-progress admits registered player",
			status:     models.GameStatusInProgress,
			membership: member,
			wantAdmit:  true,
		},
		{
			name:       "completed rejects everyone",
			status:     models.GameStatusCompleted,
			membership: member,
			wantReason: ErrGameEnded,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := EvaluateJoin(models.Session{Status: tc.status}, tc.membership)
			assert.Equal(t, tc.wantAdmit, d.Admit)
			if tc.wantReason != nil {
				assert.ErrorIs(t, d.Reason, tc.wantReason)
			}
		})
	}
}

func TestRejoinInProgressRoutesToExistingTeam(t *testing.T) {
	// A player who joined while the session was ready rejoins mid-game and
	// lands on their previously selected team with no team-selection step.
	team := uuid.New()
	player := uuid.New()

	ready := models.Session{Status: models.GameStatusReady}
	first := EvaluateJoin(ready, nil)
	require.True(t, first.Admit)
	assert.False(t, first.Rejoining)
	assert.Nil(t, first.TeamID, "caller proceeds to team selection")

	live := models.Session{Status: models.GameStatusInProgress}
	rejoin := EvaluateJoin(live, &models.Membership{PlayerID: player, TeamID: &team})
	require.True(t, rejoin.Admit)
	assert.True(t, rejoin.Rejoining)
	require.NotNil(t, rejoin.TeamID)
	assert.Equal(t, team, *rejoin.TeamID)
}
