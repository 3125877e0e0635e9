package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trivia-party/internal/models"
)

func teamID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func TestRecomputeScoreboardIsOrderIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	sessionID := uuid.New()
	teamA := models.Team{ID: uuid.New(), SessionID: sessionID, Name: "Alpha"}
	teamB := models.Team{ID: uuid.New(), SessionID: sessionID, Name: "Bravo"}
	q1, q2 := uuid.New(), uuid.New()
	rounds := map[uuid.UUID]int{q1: 1, q2: 2}

	p1, p2 := uuid.New(), uuid.New()
	members := []models.Membership{
		{SessionID: sessionID, PlayerID: p1, PlayerName: "dana", TeamID: &teamA.ID},
		{SessionID: sessionID, PlayerID: p2, PlayerName: "kim", TeamID: &teamB.ID},
	}

	answers := []models.AnswerEvent{
		{QuestionID: q1, TeamID: teamA.ID, IsCorrect: true},
		{QuestionID: q2, TeamID: teamA.ID, IsCorrect: true},
		{QuestionID: q1, TeamID: teamB.ID, IsCorrect: false},
		{QuestionID: q2, TeamID: teamB.ID, IsCorrect: true},
	}
	reversed := []models.AnswerEvent{answers[3], answers[2], answers[1], answers[0]}

	first := RecomputeScoreboard(now, []models.Team{teamA, teamB}, members, answers, rounds)
	second := RecomputeScoreboard(now, []models.Team{teamA, teamB}, members, reversed, rounds)
	assert.Equal(t, first, second)

	a := first.Teams[teamA.ID.String()]
	assert.Equal(t, 2, a.Score)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, a.RoundScores)

	b := first.Teams[teamB.ID.String()]
	assert.Equal(t, 1, b.Score)
	assert.Equal(t, map[string]int{"2": 1}, b.RoundScores)
}

func TestRecomputeScoreboardKeepsEmptyTeamsAndNoTeamBucket(t *testing.T) {
	now := time.Now()
	empty := models.Team{ID: uuid.New(), Name: "Ghosts"}
	solo := uuid.New()
	members := []models.Membership{
		{PlayerID: solo, PlayerName: "lee"}, // no team yet
	}

	sb := RecomputeScoreboard(now, []models.Team{empty}, members, nil, nil)

	require.Contains(t, sb.Teams, empty.ID.String())
	assert.Empty(t, sb.Teams[empty.ID.String()].Players)

	require.Contains(t, sb.Teams, models.NoTeamID)
	require.Len(t, sb.Teams[models.NoTeamID].Players, 1)
	assert.Equal(t, "lee", sb.Teams[models.NoTeamID].Players[0].Name)
}

func TestStandingsRankingAndFilter(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	order := []uuid.UUID{a, b, c}

	sb := models.Scoreboard{Teams: map[string]models.TeamScore{
		a.String():      {Name: "Alpha", Score: 3, Players: []models.PlayerInfo{{ID: uuid.New()}}},
		b.String():      {Name: "Bravo", Score: 5, Players: []models.PlayerInfo{{ID: uuid.New()}}},
		c.String():      {Name: "Charlie", Score: 3, Players: []models.PlayerInfo{{ID: uuid.New()}}},
		uuid.NewString(): {Name: "Empty", Score: 9},
		models.NoTeamID: {Name: "No Team", Players: []models.PlayerInfo{{ID: uuid.New()}}},
	}}

	got := Standings(sb, order)
	require.Len(t, got, 3, "zero-player teams and the no-team bucket are excluded")
	assert.Equal(t, "Bravo", got[0].Name)
	assert.Equal(t, 1, got[0].Rank)
	// Alpha and Charlie tie on score; creation order breaks the tie.
	assert.Equal(t, "Alpha", got[1].Name)
	assert.Equal(t, "Charlie", got[2].Name)
}
