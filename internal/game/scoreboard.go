package game

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"trivia-party/internal/models"
)

// RecomputeScoreboard rebuilds the scoreboard from scratch out of the
// current roster and the full answer set, the same way the durable store's
// scoreboard is rebuilt on roster changes. It is deterministic and
// idempotent: the same multiset of answers yields the same scoreboard
// regardless of event order, so retries after partial failures are safe.
//
// roundByQuestion maps a question to its round number for the per-round
// breakdown. Teams with zero players stay in the map; ranking views filter
// them out (see Standings).
func RecomputeScoreboard(now time.Time, teams []models.Team, members []models.Membership, answers []models.AnswerEvent, roundByQuestion map[uuid.UUID]int) models.Scoreboard {
	sb := models.NewScoreboard()
	for _, t := range teams {
		sb.Teams[t.ID.String()] = models.TeamScore{Name: t.Name, Players: []models.PlayerInfo{}}
	}

	sorted := make([]models.Membership, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PlayerID.String() < sorted[j].PlayerID.String()
	})
	for _, m := range sorted {
		key := models.NoTeamID
		if m.TeamID != nil {
			key = m.TeamID.String()
		}
		entry, ok := sb.Teams[key]
		if !ok {
			// Membership pointing at a team the roster no longer has;
			// bucket with the unassigned players.
			key = models.NoTeamID
			entry = sb.Teams[key]
		}
		entry.Players = append(entry.Players, models.PlayerInfo{ID: m.PlayerID, Name: m.PlayerName})
		sb.Teams[key] = entry
	}

	for _, a := range answers {
		if !a.IsCorrect {
			continue
		}
		key := a.TeamID.String()
		entry, ok := sb.Teams[key]
		if !ok {
			continue
		}
		entry.Score++
		if round, ok := roundByQuestion[a.QuestionID]; ok {
			if entry.RoundScores == nil {
				entry.RoundScores = make(map[string]int)
			}
			entry.RoundScores[strconv.Itoa(round)]++
		}
		sb.Teams[key] = entry
	}

	sb.Updated = now
	return sb
}

// Standing is one row of the final ranking.
type Standing struct {
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Rank   int    `json:"rank"`
}

// Standings ranks teams by descending score, breaking ties by team
// creation order. Teams with no players and the no-team bucket are
// excluded; that is a presentation filter, the scoreboard itself keeps
// them.
func Standings(sb models.Scoreboard, creationOrder []uuid.UUID) []Standing {
	pos := make(map[string]int, len(creationOrder))
	for i, id := range creationOrder {
		pos[id.String()] = i
	}

	var out []Standing
	for id, team := range sb.Teams {
		if id == models.NoTeamID || len(team.Players) == 0 {
			continue
		}
		out = append(out, Standing{TeamID: id, Name: team.Name, Score: team.Score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return pos[out[i].TeamID] < pos[out[j].TeamID]
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
