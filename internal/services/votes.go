package services

import (
	"sort"

	"imposter-game-backend/internal/models"
)

// TallyEntry is the vote count of one target.
type TallyEntry struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Seat     int    `json:"seat"`
	Votes    int    `json:"votes"`
}

// TallyVotes counts votes per target, ordered by count descending and then by
// seat ascending. Ties at the top therefore resolve to the earliest joiner.
func TallyVotes(votes []models.Vote, players []models.Player) []TallyEntry {
	counts := make(map[string]int)
	for _, v := range votes {
		counts[v.TargetID]++
	}

	entries := make([]TallyEntry, 0, len(counts))
	for _, p := range players {
		if c, ok := counts[p.ID]; ok {
			entries = append(entries, TallyEntry{PlayerID: p.ID, Name: p.Name, Seat: p.Seat, Votes: c})
		}
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].Votes != entries[b].Votes {
			return entries[a].Votes > entries[b].Votes
		}
		return entries[a].Seat < entries[b].Seat
	})
	return entries
}

// pickEliminated returns the alive player with the most votes received,
// lowest seat on ties. It reports false when nobody alive holds a vote.
func pickEliminated(players []models.Player) (models.Player, bool) {
	var best models.Player
	found := false
	for _, p := range players {
		if !p.Alive || p.VotesReceived == 0 {
			continue
		}
		if !found || p.VotesReceived > best.VotesReceived ||
			(p.VotesReceived == best.VotesReceived && p.Seat < best.Seat) {
			best = p
			found = true
		}
	}
	return best, found
}

// evaluateWinner applies the win rules to the roster after an elimination.
// It returns "" while the game goes on.
func evaluateWinner(players []models.Player) string {
	imposters, civilians := 0, 0
	for _, p := range players {
		if !p.Alive {
			continue
		}
		switch p.Role {
		case models.RoleImposter:
			imposters++
		case models.RoleCivilian:
			civilians++
		}
	}
	switch {
	case imposters == 0:
		return models.WinnerCivilians
	case civilians <= 1:
		return models.WinnerImposter
	default:
		return ""
	}
}
