package session

import (
	"fmt"
	"sort"

	"github.com/jmrtn/partybot/internal/models"
)

// ComputeLeaderboard groups players by equal score, ordered by descending
// score. Players within a group keep their relative roster order. The result
// is derived on demand and never stored.
func ComputeLeaderboard(players []*models.Player) [][]*models.Player {
	ordered := make([]*models.Player, len(players))
	copy(ordered, players)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	var groups [][]*models.Player
	for _, p := range ordered {
		if n := len(groups); n > 0 && groups[n-1][0].Score == p.Score {
			groups[n-1] = append(groups[n-1], p)
			continue
		}
		groups = append(groups, []*models.Player{p})
	}
	return groups
}

// Rank returns the player's ordinal placement ("1st", "2nd", ...) and how
// many other players share the same score.
func Rank(players []*models.Player, userID string) (string, int) {
	groups := ComputeLeaderboard(players)
	for i, group := range groups {
		for _, p := range group {
			if p.UserID == userID {
				return ordinal(i + 1), len(group) - 1
			}
		}
	}
	return "", 0
}

func ordinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
