package session

import (
	"math/rand"

	"github.com/jmrtn/partybot/internal/models"
)

// Roster is the ordered collection of players in a session. Iteration order
// is insertion order unless Shuffle is called (once, at game start). Removal
// preserves the relative order of the remaining players.
type Roster struct {
	players []*models.Player
	index   map[string]int
}

func NewRoster() *Roster {
	return &Roster{index: make(map[string]int)}
}

func (r *Roster) Len() int { return len(r.players) }

// Append adds a player at the end of the turn order.
func (r *Roster) Append(p *models.Player) {
	r.index[p.UserID] = len(r.players)
	r.players = append(r.players, p)
}

// Remove deletes the player with the given user ID, reporting whether it was
// present.
func (r *Roster) Remove(userID string) bool {
	i, ok := r.index[userID]
	if !ok {
		return false
	}
	r.players = append(r.players[:i], r.players[i+1:]...)
	delete(r.index, userID)
	for j := i; j < len(r.players); j++ {
		r.index[r.players[j].UserID] = j
	}
	return true
}

// Find returns the player with the given user ID, or nil.
func (r *Roster) Find(userID string) *models.Player {
	if i, ok := r.index[userID]; ok {
		return r.players[i]
	}
	return nil
}

// At returns the player at position i in turn order.
func (r *Roster) At(i int) *models.Player { return r.players[i] }

// Players returns a copy of the ordered player slice.
func (r *Roster) Players() []*models.Player {
	out := make([]*models.Player, len(r.players))
	copy(out, r.players)
	return out
}

// Walk traverses the circular turn order from a given player, skipping no
// one. With reversed=true the traversal runs backwards. A two-player roster
// degenerates so that one reversed step still lands on the other player.
func (r *Roster) Walk(from *models.Player, steps int, reversed bool) *models.Player {
	n := len(r.players)
	if n == 0 {
		return nil
	}
	i, ok := r.index[from.UserID]
	if !ok {
		return r.players[0]
	}
	if reversed {
		steps = -steps
	}
	i = ((i+steps)%n + n) % n
	return r.players[i]
}

// Shuffle randomizes the turn order. Called at most once, when the game
// starts; rounds never re-shuffle.
func (r *Roster) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(r.players), func(i, j int) {
		r.players[i], r.players[j] = r.players[j], r.players[i]
	})
	for i, p := range r.players {
		r.index[p.UserID] = i
	}
}
