// Package rps implements rock-paper-scissors: one hidden throw per player
// per round, resolved simultaneously.
package rps

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jmrtn/partybot/internal/models"
	"github.com/jmrtn/partybot/internal/session"
)

var throws = []string{"rock", "paper", "scissors"}

// beats[a] is the throw a defeats.
var beats = map[string]string{
	"rock":     "scissors",
	"paper":    "rock",
	"scissors": "paper",
}

type RPS struct {
	rng    *rand.Rand
	thrown map[string]string // userID -> throw
}

func New() *RPS {
	return &RPS{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		thrown: make(map[string]string),
	}
}

func (g *RPS) Kind() models.GameKind  { return models.GameRPS }
func (g *RPS) Mode() session.PlayMode { return session.ModeSimultaneous }

func (g *RPS) DealInitial(players []*models.Player) {}

func (g *RPS) BeginRound(players []*models.Player) {
	g.thrown = make(map[string]string)
}

func (g *RPS) ValidateMove(p *models.Player, mv models.Move) error {
	if mv.Verb != models.VerbPlay {
		return session.ErrIllegalMove
	}
	if _, ok := beats[strings.ToLower(mv.Declare)]; !ok {
		return fmt.Errorf("%w: throw rock, paper or scissors", session.ErrIllegalMove)
	}
	return nil
}

func (g *RPS) ApplyMove(p *models.Player, mv models.Move) (session.TurnEffect, error) {
	g.thrown[p.UserID] = strings.ToLower(mv.Declare)
	p.Submission = g.thrown[p.UserID]
	return session.TurnEffect{}, nil
}

// ForcedMove throws uniformly at random.
func (g *RPS) ForcedMove(p *models.Player) session.TurnEffect {
	g.thrown[p.UserID] = throws[g.rng.Intn(len(throws))]
	p.Submission = g.thrown[p.UserID]
	return session.TurnEffect{}
}

func (g *RPS) DealPenalty(p *models.Player, n int) {}

func (g *RPS) CollectVote(voter *models.Player, candidateID string) error {
	return session.ErrIllegalMove
}

func (g *RPS) ForcedVote(voter *models.Player) {}

// ResolveRound compares the two throws. Identical throws draw the round.
func (g *RPS) ResolveRound(players []*models.Player) (string, int) {
	if len(players) != 2 {
		return "", 0
	}
	a, b := players[0], players[1]
	ta, tb := g.thrown[a.UserID], g.thrown[b.UserID]
	switch {
	case ta == tb:
		return "", 0
	case beats[ta] == tb:
		return a.UserID, 1
	default:
		return b.UserID, 1
	}
}
