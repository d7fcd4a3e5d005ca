// Package chess adapts a full chess game to the lifecycle engine. Rules,
// legality and outcome detection come from notnil/chess; this package only
// maps players to colors and moves to the adapter contract.
package chess

import (
	"fmt"
	"math/rand"
	"time"

	lib "github.com/notnil/chess"

	"github.com/jmrtn/partybot/internal/models"
	"github.com/jmrtn/partybot/internal/session"
)

type Chess struct {
	rng  *rand.Rand
	game *lib.Game

	// ids are the two seated players. Colors are assigned lazily: whoever
	// the engine hands the opening turn of a round plays white, so the
	// board always agrees with the turn order.
	ids     [2]string
	whiteID string
	blackID string

	// resignedBy holds the loser's ID when a round ends by resignation,
	// which the library's Outcome cannot represent by itself.
	resignedBy string
}

func New() *Chess {
	return &Chess{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (c *Chess) Kind() models.GameKind  { return models.GameChess }
func (c *Chess) Mode() session.PlayMode { return session.ModeTurnBased }

// FEN exposes the current position for board rendering.
func (c *Chess) FEN() string { return c.game.Position().String() }

func (c *Chess) DealInitial(players []*models.Player) {
	c.ids[0] = players[0].UserID
	if len(players) > 1 {
		c.ids[1] = players[1].UserID
	}
	c.resetBoard()
}

func (c *Chess) BeginRound(players []*models.Player) {
	c.resetBoard()
}

func (c *Chess) resetBoard() {
	c.game = lib.NewGame()
	c.resignedBy = ""
	c.whiteID, c.blackID = "", ""
}

// claimColors seats the round's first actor as white.
func (c *Chess) claimColors(p *models.Player) {
	if c.whiteID != "" {
		return
	}
	c.whiteID = p.UserID
	if c.ids[0] == p.UserID {
		c.blackID = c.ids[1]
	} else {
		c.blackID = c.ids[0]
	}
}

func (c *Chess) ValidateMove(p *models.Player, mv models.Move) error {
	switch mv.Verb {
	case models.VerbResign:
		return nil
	case models.VerbPlay:
		if _, err := c.decode(mv.Declare); err != nil {
			return fmt.Errorf("%w: %s", session.ErrIllegalMove, mv.Declare)
		}
		return nil
	default:
		return session.ErrIllegalMove
	}
}

func (c *Chess) ApplyMove(p *models.Player, mv models.Move) (session.TurnEffect, error) {
	c.claimColors(p)
	if mv.Verb == models.VerbResign {
		c.resignedBy = p.UserID
		return session.TurnEffect{RoundOver: true}, nil
	}
	m, err := c.decode(mv.Declare)
	if err != nil {
		return session.TurnEffect{}, fmt.Errorf("%w: %s", session.ErrIllegalMove, mv.Declare)
	}
	if err := c.game.Move(m); err != nil {
		return session.TurnEffect{}, fmt.Errorf("%w: %s", session.ErrIllegalMove, mv.Declare)
	}
	if c.game.Outcome() != lib.NoOutcome {
		return session.TurnEffect{RoundOver: true}, nil
	}
	return session.TurnEffect{Advance: 1}, nil
}

// ForcedMove plays a uniformly random legal move, or resigns when the
// position somehow offers none.
func (c *Chess) ForcedMove(p *models.Player) session.TurnEffect {
	c.claimColors(p)
	moves := c.game.ValidMoves()
	if len(moves) == 0 {
		c.resignedBy = p.UserID
		return session.TurnEffect{RoundOver: true}
	}
	if err := c.game.Move(moves[c.rng.Intn(len(moves))]); err != nil {
		c.resignedBy = p.UserID
		return session.TurnEffect{RoundOver: true}
	}
	if c.game.Outcome() != lib.NoOutcome {
		return session.TurnEffect{RoundOver: true}
	}
	return session.TurnEffect{Advance: 1}
}

func (c *Chess) DealPenalty(p *models.Player, n int) {}

func (c *Chess) CollectVote(voter *models.Player, candidateID string) error {
	return session.ErrIllegalMove
}

func (c *Chess) ForcedVote(voter *models.Player) {}

func (c *Chess) ResolveRound(players []*models.Player) (string, int) {
	if c.resignedBy != "" {
		if c.resignedBy == c.whiteID {
			return c.blackID, 1
		}
		return c.whiteID, 1
	}
	switch c.game.Outcome() {
	case lib.WhiteWon:
		return c.whiteID, 1
	case lib.BlackWon:
		return c.blackID, 1
	default:
		return "", 0
	}
}

func (c *Chess) decode(san string) (*lib.Move, error) {
	return lib.AlgebraicNotation{}.Decode(c.game.Position(), san)
}
