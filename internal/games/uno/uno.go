// Package uno implements the UNO card rules behind the lifecycle engine's
// adapter contract: hand management, the discard-matching rule, action card
// effects and the end-of-round scoring.
package uno

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jmrtn/partybot/internal/models"
	"github.com/jmrtn/partybot/internal/session"
)

// Card tokens are "<color><rank>": "R5", "GS" (skip), "BR" (reverse),
// "YD2" (draw two), and the colorless wilds "W" and "WD4". The engine
// treats them as opaque strings.

const (
	handSize    = 7
	wildValue   = 50
	actionValue = 20
)

var colors = []string{"R", "G", "B", "Y"}

type Uno struct {
	rng     *rand.Rand
	deck    []string
	discard []string

	// top and color are the live matching state. color differs from the
	// top card's own color after a wild is played.
	top   string
	color string
}

func New() *Uno {
	return &Uno{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (u *Uno) Kind() models.GameKind  { return models.GameUNO }
func (u *Uno) Mode() session.PlayMode { return session.ModeTurnBased }

func (u *Uno) DealInitial(players []*models.Player) {
	u.deal(players)
}

func (u *Uno) BeginRound(players []*models.Player) {
	u.deal(players)
}

func (u *Uno) deal(players []*models.Player) {
	u.deck = buildDeck()
	u.rng.Shuffle(len(u.deck), func(i, j int) {
		u.deck[i], u.deck[j] = u.deck[j], u.deck[i]
	})
	u.discard = nil
	for _, p := range players {
		p.Hand = nil
		for i := 0; i < handSize; i++ {
			p.Hand = append(p.Hand, u.drawCard())
		}
	}
	// The opening discard must be a plain number card.
	for {
		c := u.drawCard()
		if isNumber(c) {
			u.top, u.color = c, cardColor(c)
			u.discard = append(u.discard, c)
			break
		}
		u.deck = append(u.deck, c)
		u.rng.Shuffle(len(u.deck), func(i, j int) {
			u.deck[i], u.deck[j] = u.deck[j], u.deck[i]
		})
	}
}

func (u *Uno) ValidateMove(p *models.Player, mv models.Move) error {
	switch mv.Verb {
	case models.VerbDraw:
		return nil
	case models.VerbPlay:
		if len(mv.CardIndexes) != 1 {
			return session.ErrIllegalMove
		}
		i := mv.CardIndexes[0]
		if i < 0 || i >= len(p.Hand) {
			return session.ErrIllegalMove
		}
		card := p.Hand[i]
		if !u.playable(card) {
			return session.ErrIllegalMove
		}
		if isWild(card) && !validColor(mv.Declare) {
			return fmt.Errorf("%w: wild needs a declared color", session.ErrIllegalMove)
		}
		return nil
	default:
		return session.ErrIllegalMove
	}
}

func (u *Uno) ApplyMove(p *models.Player, mv models.Move) (session.TurnEffect, error) {
	if mv.Verb == models.VerbDraw {
		p.Hand = append(p.Hand, u.drawCard())
		return session.TurnEffect{Advance: 1}, nil
	}

	i := mv.CardIndexes[0]
	card := p.Hand[i]
	p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
	u.discard = append(u.discard, card)
	u.top = card
	if isWild(card) {
		u.color = strings.ToUpper(mv.Declare)
	} else {
		u.color = cardColor(card)
	}

	if len(p.Hand) == 0 {
		return session.TurnEffect{RoundOver: true}, nil
	}

	effect := session.TurnEffect{Advance: 1}
	switch rank(card) {
	case "S":
		effect.Advance = 2
	case "R":
		effect.Reverse = true
	case "D2":
		effect.NextDraws = 2
		effect.Advance = 2
	case "D4":
		effect.NextDraws = 4
		effect.Advance = 2
	}
	return effect, nil
}

// ForcedMove plays the timeout default: draw a single card and pass.
func (u *Uno) ForcedMove(p *models.Player) session.TurnEffect {
	p.Hand = append(p.Hand, u.drawCard())
	return session.TurnEffect{Advance: 1}
}

func (u *Uno) DealPenalty(p *models.Player, n int) {
	for i := 0; i < n; i++ {
		p.Hand = append(p.Hand, u.drawCard())
	}
}

func (u *Uno) CollectVote(voter *models.Player, candidateID string) error {
	return session.ErrIllegalMove
}

func (u *Uno) ForcedVote(voter *models.Player) {}

// ResolveRound awards the emptied-hand player the sum of every opponent's
// remaining card values, never less than one point.
func (u *Uno) ResolveRound(players []*models.Player) (string, int) {
	var winner *models.Player
	total := 0
	for _, p := range players {
		if len(p.Hand) == 0 && winner == nil {
			winner = p
			continue
		}
		for _, c := range p.Hand {
			total += cardValue(c)
		}
	}
	if winner == nil {
		return "", 0
	}
	if total < 1 {
		total = 1
	}
	return winner.UserID, total
}

func (u *Uno) drawCard() string {
	if len(u.deck) == 0 {
		// Recycle the discard pile under the top card.
		if len(u.discard) > 1 {
			u.deck = append(u.deck, u.discard[:len(u.discard)-1]...)
			u.discard = u.discard[len(u.discard)-1:]
			u.rng.Shuffle(len(u.deck), func(i, j int) {
				u.deck[i], u.deck[j] = u.deck[j], u.deck[i]
			})
		} else {
			u.deck = buildDeck()
			u.rng.Shuffle(len(u.deck), func(i, j int) {
				u.deck[i], u.deck[j] = u.deck[j], u.deck[i]
			})
		}
	}
	c := u.deck[len(u.deck)-1]
	u.deck = u.deck[:len(u.deck)-1]
	return c
}

func (u *Uno) playable(card string) bool {
	if isWild(card) {
		return true
	}
	return cardColor(card) == u.color || rank(card) == rank(u.top)
}

func buildDeck() []string {
	var deck []string
	for _, c := range colors {
		deck = append(deck, c+"0")
		for n := 1; n <= 9; n++ {
			card := fmt.Sprintf("%s%d", c, n)
			deck = append(deck, card, card)
		}
		for _, a := range []string{"S", "R", "D2"} {
			deck = append(deck, c+a, c+a)
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, "W", "WD4")
	}
	return deck
}

func isWild(card string) bool   { return card == "W" || card == "WD4" }
func isNumber(card string) bool { return !isWild(card) && rank(card)[0] >= '0' && rank(card)[0] <= '9' }

func cardColor(card string) string {
	if isWild(card) {
		return ""
	}
	return card[:1]
}

func rank(card string) string {
	if card == "W" {
		return "W"
	}
	if card == "WD4" {
		return "D4"
	}
	return card[1:]
}

func validColor(c string) bool {
	switch strings.ToUpper(c) {
	case "R", "G", "B", "Y":
		return true
	}
	return false
}

func cardValue(card string) int {
	if isWild(card) {
		return wildValue
	}
	r := rank(card)
	if r[0] >= '0' && r[0] <= '9' {
		return int(r[0] - '0')
	}
	return actionValue
}
