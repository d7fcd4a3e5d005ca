// Package cah implements the fill-in-the-blank party game behind the
// adapter contract: a prompt card per round, hidden answer submissions,
// then either a rotating judge's pick or a popular vote.
package cah

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jmrtn/partybot/internal/models"
	"github.com/jmrtn/partybot/internal/session"
)

const handSize = 10

type submission struct {
	userID string
	cards  []string
}

type CAH struct {
	style models.VoteStyle
	rng   *rand.Rand

	prompts []prompt
	answers []string

	current     prompt
	submissions []submission
	votes       map[string]string // voter -> candidate
}

func New(style models.VoteStyle) *CAH {
	c := &CAH{
		style: style,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		votes: make(map[string]string),
	}
	c.prompts = append([]prompt(nil), promptDeck...)
	c.answers = append([]string(nil), answerDeck...)
	c.rng.Shuffle(len(c.prompts), func(i, j int) { c.prompts[i], c.prompts[j] = c.prompts[j], c.prompts[i] })
	c.rng.Shuffle(len(c.answers), func(i, j int) { c.answers[i], c.answers[j] = c.answers[j], c.answers[i] })
	return c
}

func (c *CAH) Kind() models.GameKind  { return models.GameCAH }
func (c *CAH) Mode() session.PlayMode { return session.ModeSubmitVote }

// Prompt exposes the current round's prompt text for rendering.
func (c *CAH) Prompt() string { return c.current.text }

// Submissions returns a copy of the round's submissions keyed by the
// submitting player.
func (c *CAH) Submissions() map[string][]string {
	out := make(map[string][]string, len(c.submissions))
	for _, s := range c.submissions {
		out[s.userID] = append([]string(nil), s.cards...)
	}
	return out
}

func (c *CAH) DealInitial(players []*models.Player) {
	for _, p := range players {
		p.Hand = nil
		for i := 0; i < handSize; i++ {
			p.Hand = append(p.Hand, c.drawAnswer())
		}
	}
	c.nextPrompt()
}

func (c *CAH) BeginRound(players []*models.Player) {
	c.submissions = nil
	c.votes = make(map[string]string)
	c.nextPrompt()
	for _, p := range players {
		for len(p.Hand) < handSize {
			p.Hand = append(p.Hand, c.drawAnswer())
		}
	}
}

func (c *CAH) ValidateMove(p *models.Player, mv models.Move) error {
	if mv.Verb != models.VerbPlay {
		return session.ErrIllegalMove
	}
	if len(mv.CardIndexes) != c.current.pick {
		return fmt.Errorf("%w: prompt takes %d card(s)", session.ErrIllegalMove, c.current.pick)
	}
	seen := make(map[int]bool, len(mv.CardIndexes))
	for _, i := range mv.CardIndexes {
		if i < 0 || i >= len(p.Hand) || seen[i] {
			return session.ErrIllegalMove
		}
		seen[i] = true
	}
	return nil
}

func (c *CAH) ApplyMove(p *models.Player, mv models.Move) (session.TurnEffect, error) {
	c.submit(p, mv.CardIndexes)
	return session.TurnEffect{}, nil
}

// ForcedMove submits random cards from the hand.
func (c *CAH) ForcedMove(p *models.Player) session.TurnEffect {
	if len(p.Hand) < c.current.pick {
		return session.TurnEffect{}
	}
	idx := c.rng.Perm(len(p.Hand))[:c.current.pick]
	c.submit(p, idx)
	return session.TurnEffect{}
}

func (c *CAH) submit(p *models.Player, indexes []int) {
	picked := make([]string, 0, len(indexes))
	drop := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		picked = append(picked, p.Hand[i])
		drop[i] = true
	}
	kept := p.Hand[:0]
	for i, card := range p.Hand {
		if !drop[i] {
			kept = append(kept, card)
		}
	}
	p.Hand = kept
	for len(p.Hand) < handSize {
		p.Hand = append(p.Hand, c.drawAnswer())
	}
	c.submissions = append(c.submissions, submission{userID: p.UserID, cards: picked})
	p.Submission = picked[0]
}

func (c *CAH) DealPenalty(p *models.Player, n int) {}

func (c *CAH) CollectVote(voter *models.Player, candidateID string) error {
	if candidateID == voter.UserID {
		return fmt.Errorf("%w: cannot vote for yourself", session.ErrIllegalMove)
	}
	for _, s := range c.submissions {
		if s.userID == candidateID {
			c.votes[voter.UserID] = candidateID
			return nil
		}
	}
	return fmt.Errorf("%w: no such submission", session.ErrIllegalMove)
}

// ForcedVote casts a uniformly random vote among the other submitters.
func (c *CAH) ForcedVote(voter *models.Player) {
	var pool []string
	for _, s := range c.submissions {
		if s.userID != voter.UserID {
			pool = append(pool, s.userID)
		}
	}
	if len(pool) == 0 {
		return
	}
	c.votes[voter.UserID] = pool[c.rng.Intn(len(pool))]
}

// ResolveRound tallies the votes. Under a judge there is a single deciding
// vote; under popular vote the highest tally wins and ties resolve
// uniformly at random.
func (c *CAH) ResolveRound(players []*models.Player) (string, int) {
	if len(c.votes) == 0 {
		return "", 0
	}
	tally := make(map[string]int)
	for _, candidate := range c.votes {
		tally[candidate]++
	}
	best := 0
	var leaders []string
	for candidate, n := range tally {
		if n > best {
			best = n
			leaders = []string{candidate}
		} else if n == best {
			leaders = append(leaders, candidate)
		}
	}
	return leaders[c.rng.Intn(len(leaders))], 1
}

func (c *CAH) drawAnswer() string {
	if len(c.answers) == 0 {
		c.answers = append([]string(nil), answerDeck...)
		c.rng.Shuffle(len(c.answers), func(i, j int) { c.answers[i], c.answers[j] = c.answers[j], c.answers[i] })
	}
	card := c.answers[len(c.answers)-1]
	c.answers = c.answers[:len(c.answers)-1]
	return card
}

func (c *CAH) nextPrompt() {
	if len(c.prompts) == 0 {
		c.prompts = append([]prompt(nil), promptDeck...)
		c.rng.Shuffle(len(c.prompts), func(i, j int) { c.prompts[i], c.prompts[j] = c.prompts[j], c.prompts[i] })
	}
	c.current = c.prompts[len(c.prompts)-1]
	c.prompts = c.prompts[:len(c.prompts)-1]
}
