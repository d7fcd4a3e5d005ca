package models

import "time"

// Terminable is a transient interaction handle owned by a player, e.g. an
// open card-picker or confirmation dialog waiting on the chat surface.
// Whenever the player's turn ends, for any reason, every open handle is
// terminated so the rendering layer can dismiss it.
type Terminable interface {
	Terminate()
}

// Player is one participant inside exactly one session. The same external
// user may appear as a Player in several concurrent sessions (different
// channels), but each Player value is owned exclusively by its session.
type Player struct {
	// UserID is the chat platform's user identifier. Immutable; used for
	// equality within the roster.
	UserID      string
	DisplayName string

	// Score is the cumulative game score across rounds.
	Score int

	// Hand holds the player's game-specific cards as opaque tokens. The
	// lifecycle engine never interprets these; only the game adapter does.
	Hand []string

	// Submitted and Submission track the player's move during simultaneous
	// phases (card submissions, votes, throws). Reset each round.
	Submitted  bool
	Submission string

	// TimeoutRun counts consecutive turn timeouts. Reset to zero by any
	// real action from this player.
	TimeoutRun int

	// Prompts are the open interaction handles for this player's current
	// turn.
	Prompts []Terminable

	JoinedAt time.Time
}

// ClosePrompts terminates and clears every open interaction handle.
func (p *Player) ClosePrompts() {
	for _, h := range p.Prompts {
		h.Terminate()
	}
	p.Prompts = nil
}

// ResetRound clears the round-scoped submission flags.
func (p *Player) ResetRound() {
	p.Submitted = false
	p.Submission = ""
}
