package session

import "github.com/jmrtn/partybot/internal/models"

// PlayMode describes how a game's round is driven.
type PlayMode int

const (
	// ModeTurnBased games have exactly one turn holder at a time (UNO,
	// Chess).
	ModeTurnBased PlayMode = iota
	// ModeSimultaneous games collect one move from every player each round
	// and resolve when all have acted (RPS).
	ModeSimultaneous
	// ModeSubmitVote games run a submission phase followed by a voting
	// phase (CAH, with either a rotating judge or a popular vote).
	ModeSubmitVote
)

// TurnEffect is the adapter's report of how a move changes the turn flow.
// The engine applies it to the roster walk without knowing card semantics.
type TurnEffect struct {
	// Advance is the number of roster steps to the next turn holder.
	// Zero means the same player keeps the turn.
	Advance int
	// Reverse toggles the traversal direction before advancing.
	Reverse bool
	// NextDraws forces the next turn holder to draw this many cards
	// before play continues.
	NextDraws int
	// RoundOver marks the round-ending condition as met.
	RoundOver bool
}

// Adapter is the per-game payload logic the lifecycle engine calls into at
// fixed extension points. One adapter instance serves exactly one session
// and may keep mutable game state (deck, prompt, tallies); the engine never
// inspects that state. All methods are invoked with the session lock held,
// so adapters need no locking of their own.
type Adapter interface {
	Kind() models.GameKind
	Mode() PlayMode

	// DealInitial distributes the start-of-game allotment.
	DealInitial(players []*models.Player)
	// BeginRound resets round-scoped state and redistributes whatever the
	// game hands out per round.
	BeginRound(players []*models.Player)

	// ValidateMove reports whether the move is legal for this player right
	// now, without mutating anything.
	ValidateMove(p *models.Player, mv models.Move) error
	// ApplyMove applies a validated move and reports its turn effect.
	ApplyMove(p *models.Player, mv models.Move) (TurnEffect, error)
	// ForcedMove stands in for a player who timed out or departed
	// mid-turn: the game's default action (auto-draw, random submission).
	ForcedMove(p *models.Player) TurnEffect
	// DealPenalty forces a player to draw n cards (draw-two style
	// effects). Games without penalty draws may ignore it.
	DealPenalty(p *models.Player, n int)

	// CollectVote records a vote for a candidate during the voting phase.
	// Only ModeSubmitVote games receive votes.
	CollectVote(voter *models.Player, candidateID string) error
	// ForcedVote casts the timeout default: a uniformly random vote among
	// the legal candidates.
	ForcedVote(voter *models.Player)

	// ResolveRound computes the round winner and awarded points. An empty
	// winner ID means a drawn round with no award.
	ResolveRound(players []*models.Player) (winnerID string, points int)
}
