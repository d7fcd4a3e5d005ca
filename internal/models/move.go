package models

import "errors"

// ErrUnknownVerb reports a move verb outside the closed set.
var ErrUnknownVerb = errors.New("unknown move verb")

// MoveVerb is the closed set of move kinds the engine routes. Game adapters
// decide which verbs are legal for them; the engine only dispatches.
type MoveVerb int

const (
	VerbPlay MoveVerb = iota
	VerbDraw
	VerbPass
	VerbResign
)

func (v MoveVerb) String() string {
	switch v {
	case VerbPlay:
		return "play"
	case VerbDraw:
		return "draw"
	case VerbPass:
		return "pass"
	case VerbResign:
		return "resign"
	default:
		return "unknown"
	}
}

// Move is a single game action submitted by a player. CardIndexes select
// cards from the player's hand; Declare carries any free-form game payload
// (a wild-color declaration, a chess move in algebraic notation, an RPS
// throw). The lifecycle engine treats both opaquely.
type Move struct {
	Verb        MoveVerb
	CardIndexes []int
	Declare     string
}
