package session

import "errors"

// Guard violations surfaced to the caller of an inbound operation. They are
// user-facing and never fatal; the command layer renders them directly.
var (
	ErrDuplicateSession    = errors.New("a session already exists for this channel")
	ErrSessionNotFound     = errors.New("no session exists for this channel")
	ErrAlreadyHosting      = errors.New("you are already hosting a session in this server")
	ErrAlreadyJoined       = errors.New("you have already joined this session")
	ErrGameFull            = errors.New("the session is full")
	ErrGameAlreadyStarted  = errors.New("the game has already started")
	ErrBanned              = errors.New("you have been banned from this session")
	ErrPlayerNotInSession  = errors.New("you are not part of this session")
	ErrNotYourTurn         = errors.New("it is not your turn")
	ErrNotHost             = errors.New("only the host may do that")
	ErrInsufficientPlayers = errors.New("not enough players to start")
	ErrIllegalMove         = errors.New("illegal move")
	ErrWrongPhase          = errors.New("that action is not available right now")
)
