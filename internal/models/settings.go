package models

import "time"

// GameKind identifies which hosted game a session runs.
type GameKind int

const (
	GameUNO GameKind = iota
	GameCAH
	GameRPS
	GameChess
)

func (k GameKind) String() string {
	switch k {
	case GameUNO:
		return "uno"
	case GameCAH:
		return "cah"
	case GameRPS:
		return "rps"
	case GameChess:
		return "chess"
	default:
		return "unknown"
	}
}

// VoteStyle selects how voting-capable games resolve a round.
type VoteStyle int

const (
	// VoteCzar has a single rotating judge pick the round winner.
	VoteCzar VoteStyle = iota
	// VotePopular lets every player vote; ties resolve uniformly at random.
	VotePopular
)

// Settings are the per-session game settings. They are fixed at session
// creation and never mutated afterwards.
type Settings struct {
	Game        GameKind
	MinPlayers  int
	MaxPlayers  int
	PointsToWin int // 0 means the first finished round wins outright
	VoteStyle   VoteStyle

	// TurnSeconds bounds each turn or phase. MaxDuration is the absolute
	// wall-clock cap on the whole session, measured from creation; it is
	// independent of per-turn timers and does not reset on host transfer.
	TurnSeconds int
	MaxDuration time.Duration
}

// DefaultSettings returns the stock settings for a game kind.
func DefaultSettings(kind GameKind) Settings {
	s := Settings{
		Game:        kind,
		MinPlayers:  2,
		MaxPlayers:  10,
		PointsToWin: 500,
		TurnSeconds: 45,
		MaxDuration: 2 * time.Hour,
	}
	switch kind {
	case GameCAH:
		s.MinPlayers = 3
		s.MaxPlayers = 20
		s.PointsToWin = 7
		s.VoteStyle = VoteCzar
	case GameRPS:
		s.MinPlayers = 2
		s.MaxPlayers = 2
		s.PointsToWin = 3
		s.TurnSeconds = 30
	case GameChess:
		s.MinPlayers = 2
		s.MaxPlayers = 2
		s.PointsToWin = 0
		s.TurnSeconds = 120
		s.MaxDuration = 6 * time.Hour
	}
	return s
}
