// Package games maps a game kind to its adapter implementation.
package games

import (
	"fmt"

	"github.com/jmrtn/partybot/internal/games/cah"
	"github.com/jmrtn/partybot/internal/games/chess"
	"github.com/jmrtn/partybot/internal/games/rps"
	"github.com/jmrtn/partybot/internal/games/uno"
	"github.com/jmrtn/partybot/internal/models"
	"github.com/jmrtn/partybot/internal/session"
)

// New builds a fresh per-session adapter for the given settings.
func New(st models.Settings) (session.Adapter, error) {
	switch st.Game {
	case models.GameUNO:
		return uno.New(), nil
	case models.GameCAH:
		return cah.New(st.VoteStyle), nil
	case models.GameRPS:
		return rps.New(), nil
	case models.GameChess:
		return chess.New(), nil
	default:
		return nil, fmt.Errorf("unknown game kind %d", st.Game)
	}
}
