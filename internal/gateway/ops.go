package gateway

import (
	"context"
	"time"

	"github.com/jmrtn/partybot/internal/games"
	"github.com/jmrtn/partybot/internal/history"
	"github.com/jmrtn/partybot/internal/models"
	"github.com/jmrtn/partybot/internal/session"
)

// command is one inbound frame from a client.
type command struct {
	Op        string `json:"op"`
	ChannelID string `json:"channel_id,omitempty"`
	GuildID   string `json:"guild_id,omitempty"`

	Game      string `json:"game,omitempty"`
	VoteStyle string `json:"vote_style,omitempty"`

	TargetID string `json:"target_id,omitempty"`
	Ban      bool   `json:"ban,omitempty"`

	Verb        string `json:"verb,omitempty"`
	CardIndexes []int  `json:"card_indexes,omitempty"`
	Declare     string `json:"declare,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`

	Limit int `json:"limit,omitempty"`
}

func (c *client) dispatch(ctx context.Context, cmd command) {
	switch cmd.Op {
	case "create":
		c.handleCreate(cmd)
	case "join":
		c.withSession(cmd, func(s *session.Session) error {
			if err := s.Join(c.identity.UserID, c.identity.DisplayName); err != nil {
				return err
			}
			c.gw.subscribe(c, cmd.ChannelID)
			return nil
		})
	case "watch":
		c.gw.subscribe(c, cmd.ChannelID)
		c.send(outbound{Op: "ack"})
	case "leave":
		c.withSession(cmd, func(s *session.Session) error {
			return s.Leave(c.identity.UserID)
		})
	case "kick":
		c.withSession(cmd, func(s *session.Session) error {
			return s.Kick(c.identity.UserID, cmd.TargetID, cmd.Ban)
		})
	case "transfer_host":
		c.withSession(cmd, func(s *session.Session) error {
			return s.TransferHost(c.identity.UserID, cmd.TargetID)
		})
	case "start":
		c.withSession(cmd, func(s *session.Session) error {
			return s.Start(c.identity.UserID)
		})
	case "abort":
		c.withSession(cmd, func(s *session.Session) error {
			return s.Abort(c.identity.UserID)
		})
	case "move":
		c.withSession(cmd, func(s *session.Session) error {
			mv, err := parseMove(cmd)
			if err != nil {
				return err
			}
			return s.SubmitMove(c.identity.UserID, mv)
		})
	case "vote":
		c.withSession(cmd, func(s *session.Session) error {
			return s.SubmitVote(c.identity.UserID, cmd.CandidateID)
		})
	case "status":
		s := c.gw.Registry.Lookup(cmd.ChannelID)
		if s == nil {
			c.send(outbound{Op: "error", Detail: "no session for channel"})
			return
		}
		snap := s.Status()
		c.send(outbound{Op: "status", Status: &snap})
	case "history":
		c.handleHistory(ctx, cmd)
	default:
		c.send(outbound{Op: "error", Detail: "unknown op: " + cmd.Op})
	}
}

// withSession resolves the channel to its session exactly once and hands the
// pointer to fn, mapping errors into error frames. A single resolution keeps
// timer-driven destroys from yanking the session between a check and a later
// lookup; the session's own terminal-phase guards make the held pointer safe.
func (c *client) withSession(cmd command, fn func(s *session.Session) error) {
	s := c.gw.Registry.Lookup(cmd.ChannelID)
	if s == nil {
		c.send(outbound{Op: "error", Detail: "no session for channel"})
		return
	}
	if err := fn(s); err != nil {
		c.send(outbound{Op: "error", Detail: err.Error()})
		return
	}
	c.send(outbound{Op: "ack"})
}

func (c *client) handleCreate(cmd command) {
	kind, ok := parseGameKind(cmd.Game)
	if !ok {
		c.send(outbound{Op: "error", Detail: "unknown game: " + cmd.Game})
		return
	}
	st := models.DefaultSettings(kind)
	if cmd.VoteStyle == "popular" {
		st.VoteStyle = models.VotePopular
	}

	ad, err := games.New(st)
	if err != nil {
		c.send(outbound{Op: "error", Detail: err.Error()})
		return
	}
	s, err := c.gw.Registry.Create(cmd.ChannelID, cmd.GuildID, c.identity.UserID, c.identity.DisplayName, st, ad)
	if err != nil {
		c.send(outbound{Op: "error", Detail: err.Error()})
		return
	}
	s.SetEmitters(c.gw.Emit, c.gw.EmitToPlayer)
	c.gw.subscribe(c, cmd.ChannelID)
	c.send(outbound{Op: "ack"})
}

func (c *client) handleHistory(ctx context.Context, cmd command) {
	queryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := history.QueryRecentByUser(queryCtx, c.identity.UserID, cmd.Limit)
	if err != nil {
		c.send(outbound{Op: "error", Detail: err.Error()})
		return
	}
	c.send(outbound{Op: "history", Data: rows})
}

func parseGameKind(name string) (models.GameKind, bool) {
	switch name {
	case "uno":
		return models.GameUNO, true
	case "cah":
		return models.GameCAH, true
	case "rps":
		return models.GameRPS, true
	case "chess":
		return models.GameChess, true
	}
	return 0, false
}

func parseMove(cmd command) (models.Move, error) {
	mv := models.Move{CardIndexes: cmd.CardIndexes, Declare: cmd.Declare}
	switch cmd.Verb {
	case "play", "":
		mv.Verb = models.VerbPlay
	case "draw":
		mv.Verb = models.VerbDraw
	case "pass":
		mv.Verb = models.VerbPass
	case "resign":
		mv.Verb = models.VerbResign
	default:
		return mv, models.ErrUnknownVerb
	}
	return mv, nil
}
