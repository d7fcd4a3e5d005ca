package session

import "time"

// Standing is one row of the score table.
type Standing struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
	Rank        string `json:"rank"`
	TiedWith    int    `json:"tied_with,omitempty"`
}

// Snapshot is a point-in-time view of a session, safe to hold after the
// lock is released. Status queries and the gateway serialize it directly.
type Snapshot struct {
	ChannelID   string     `json:"channel_id"`
	GuildID     string     `json:"guild_id"`
	Game        string     `json:"game"`
	Phase       string     `json:"phase"`
	HostID      string     `json:"host_id"`
	Round       int        `json:"round"`
	CurrentUser string     `json:"current_user,omitempty"`
	Pending     []string   `json:"pending,omitempty"`
	Reversed    bool       `json:"reversed,omitempty"`
	Joinable    bool       `json:"joinable"`
	CreatedAt   time.Time  `json:"created_at"`
	CloseReason string     `json:"close_reason,omitempty"`
	Standings   []Standing `json:"standings"`
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ChannelID: s.ChannelID,
		GuildID:   s.GuildID,
		Game:      s.Settings.Game.String(),
		Phase:     s.phase.String(),
		HostID:    s.hostID,
		Round:     s.round,
		Reversed:  s.reversed,
		Joinable:  s.joinable,
		CreatedAt: s.createdAt,
		Standings: s.standingsLocked(),
	}
	if s.current != nil {
		snap.CurrentUser = s.current.UserID
	}
	for id := range s.pending {
		snap.Pending = append(snap.Pending, id)
	}
	if s.reason != CloseNone {
		snap.CloseReason = s.reason.String()
	}
	return snap
}

func (s *Session) standingsLocked() []Standing {
	players := s.roster.Players()
	rows := make([]Standing, 0, len(players))
	for _, group := range ComputeLeaderboard(players) {
		for _, p := range group {
			rank, tied := Rank(players, p.UserID)
			rows = append(rows, Standing{
				UserID:      p.UserID,
				DisplayName: p.DisplayName,
				Score:       p.Score,
				Rank:        rank,
				TiedWith:    tied,
			})
		}
	}
	return rows
}
