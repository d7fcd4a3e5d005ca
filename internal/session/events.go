package session

// EventType enumerates the discrete notifications the engine emits. Events
// carry identifiers and primitive data only; all human-readable phrasing is
// left to the rendering layer.
type EventType string

const (
	EventPlayerJoined      EventType = "player_joined"
	EventPlayerLeft        EventType = "player_left"
	EventPlayerKicked      EventType = "player_kicked"
	EventPlayerTimedOut    EventType = "player_timed_out"
	EventPlayerRemoved     EventType = "player_removed_inactive"
	EventInactivityWarning EventType = "inactivity_warning"
	EventHostTransferred   EventType = "host_transferred"
	EventGameStarted       EventType = "game_started"
	EventTurnStarted       EventType = "turn_started"
	EventVoteStarted       EventType = "vote_started"
	EventMoveApplied       EventType = "move_applied"
	EventRoundEnded        EventType = "round_ended"
	EventGameEnded         EventType = "game_ended"
	EventForceClosed       EventType = "session_force_closed"
	EventCleanup           EventType = "session_cleanup"
)

// Event is a single outbound notification. ChannelID, GuildID and Game are
// stamped by the session on every emit.
type Event struct {
	Type      EventType `json:"type"`
	ChannelID string    `json:"channel_id"`
	GuildID   string    `json:"guild_id,omitempty"`
	Game      string    `json:"game,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Round     int       `json:"round,omitempty"`
	Points    int       `json:"points,omitempty"`

	// Payload carries any extra primitive fields (standings, counters).
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// EmitFunc broadcasts an event to the session's channel. EmitToPlayerFunc
// delivers an event privately to a single user. Both are injected by the
// transport layer; a nil func drops the event.
type (
	EmitFunc         func(ev Event)
	EmitToPlayerFunc func(userID string, ev Event)
)

// CloseReason tags a forced closure with its cause. Forced closures are
// legitimate terminal transitions, not errors.
type CloseReason int

const (
	CloseNone CloseReason = iota
	CloseHostLeft
	CloseInsufficientPlayers
	CloseInactivity
	CloseThreadDeleted
	CloseChannelDeleted
	CloseTimeLimit
	CloseHostAborted
)

func (r CloseReason) String() string {
	switch r {
	case CloseHostLeft:
		return "host_left"
	case CloseInsufficientPlayers:
		return "insufficient_players"
	case CloseInactivity:
		return "inactivity"
	case CloseThreadDeleted:
		return "thread_deleted"
	case CloseChannelDeleted:
		return "channel_deleted"
	case CloseTimeLimit:
		return "time_limit"
	case CloseHostAborted:
		return "host_aborted"
	default:
		return "none"
	}
}
