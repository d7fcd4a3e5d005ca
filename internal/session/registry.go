package session

import (
	"sync"

	"github.com/jmrtn/partybot/internal/models"
)

// Registry is the process-wide mapping from a channel identifier to its one
// live session. It is the only shared resource between sessions; every
// create/lookup/destroy is serialized by its mutex. Lock ordering is
// one-directional: a session may take the registry lock while holding its
// own (Destroy, rehost), but registry methods never touch a session's lock,
// and timer callbacks re-resolve the session here rather than retaining a
// direct reference.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	// hosts enforces "one hosted session per host per guild". Keyed by
	// (guildID, hostID), valued by channel ID. Maintained on create,
	// destroy and host transfer.
	hosts map[hostKey]string
}

type hostKey struct {
	guildID string
	hostID  string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		hosts:    make(map[hostKey]string),
	}
}

// Create registers a new session for the channel. It fails with
// ErrDuplicateSession if the channel already has a live session, and with
// ErrAlreadyHosting if the host already hosts a session in this guild.
func (r *Registry) Create(channelID, guildID, hostID, hostName string, st models.Settings, ad Adapter) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[channelID]; exists {
		return nil, ErrDuplicateSession
	}
	key := hostKey{guildID: guildID, hostID: hostID}
	if _, hosting := r.hosts[key]; hosting {
		return nil, ErrAlreadyHosting
	}

	s := newSession(r, channelID, guildID, hostID, hostName, st, ad)
	r.sessions[channelID] = s
	r.hosts[key] = channelID

	s.armCapTimer()
	return s, nil
}

// Lookup resolves a channel to its session, or nil. Total; never errors.
func (r *Registry) Lookup(channelID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[channelID]
}

// Destroy removes the mapping for the channel. Destroying an absent channel
// is a silent no-op so forced-closure paths and upstream deletion
// notifications can race without error.
func (r *Registry) Destroy(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[channelID]; !ok {
		return
	}
	delete(r.sessions, channelID)
	for k, ch := range r.hosts {
		if ch == channelID {
			delete(r.hosts, k)
			break
		}
	}
}

// FindHostedBy returns the session hosted by the user in the given guild,
// or nil.
func (r *Registry) FindHostedBy(hostID, guildID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.hosts[hostKey{guildID: guildID, hostID: hostID}]
	if !ok {
		return nil
	}
	return r.sessions[ch]
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// rehost updates the host index after a host transfer.
func (r *Registry) rehost(channelID, guildID, oldHost, newHost string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hosts, hostKey{guildID: guildID, hostID: oldHost})
	r.hosts[hostKey{guildID: guildID, hostID: newHost}] = channelID
}

// HandleChannelDeleted reacts to the chat platform deleting the hosting
// channel. Tolerates the session already being gone.
func (r *Registry) HandleChannelDeleted(channelID string) {
	if s := r.Lookup(channelID); s != nil {
		s.forceClose(CloseChannelDeleted)
	}
}

// HandleThreadDeleted reacts to the hosting thread being deleted upstream.
func (r *Registry) HandleThreadDeleted(channelID string) {
	if s := r.Lookup(channelID); s != nil {
		s.forceClose(CloseThreadDeleted)
	}
}
