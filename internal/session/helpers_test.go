package session

import (
	"sync"

	"github.com/jmrtn/partybot/internal/models"
)

// mockEmitter captures broadcast and private events for assertions.
type mockEmitter struct {
	mu      sync.Mutex
	events  []Event
	private map[string][]Event
}

func newMockEmitter() *mockEmitter {
	return &mockEmitter{private: make(map[string][]Event)}
}

func (m *mockEmitter) emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockEmitter) emitTo(userID string, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.private[userID] = append(m.private[userID], ev)
}

func (m *mockEmitter) count(t EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (m *mockEmitter) last(t EventType) (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Type == t {
			return m.events[i], true
		}
	}
	return Event{}, false
}

func (m *mockEmitter) privateCount(userID string, t EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.private[userID] {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// fakeAdapter is a scripted adapter: every hook records its calls and
// returns canned results the test controls.
type fakeAdapter struct {
	mode PlayMode

	applyEffect  TurnEffect
	applyErr     error
	validateErr  error
	forcedEffect TurnEffect

	winnerID string
	points   int

	dealtInitial int
	beganRounds  int
	forcedMoves  map[string]int
	forcedVotes  map[string]int
	penalties    map[string]int
	votes        map[string]string
}

func newFakeAdapter(mode PlayMode) *fakeAdapter {
	return &fakeAdapter{
		mode:         mode,
		applyEffect:  TurnEffect{Advance: 1},
		forcedEffect: TurnEffect{Advance: 1},
		forcedMoves:  make(map[string]int),
		forcedVotes:  make(map[string]int),
		penalties:    make(map[string]int),
		votes:        make(map[string]string),
	}
}

func (f *fakeAdapter) Kind() models.GameKind { return models.GameUNO }
func (f *fakeAdapter) Mode() PlayMode        { return f.mode }

func (f *fakeAdapter) DealInitial(players []*models.Player) { f.dealtInitial++ }
func (f *fakeAdapter) BeginRound(players []*models.Player)  { f.beganRounds++ }

func (f *fakeAdapter) ValidateMove(p *models.Player, mv models.Move) error { return f.validateErr }

func (f *fakeAdapter) ApplyMove(p *models.Player, mv models.Move) (TurnEffect, error) {
	return f.applyEffect, f.applyErr
}

func (f *fakeAdapter) ForcedMove(p *models.Player) TurnEffect {
	f.forcedMoves[p.UserID]++
	return f.forcedEffect
}

func (f *fakeAdapter) DealPenalty(p *models.Player, n int) { f.penalties[p.UserID] += n }

func (f *fakeAdapter) CollectVote(voter *models.Player, candidateID string) error {
	f.votes[voter.UserID] = candidateID
	return nil
}

func (f *fakeAdapter) ForcedVote(voter *models.Player) { f.forcedVotes[voter.UserID]++ }

func (f *fakeAdapter) ResolveRound(players []*models.Player) (string, int) {
	return f.winnerID, f.points
}

func testSettings() models.Settings {
	return models.Settings{
		Game:        models.GameUNO,
		MinPlayers:  2,
		MaxPlayers:  6,
		PointsToWin: 3,
		// Long enough that real timers never fire during a test; expiry
		// is driven manually through handleTurnExpiry.
		TurnSeconds: 600,
	}
}

// newTestSession creates a registry-backed session with the given players
// joined (the first is the host) and the mock emitter wired.
func newTestSession(fa *fakeAdapter, em *mockEmitter, players ...string) (*Registry, *Session) {
	reg := NewRegistry()
	s, err := reg.Create("chan-1", "guild-1", players[0], players[0], testSettings(), fa)
	if err != nil {
		panic(err)
	}
	s.SetEmitters(em.emit, em.emitTo)
	for _, p := range players[1:] {
		if err := s.Join(p, p); err != nil {
			panic(err)
		}
	}
	return reg, s
}

// expire fires the live turn deadline synchronously, as the timer callback
// would.
func expire(s *Session) {
	s.mu.Lock()
	token := s.turnToken
	s.mu.Unlock()
	s.handleTurnExpiry(token)
}

// currentID reads the turn holder under the lock.
func currentID(s *Session) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.UserID
}
