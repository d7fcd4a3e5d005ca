package session

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmrtn/partybot/internal/models"
)

// Phase is the session lifecycle state.
type Phase int

const (
	// PhaseLobby: created, joinable, waiting for the host to start.
	PhaseLobby Phase = iota
	// PhaseAwaitingMove: a round is running and moves are being collected,
	// from the single turn holder or from every pending player depending
	// on the game's play mode.
	PhaseAwaitingMove
	// PhaseAwaitingVote: submissions are in; votes are being collected.
	PhaseAwaitingVote
	// PhaseRoundEnd: transient pause between rounds.
	PhaseRoundEnd
	// PhaseEnded: terminal. The registry no longer resolves the session.
	PhaseEnded
)

func (ph Phase) String() string {
	switch ph {
	case PhaseLobby:
		return "lobby"
	case PhaseAwaitingMove:
		return "awaiting_move"
	case PhaseAwaitingVote:
		return "awaiting_vote"
	case PhaseRoundEnd:
		return "round_end"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// departure distinguishes why a player is being removed; the notification
// differs but the roster invariant checks are shared.
type departure int

const (
	departLeave departure = iota
	departKick
	departInactive
)

// Session is one hosted game bound to a single chat channel. All state is
// guarded by mu; exactly one logical operation mutates a session at a time,
// while independent sessions run fully concurrently.
type Session struct {
	ChannelID string
	GuildID   string
	Settings  models.Settings

	registry *Registry
	adapter  Adapter

	mu        sync.Mutex
	hostID    string
	phase     Phase
	joinable  bool
	roster    *Roster
	current   *models.Player  // turn holder / judge; nil outside turn flow
	pending   map[string]bool // players yet to act in a simultaneous phase
	reversed  bool
	round     int
	turnToken uuid.UUID
	reason    CloseReason
	banned    map[string]bool
	createdAt time.Time
	rng       *rand.Rand

	turnTimer  *time.Timer
	roundTimer *time.Timer
	capTimer   *time.Timer

	// emitFn broadcasts an event to the session's channel; emitToPlayerFn
	// delivers privately. Injected by the transport layer via SetEmitters;
	// nil hooks drop events.
	emitFn         EmitFunc
	emitToPlayerFn EmitToPlayerFunc
}

// SetEmitters wires the outbound notification hooks. Call it right after
// Create, before any operation that can emit.
func (s *Session) SetEmitters(emit EmitFunc, emitTo EmitToPlayerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitFn = emit
	s.emitToPlayerFn = emitTo
}

func newSession(r *Registry, channelID, guildID, hostID, hostName string, st models.Settings, ad Adapter) *Session {
	s := &Session{
		ChannelID: channelID,
		GuildID:   guildID,
		Settings:  st,
		registry:  r,
		adapter:   ad,
		hostID:    hostID,
		phase:     PhaseLobby,
		joinable:  true,
		roster:    NewRoster(),
		pending:   make(map[string]bool),
		banned:    make(map[string]bool),
		createdAt: time.Now(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	// The host is always the first member of the roster.
	s.roster.Append(&models.Player{UserID: hostID, DisplayName: hostName, JoinedAt: time.Now()})
	return s
}

// HostID returns the current host's user ID.
func (s *Session) HostID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostID
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CloseReason returns the forced-closure cause, or CloseNone.
func (s *Session) CloseReason() CloseReason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Join adds the user to the roster.
func (s *Session) Join(userID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	if s.banned[userID] {
		return ErrBanned
	}
	if s.roster.Find(userID) != nil {
		return ErrAlreadyJoined
	}
	if !s.joinable {
		return ErrGameAlreadyStarted
	}
	if s.roster.Len() >= s.Settings.MaxPlayers {
		return ErrGameFull
	}

	s.roster.Append(&models.Player{UserID: userID, DisplayName: displayName, JoinedAt: time.Now()})
	s.emitLocked(Event{Type: EventPlayerJoined, UserID: userID})
	return nil
}

// Leave removes the user at their own request. A departing host tears the
// whole session down.
func (s *Session) Leave(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	p := s.roster.Find(userID)
	if p == nil {
		return ErrPlayerNotInSession
	}
	s.removePlayerLocked(p, departLeave)
	return nil
}

// Kick removes a player at the host's request, optionally banning them from
// rejoining.
func (s *Session) Kick(callerID, targetID string, ban bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	if callerID != s.hostID {
		return ErrNotHost
	}
	p := s.roster.Find(targetID)
	if p == nil {
		return ErrPlayerNotInSession
	}
	if ban {
		s.banned[targetID] = true
	}
	s.removePlayerLocked(p, departKick)
	return nil
}

// TransferHost hands the host role to another rostered player. This is the
// only way the host changes outside forced closure. The external resources
// carrying the host's identity (thread name, pinned intro) are relabeled by
// the rendering layer off the emitted event.
func (s *Session) TransferHost(callerID, newHostID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	if callerID != s.hostID {
		return ErrNotHost
	}
	if s.roster.Find(newHostID) == nil {
		return ErrPlayerNotInSession
	}
	old := s.hostID
	s.hostID = newHostID
	s.registry.rehost(s.ChannelID, s.GuildID, old, newHostID)
	s.emitLocked(Event{Type: EventHostTransferred, UserID: newHostID, Payload: map[string]interface{}{"previous_host": old}})
	return nil
}

// Start begins the first round. Host confirmation only; fails below the
// configured minimum roster size.
func (s *Session) Start(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	if callerID != s.hostID {
		return ErrNotHost
	}
	if s.phase != PhaseLobby {
		return ErrGameAlreadyStarted
	}
	if s.roster.Len() < s.Settings.MinPlayers {
		return ErrInsufficientPlayers
	}

	// Joinability ends here and never returns.
	s.joinable = false
	s.roster.Shuffle(s.rng)
	s.adapter.DealInitial(s.roster.Players())
	s.emitLocked(Event{Type: EventGameStarted})
	s.startRoundLocked()
	return nil
}

// Abort is the host's explicit teardown command.
func (s *Session) Abort(callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	if callerID != s.hostID {
		return ErrNotHost
	}
	s.forceCloseLocked(CloseHostAborted)
	return nil
}

// SubmitMove routes a player's move into the current round. Guard failures
// return before any mutation; a successful move fully applies.
func (s *Session) SubmitMove(userID string, mv models.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	p := s.roster.Find(userID)
	if p == nil {
		return ErrPlayerNotInSession
	}
	if s.phase != PhaseAwaitingMove {
		return ErrWrongPhase
	}
	if s.turnBased() {
		if p != s.current {
			return ErrNotYourTurn
		}
	} else if !s.pending[userID] {
		return ErrNotYourTurn
	}
	if err := s.adapter.ValidateMove(p, mv); err != nil {
		return err
	}
	effect, err := s.adapter.ApplyMove(p, mv)
	if err != nil {
		return err
	}

	p.TimeoutRun = 0
	p.ClosePrompts()
	s.emitLocked(Event{Type: EventMoveApplied, UserID: userID, Round: s.round})

	if s.turnBased() {
		s.finishTurnLocked(p, effect)
		return nil
	}

	p.Submitted = true
	delete(s.pending, userID)
	if len(s.pending) == 0 || effect.RoundOver {
		s.submissionsDoneLocked()
	}
	return nil
}

// SubmitVote records a vote during the voting phase.
func (s *Session) SubmitVote(userID, candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded {
		return ErrSessionNotFound
	}
	p := s.roster.Find(userID)
	if p == nil {
		return ErrPlayerNotInSession
	}
	if s.phase != PhaseAwaitingVote {
		return ErrWrongPhase
	}
	if !s.pending[userID] {
		return ErrNotYourTurn
	}
	if err := s.adapter.CollectVote(p, candidateID); err != nil {
		return err
	}

	p.TimeoutRun = 0
	p.ClosePrompts()
	delete(s.pending, userID)
	if len(s.pending) == 0 {
		s.endRoundLocked()
	}
	return nil
}

// Status reports a point-in-time snapshot for status queries.
func (s *Session) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// forceClose is the exported-path entry for registry-driven closures (cap
// timer, upstream deletions).
func (s *Session) forceClose(reason CloseReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forceCloseLocked(reason)
}

func (s *Session) turnBased() bool { return s.adapter.Mode() == ModeTurnBased }

func (s *Session) usesJudge() bool {
	return s.adapter.Mode() == ModeSubmitVote && s.Settings.VoteStyle == models.VoteCzar
}

// startRoundLocked opens a new round: rotates the turn holder, resets the
// per-round player flags, computes the pending set for the game's play
// mode, and arms the phase deadline.
func (s *Session) startRoundLocked() {
	s.round++
	s.reversed = false
	for _, p := range s.roster.Players() {
		p.ResetRound()
	}

	switch s.adapter.Mode() {
	case ModeTurnBased:
		s.rotateCurrentLocked()
		s.pending = make(map[string]bool)
	case ModeSimultaneous:
		s.current = nil
		s.pending = s.allPendingLocked(nil)
	case ModeSubmitVote:
		if s.usesJudge() {
			s.rotateCurrentLocked()
			s.pending = s.allPendingLocked(s.current)
		} else {
			s.current = nil
			s.pending = s.allPendingLocked(nil)
		}
	}

	s.phase = PhaseAwaitingMove
	s.armTurnTimerLocked()

	ev := Event{Type: EventTurnStarted, Round: s.round}
	if s.current != nil {
		ev.UserID = s.current.UserID
	}
	s.emitLocked(ev)
}

// rotateCurrentLocked advances the turn holder (or judge) by one roster
// position, or seats the first player when there is no previous holder.
func (s *Session) rotateCurrentLocked() {
	if s.current == nil || s.roster.Find(s.current.UserID) == nil {
		s.current = s.roster.At(0)
		return
	}
	s.current = s.roster.Walk(s.current, 1, false)
}

// allPendingLocked builds a pending set of every rostered player except the
// excluded one.
func (s *Session) allPendingLocked(except *models.Player) map[string]bool {
	pending := make(map[string]bool, s.roster.Len())
	for _, p := range s.roster.Players() {
		if except != nil && p.UserID == except.UserID {
			continue
		}
		pending[p.UserID] = true
	}
	return pending
}

// finishTurnLocked applies a turn effect in a turn-based game: direction
// toggles, penalty draws, advancement, or round end.
func (s *Session) finishTurnLocked(p *models.Player, effect TurnEffect) {
	if effect.RoundOver {
		s.endRoundLocked()
		return
	}
	if effect.Reverse {
		s.reversed = !s.reversed
	}
	if effect.NextDraws > 0 {
		victim := s.roster.Walk(p, 1, s.reversed)
		if victim != nil && victim != p {
			s.adapter.DealPenalty(victim, effect.NextDraws)
		}
	}
	if effect.Advance != 0 {
		s.current = s.roster.Walk(p, effect.Advance, s.reversed)
	}
	s.armTurnTimerLocked()
	s.emitLocked(Event{Type: EventTurnStarted, UserID: s.current.UserID, Round: s.round})
}

// submissionsDoneLocked moves a simultaneous round forward once every
// pending player has acted: straight to resolution, or into the voting
// phase for submit-and-vote games.
func (s *Session) submissionsDoneLocked() {
	if s.adapter.Mode() != ModeSubmitVote {
		s.endRoundLocked()
		return
	}
	s.phase = PhaseAwaitingVote
	if s.usesJudge() {
		s.pending = map[string]bool{s.current.UserID: true}
	} else {
		s.pending = s.allPendingLocked(nil)
	}
	s.armTurnTimerLocked()
	ev := Event{Type: EventVoteStarted, Round: s.round}
	if s.usesJudge() {
		ev.UserID = s.current.UserID
	}
	s.emitLocked(ev)
}

// endRoundLocked computes the round award and either finishes the game or
// schedules the next round.
func (s *Session) endRoundLocked() {
	s.phase = PhaseRoundEnd
	s.pending = make(map[string]bool)
	for _, p := range s.roster.Players() {
		p.ClosePrompts()
	}

	winnerID, points := s.adapter.ResolveRound(s.roster.Players())
	var winner *models.Player
	if winnerID != "" {
		winner = s.roster.Find(winnerID)
	}
	if winner != nil {
		winner.Score += points
	}
	s.emitLocked(Event{
		Type:    EventRoundEnded,
		UserID:  winnerID,
		Round:   s.round,
		Points:  points,
		Payload: map[string]interface{}{"standings": s.standingsLocked()},
	})

	if winner != nil {
		// A zero threshold means the first decided round wins outright.
		if s.Settings.PointsToWin == 0 || winner.Score >= s.Settings.PointsToWin {
			s.finishGameLocked(winner)
			return
		}
	}
	s.scheduleRoundRestartLocked()
}

// restartRound is the delayed-round-start callback. The token check makes a
// stale restart (session closed or already moved on) a no-op.
func (s *Session) restartRound(token uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRoundEnd || s.turnToken != token {
		return
	}
	s.adapter.BeginRound(s.roster.Players())
	s.startRoundLocked()
}

// finishGameLocked is the normal win-condition termination.
func (s *Session) finishGameLocked(winner *models.Player) {
	s.phase = PhaseEnded
	s.stopTimersLocked()
	s.registry.Destroy(s.ChannelID)
	s.emitLocked(Event{
		Type:    EventGameEnded,
		UserID:  winner.UserID,
		Round:   s.round,
		Payload: map[string]interface{}{"standings": s.standingsLocked()},
	})
	s.scheduleCleanupLocked()
}

// forceCloseLocked is the generic teardown for every non-win termination
// cause. Idempotent: a session already torn down is left alone, so a stale
// timer callback or a duplicate upstream deletion cannot double-process.
func (s *Session) forceCloseLocked(reason CloseReason) {
	if s.phase == PhaseEnded {
		return
	}
	s.phase = PhaseEnded
	s.reason = reason
	s.stopTimersLocked()
	for _, p := range s.roster.Players() {
		p.ClosePrompts()
	}
	s.registry.Destroy(s.ChannelID)
	log.Printf("session %s force-closed: %s", s.ChannelID, reason)
	s.emitLocked(Event{
		Type:    EventForceClosed,
		Reason:  reason.String(),
		Round:   s.round,
		Payload: map[string]interface{}{"standings": s.standingsLocked()},
	})
	s.scheduleCleanupLocked()
}

// scheduleCleanupLocked emits the delayed destructive-cleanup notification
// after the grace period; the chat layer deletes the hosting resource on
// receipt.
func (s *Session) scheduleCleanupLocked() {
	channelID := s.ChannelID
	emit := s.emitFn
	time.AfterFunc(cleanupGrace, func() {
		if emit != nil {
			emit(Event{Type: EventCleanup, ChannelID: channelID})
		}
	})
}

// removePlayerLocked funnels every removal path (leave, kick, inactivity)
// through the same invariant checks: host departure tears the session down,
// an in-game departure below the minimum roster closes it, a mid-turn
// departure force-ends the turn on the player's behalf first.
func (s *Session) removePlayerLocked(p *models.Player, how departure) {
	if p.UserID == s.hostID {
		s.emitDepartureLocked(p, how)
		s.forceCloseLocked(CloseHostLeft)
		return
	}

	started := s.phase != PhaseLobby
	if started && s.roster.Len()-1 < s.Settings.MinPlayers {
		p.ClosePrompts()
		s.roster.Remove(p.UserID)
		delete(s.pending, p.UserID)
		s.emitDepartureLocked(p, how)
		s.forceCloseLocked(CloseInsufficientPlayers)
		return
	}

	wasCurrent := s.current != nil && s.current.UserID == p.UserID
	wasPending := s.pending[p.UserID]

	// Force-end the departing player's turn on their behalf. Unlike a
	// timeout this never increments the strike counter; an inactivity
	// removal already had its forced action applied by the expiry path.
	var effect TurnEffect
	haveEffect := false
	if wasCurrent && s.phase == PhaseAwaitingMove && how != departInactive {
		effect = s.adapter.ForcedMove(p)
		haveEffect = true
	}
	if wasCurrent && s.phase == PhaseAwaitingVote {
		s.adapter.ForcedVote(p)
	}

	var next *models.Player
	if wasCurrent {
		next = s.roster.Walk(p, 1, s.reversed)
		if next == p {
			next = nil
		}
	}

	p.ClosePrompts()
	s.roster.Remove(p.UserID)
	delete(s.pending, p.UserID)
	s.emitDepartureLocked(p, how)

	if !started || s.phase == PhaseEnded || s.phase == PhaseRoundEnd {
		return
	}

	if wasCurrent {
		if s.phase == PhaseAwaitingVote {
			// The judge is gone and their forced vote is in.
			s.endRoundLocked()
			return
		}
		if haveEffect && effect.RoundOver {
			s.endRoundLocked()
			return
		}
		if haveEffect && effect.Reverse {
			s.reversed = !s.reversed
		}
		s.current = next
		s.armTurnTimerLocked()
		if s.current != nil {
			s.emitLocked(Event{Type: EventTurnStarted, UserID: s.current.UserID, Round: s.round})
		}
		return
	}

	if wasPending && len(s.pending) == 0 {
		switch s.phase {
		case PhaseAwaitingMove:
			s.submissionsDoneLocked()
		case PhaseAwaitingVote:
			s.endRoundLocked()
		}
	}
}

func (s *Session) emitDepartureLocked(p *models.Player, how departure) {
	switch how {
	case departKick:
		s.emitLocked(Event{Type: EventPlayerKicked, UserID: p.UserID})
	case departInactive:
		s.emitLocked(Event{Type: EventPlayerRemoved, UserID: p.UserID})
		s.emitToPlayerLocked(p.UserID, Event{Type: EventPlayerRemoved, UserID: p.UserID})
	default:
		s.emitLocked(Event{Type: EventPlayerLeft, UserID: p.UserID})
	}
}

// handleTurnExpiry is the turn-timer callback. It verifies the token is
// still live; a stale fire is a defined no-op, never an error.
func (s *Session) handleTurnExpiry(token uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAwaitingMove && s.phase != PhaseAwaitingVote {
		return
	}
	if s.turnToken != token {
		return
	}

	// Collect everyone at fault: the turn holder, or every player still
	// pending in a simultaneous phase.
	var late []*models.Player
	if s.turnBased() {
		late = []*models.Player{s.current}
	} else {
		for _, p := range s.roster.Players() {
			if s.pending[p.UserID] {
				late = append(late, p)
			}
		}
		if s.phase == PhaseAwaitingVote && s.usesJudge() {
			late = []*models.Player{s.current}
		}
	}

	var effect TurnEffect
	haveEffect := false
	for _, p := range late {
		p.TimeoutRun++
		s.emitLocked(Event{Type: EventPlayerTimedOut, UserID: p.UserID, Payload: map[string]interface{}{"strikes": p.TimeoutRun}})
		if p.TimeoutRun == maxTimeoutStrikes-1 {
			s.emitToPlayerLocked(p.UserID, Event{Type: EventInactivityWarning, UserID: p.UserID})
		}
		switch s.phase {
		case PhaseAwaitingMove:
			e := s.adapter.ForcedMove(p)
			if s.turnBased() {
				effect, haveEffect = e, true
			} else {
				p.Submitted = true
				delete(s.pending, p.UserID)
			}
		case PhaseAwaitingVote:
			s.adapter.ForcedVote(p)
			delete(s.pending, p.UserID)
		}
		p.ClosePrompts()
	}

	// A full cycle with zero real actions: every remaining player has
	// exhausted their allowance at once.
	if s.allIdleLocked() {
		s.forceCloseLocked(CloseInactivity)
		return
	}

	// Individual escalation: strike out players who hit the cap.
	for _, p := range late {
		if s.phase == PhaseEnded {
			return
		}
		if p.TimeoutRun >= maxTimeoutStrikes && s.roster.Find(p.UserID) != nil {
			s.removePlayerLocked(p, departInactive)
		}
	}
	if s.phase == PhaseEnded || s.phase == PhaseRoundEnd {
		return
	}

	// The forced actions stand in for real ones; advance normally. A
	// struck-out holder was already advanced past by their removal.
	if s.turnBased() {
		holder := late[0]
		if haveEffect && s.roster.Find(holder.UserID) != nil {
			s.finishTurnLocked(holder, effect)
		}
		return
	}
	if s.phase == PhaseAwaitingMove && len(s.pending) == 0 {
		s.submissionsDoneLocked()
		return
	}
	if s.phase == PhaseAwaitingVote && len(s.pending) == 0 {
		s.endRoundLocked()
		return
	}
	// Somebody is still pending (they acted before the deadline on a
	// different path); keep the existing deadline running.
	s.armTurnTimerLocked()
}

// allIdleLocked reports whether every rostered player holds at least one
// consecutive timeout, i.e. the sum of counters has reached the roster size
// with nobody acting in between.
func (s *Session) allIdleLocked() bool {
	if s.roster.Len() == 0 {
		return false
	}
	for _, p := range s.roster.Players() {
		if p.TimeoutRun == 0 {
			return false
		}
	}
	return true
}

func (s *Session) emitLocked(ev Event) {
	ev.ChannelID = s.ChannelID
	ev.GuildID = s.GuildID
	ev.Game = s.Settings.Game.String()
	if s.emitFn != nil {
		s.emitFn(ev)
	}
}

func (s *Session) emitToPlayerLocked(userID string, ev Event) {
	ev.ChannelID = s.ChannelID
	ev.GuildID = s.GuildID
	ev.Game = s.Settings.Game.String()
	if s.emitToPlayerFn != nil {
		s.emitToPlayerFn(userID, ev)
	}
}
