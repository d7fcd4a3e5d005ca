package session

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	// maxTimeoutStrikes is how many consecutive timeouts remove a player.
	maxTimeoutStrikes = 3

	// turnJitterFrac fuzzes each turn deadline by up to this fraction in
	// either direction, desynchronizing the timers of many concurrent
	// sessions. Best effort, not a guarantee.
	turnJitterFrac = 0.1

	// roundRestartDelay is the pause between a round ending and the next
	// one starting.
	roundRestartDelay = 8 * time.Second

	// cleanupGrace is how long after termination the destructive cleanup
	// notification fires, giving players time to read the outcome.
	cleanupGrace = 30 * time.Second
)

// fuzzDuration applies the jitter fraction to d.
func fuzzDuration(d time.Duration, rng *rand.Rand) time.Duration {
	f := 1 + turnJitterFrac*(2*rng.Float64()-1)
	return time.Duration(float64(d) * f)
}

// mintTokenLocked replaces the session's live turn token. Every turn or
// phase transition mints; any timer armed against the old token becomes a
// no-op at fire time. Lock must be held.
func (s *Session) mintTokenLocked() uuid.UUID {
	s.turnToken = uuid.New()
	return s.turnToken
}

// armTurnTimerLocked mints a fresh token and schedules the phase deadline.
// The callback carries only (channelID, token) and re-resolves the session
// through the registry when it fires, so a session destroyed in the interim
// is handled naturally. Lock must be held.
func (s *Session) armTurnTimerLocked() {
	token := s.mintTokenLocked()
	if s.turnTimer != nil {
		s.turnTimer.Stop()
	}
	d := fuzzDuration(time.Duration(s.Settings.TurnSeconds)*time.Second, s.rng)
	channelID := s.ChannelID
	reg := s.registry
	s.turnTimer = time.AfterFunc(d, func() {
		if live := reg.Lookup(channelID); live != nil {
			live.handleTurnExpiry(token)
		}
	})
}

// scheduleRoundRestartLocked arms the between-rounds pause. The token check
// makes a stale restart callback (session closed during the pause) a no-op.
func (s *Session) scheduleRoundRestartLocked() {
	token := s.mintTokenLocked()
	channelID := s.ChannelID
	reg := s.registry
	s.roundTimer = time.AfterFunc(roundRestartDelay, func() {
		if live := reg.Lookup(channelID); live != nil {
			live.restartRound(token)
		}
	})
}

// armCapTimer schedules the single absolute game-duration cap, measured
// from session creation. It is independent of per-turn timers, never reset
// by activity and never reset by host transfer.
func (s *Session) armCapTimer() {
	if s.Settings.MaxDuration <= 0 {
		return
	}
	channelID := s.ChannelID
	reg := s.registry
	s.capTimer = time.AfterFunc(s.Settings.MaxDuration, func() {
		if live := reg.Lookup(channelID); live != nil {
			live.forceClose(CloseTimeLimit)
		}
	})
}

// stopTimersLocked halts every pending timer. Callbacks that already fired
// discard themselves via the registry lookup or token check.
func (s *Session) stopTimersLocked() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
	if s.roundTimer != nil {
		s.roundTimer.Stop()
		s.roundTimer = nil
	}
	if s.capTimer != nil {
		s.capTimer.Stop()
		s.capTimer = nil
	}
}
