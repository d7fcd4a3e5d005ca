package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmrtn/partybot/internal/models"
)

// turnOrder reads the post-shuffle seating under the lock.
func turnOrder(s *Session) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, p := range s.roster.Players() {
		out = append(out, p.UserID)
	}
	return out
}

func play(s *Session, userID string) error {
	return s.SubmitMove(userID, models.Move{Verb: models.VerbPlay})
}

func TestJoinGuards(t *testing.T) {
	em := newMockEmitter()
	_, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice")

	require.NoError(t, s.Join("bob", "bob"))
	assert.ErrorIs(t, s.Join("bob", "bob"), ErrAlreadyJoined)
	assert.Equal(t, 1, em.count(EventPlayerJoined))

	for _, id := range []string{"c", "d", "e", "f"} {
		require.NoError(t, s.Join(id, id))
	}
	// MaxPlayers is 6.
	assert.ErrorIs(t, s.Join("late", "late"), ErrGameFull)
}

func TestJoinClosedAfterStart(t *testing.T) {
	em := newMockEmitter()
	_, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob")

	require.NoError(t, s.Start("alice"))
	assert.ErrorIs(t, s.Join("carol", "carol"), ErrGameAlreadyStarted)
}

func TestStartGuards(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice")

	assert.ErrorIs(t, s.Start("bob"), ErrNotHost)
	assert.ErrorIs(t, s.Start("alice"), ErrInsufficientPlayers)

	require.NoError(t, s.Join("bob", "bob"))
	require.NoError(t, s.Start("alice"))
	assert.Equal(t, 1, fa.dealtInitial)
	assert.Equal(t, PhaseAwaitingMove, s.Phase())
	assert.ErrorIs(t, s.Start("alice"), ErrGameAlreadyStarted)

	// The shuffled first seat holds the opening turn.
	assert.Equal(t, turnOrder(s)[0], currentID(s))
}

func TestKickAndBan(t *testing.T) {
	em := newMockEmitter()
	_, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob", "carol")

	assert.ErrorIs(t, s.Kick("bob", "carol", false), ErrNotHost)
	assert.ErrorIs(t, s.Kick("alice", "nobody", false), ErrPlayerNotInSession)

	require.NoError(t, s.Kick("alice", "bob", true))
	assert.Equal(t, 1, em.count(EventPlayerKicked))
	assert.ErrorIs(t, s.Join("bob", "bob"), ErrBanned)

	// A kick without ban permits rejoining.
	require.NoError(t, s.Kick("alice", "carol", false))
	assert.NoError(t, s.Join("carol", "carol"))
}

func TestHostLeaveClosesSession(t *testing.T) {
	em := newMockEmitter()
	reg, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob")

	require.NoError(t, s.Leave("alice"))
	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Equal(t, CloseHostLeft, s.CloseReason())
	assert.Nil(t, reg.Lookup("chan-1"))

	ev, ok := em.last(EventForceClosed)
	require.True(t, ok)
	assert.Equal(t, "host_left", ev.Reason)
}

func TestHostAbort(t *testing.T) {
	em := newMockEmitter()
	reg, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob")

	assert.ErrorIs(t, s.Abort("bob"), ErrNotHost)
	require.NoError(t, s.Abort("alice"))
	assert.Equal(t, CloseHostAborted, s.CloseReason())
	assert.Nil(t, reg.Lookup("chan-1"))
}

func TestRemovalBelowMinimumCloses(t *testing.T) {
	em := newMockEmitter()
	reg, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob")
	require.NoError(t, s.Start("alice"))

	require.NoError(t, s.Kick("alice", "bob", false))
	assert.Equal(t, CloseInsufficientPlayers, s.CloseReason())
	assert.Nil(t, reg.Lookup("chan-1"))
}

func TestLobbyLeaveDoesNotClose(t *testing.T) {
	em := newMockEmitter()
	reg, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob")

	// In the lobby the minimum does not apply.
	require.NoError(t, s.Leave("bob"))
	assert.Equal(t, PhaseLobby, s.Phase())
	assert.NotNil(t, reg.Lookup("chan-1"))
}

func TestTurnBasedAdvance(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	assert.ErrorIs(t, play(s, order[1]), ErrNotYourTurn)
	assert.ErrorIs(t, s.SubmitMove("nobody", models.Move{}), ErrPlayerNotInSession)

	require.NoError(t, play(s, order[0]))
	assert.Equal(t, order[1], currentID(s))
	require.NoError(t, play(s, order[1]))
	assert.Equal(t, order[2], currentID(s))
	require.NoError(t, play(s, order[2]))
	assert.Equal(t, order[0], currentID(s))

	assert.Equal(t, 4, em.count(EventTurnStarted))
	assert.Equal(t, 3, em.count(EventMoveApplied))
}

func TestReverseEffect(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	fa.applyEffect = TurnEffect{Advance: 1, Reverse: true}
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	// A reverse toggles direction before advancing.
	require.NoError(t, play(s, order[0]))
	assert.Equal(t, order[2], currentID(s))

	// A second reverse restores forward traversal.
	require.NoError(t, play(s, order[2]))
	assert.Equal(t, order[0], currentID(s))
}

func TestPenaltyDrawSkipsVictim(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	fa.applyEffect = TurnEffect{Advance: 2, NextDraws: 2}
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	require.NoError(t, play(s, order[0]))
	assert.Equal(t, 2, fa.penalties[order[1]])
	assert.Equal(t, order[2], currentID(s))
}

func TestRoundEndAndRestart(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	fa.applyEffect = TurnEffect{RoundOver: true}
	fa.winnerID, fa.points = order[1], 1
	require.NoError(t, play(s, order[0]))

	assert.Equal(t, PhaseRoundEnd, s.Phase())
	ev, ok := em.last(EventRoundEnded)
	require.True(t, ok)
	assert.Equal(t, order[1], ev.UserID)
	assert.Equal(t, 1, ev.Points)

	// The restart callback opens the next round and rotates the holder.
	s.mu.Lock()
	token := s.turnToken
	s.mu.Unlock()
	s.restartRound(token)

	assert.Equal(t, 1, fa.beganRounds)
	assert.Equal(t, PhaseAwaitingMove, s.Phase())
	assert.Equal(t, order[1], currentID(s))

	// A stale restart token is a no-op.
	s.restartRound(uuid.New())
	assert.Equal(t, PhaseAwaitingMove, s.Phase())
}

func TestGameEndsAtThreshold(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	reg, s := newTestSession(fa, em, "alice", "bob")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	// PointsToWin is 3; a three-point round wins outright.
	fa.applyEffect = TurnEffect{RoundOver: true}
	fa.winnerID, fa.points = order[0], 3
	require.NoError(t, play(s, order[0]))

	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Nil(t, reg.Lookup("chan-1"))
	ev, ok := em.last(EventGameEnded)
	require.True(t, ok)
	assert.Equal(t, order[0], ev.UserID)
}

func TestZeroThresholdWinsFirstRound(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	reg := NewRegistry()
	st := testSettings()
	st.PointsToWin = 0
	s, err := reg.Create("chan-1", "guild-1", "alice", "alice", st, fa)
	require.NoError(t, err)
	s.SetEmitters(em.emit, em.emitTo)
	require.NoError(t, s.Join("bob", "bob"))
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	fa.applyEffect = TurnEffect{RoundOver: true}
	fa.winnerID, fa.points = order[1], 1
	require.NoError(t, play(s, order[0]))

	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Equal(t, 1, em.count(EventGameEnded))
}

func TestDrawnRoundRestartsWithoutAward(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	fa.applyEffect = TurnEffect{RoundOver: true}
	fa.winnerID, fa.points = "", 0
	require.NoError(t, play(s, order[0]))

	// No winner: the round ends but nobody scores and the game goes on.
	assert.Equal(t, PhaseRoundEnd, s.Phase())
	assert.Equal(t, 0, em.count(EventGameEnded))
}

func TestTimeoutForcesMoveAndAdvances(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	expire(s)

	assert.Equal(t, 1, fa.forcedMoves[order[0]])
	assert.Equal(t, order[1], currentID(s))
	ev, ok := em.last(EventPlayerTimedOut)
	require.True(t, ok)
	assert.Equal(t, order[0], ev.UserID)

	// A real action clears the run.
	require.NoError(t, play(s, order[1]))
	require.NoError(t, play(s, order[2]))
	require.NoError(t, play(s, order[0]))
	s.mu.Lock()
	run := s.roster.Find(order[0]).TimeoutRun
	s.mu.Unlock()
	assert.Equal(t, 0, run)
}

func TestStaleExpiryIsNoOp(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	s.mu.Lock()
	stale := s.turnToken
	s.mu.Unlock()
	require.NoError(t, play(s, order[0]))

	// The old deadline fires after the move it guarded; nothing happens.
	s.handleTurnExpiry(stale)
	assert.Empty(t, fa.forcedMoves)
	assert.Equal(t, order[1], currentID(s))
}

func TestThreeStrikesRemovesPlayer(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	idle := order[0]
	// A struck-out host would close the session instead; keep the idle
	// player a regular member.
	if idle == "alice" {
		require.NoError(t, s.TransferHost("alice", order[1]))
	}
	for strike := 1; strike <= 3; strike++ {
		assert.Equal(t, idle, currentID(s))
		expire(s)
		if strike < 3 {
			// The other two keep playing, cycling the turn back.
			require.NoError(t, play(s, order[1]))
			require.NoError(t, play(s, order[2]))
		}
	}

	// The warning went out privately on the second strike.
	assert.Equal(t, 1, em.privateCount(idle, EventInactivityWarning))

	assert.Equal(t, 1, em.count(EventPlayerRemoved))
	s.mu.Lock()
	gone := s.roster.Find(idle) == nil
	n := s.roster.Len()
	s.mu.Unlock()
	assert.True(t, gone)
	assert.Equal(t, 2, n)
	assert.NotEqual(t, PhaseEnded, s.Phase())
	assert.Equal(t, order[1], currentID(s))
}

func TestEveryPlayerIdleClosesSession(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	reg, s := newTestSession(fa, em, "alice", "bob")
	require.NoError(t, s.Start("alice"))

	// Two silent deadlines in a row: both players now hold a strike and
	// the whole table is idle.
	expire(s)
	assert.NotEqual(t, PhaseEnded, s.Phase())
	expire(s)

	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Equal(t, CloseInactivity, s.CloseReason())
	assert.Nil(t, reg.Lookup("chan-1"))
}

func TestCurrentPlayerLeavesMidTurn(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	// Make sure the departing turn holder is not the host.
	if order[0] == "alice" {
		require.NoError(t, s.TransferHost("alice", order[1]))
	}

	require.NoError(t, s.Leave(order[0]))

	// The departure force-ended the turn without charging a strike.
	assert.Equal(t, 1, fa.forcedMoves[order[0]])
	assert.Equal(t, 0, em.count(EventPlayerTimedOut))
	assert.Equal(t, order[1], currentID(s))
	assert.NotEqual(t, PhaseEnded, s.Phase())
}

func TestSimultaneousRound(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeSimultaneous)
	_, s := newTestSession(fa, em, "alice", "bob")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	assert.Equal(t, "", currentID(s))
	fa.winnerID, fa.points = order[0], 1

	require.NoError(t, play(s, order[0]))
	// Acting twice in the same round is rejected.
	assert.ErrorIs(t, play(s, order[0]), ErrNotYourTurn)
	assert.Equal(t, PhaseAwaitingMove, s.Phase())

	require.NoError(t, play(s, order[1]))
	assert.Equal(t, PhaseRoundEnd, s.Phase())
	ev, ok := em.last(EventRoundEnded)
	require.True(t, ok)
	assert.Equal(t, order[0], ev.UserID)
}

func TestSimultaneousTimeoutSubmitsForLatePlayers(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeSimultaneous)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	require.NoError(t, play(s, order[0]))
	expire(s)

	// Both stragglers got forced submissions and the round resolved.
	assert.Equal(t, 1, fa.forcedMoves[order[1]])
	assert.Equal(t, 1, fa.forcedMoves[order[2]])
	assert.Equal(t, PhaseRoundEnd, s.Phase())
	// The player who acted is not charged.
	assert.Equal(t, 2, em.count(EventPlayerTimedOut))
}

func TestJudgeVoteFlow(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeSubmitVote)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)
	judge := order[0]

	// The judge does not submit.
	assert.ErrorIs(t, play(s, judge), ErrNotYourTurn)
	// Voting is not open yet.
	assert.ErrorIs(t, s.SubmitVote(judge, order[1]), ErrWrongPhase)

	require.NoError(t, play(s, order[1]))
	require.NoError(t, play(s, order[2]))
	assert.Equal(t, PhaseAwaitingVote, s.Phase())
	assert.Equal(t, 1, em.count(EventVoteStarted))

	// Only the judge votes.
	assert.ErrorIs(t, s.SubmitVote(order[1], order[2]), ErrNotYourTurn)
	fa.winnerID, fa.points = order[2], 1
	require.NoError(t, s.SubmitVote(judge, order[2]))

	assert.Equal(t, PhaseRoundEnd, s.Phase())
	assert.Equal(t, order[2], fa.votes[judge])
}

func TestJudgeTimeoutCastsForcedVote(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeSubmitVote)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)
	judge := order[0]

	require.NoError(t, play(s, order[1]))
	require.NoError(t, play(s, order[2]))
	require.Equal(t, PhaseAwaitingVote, s.Phase())

	expire(s)

	assert.Equal(t, 1, fa.forcedVotes[judge])
	assert.Equal(t, PhaseRoundEnd, s.Phase())
}

func TestGameDurationCap(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	reg := NewRegistry()
	st := testSettings()
	st.MaxDuration = 30 * time.Millisecond
	s, err := reg.Create("chan-1", "guild-1", "alice", "alice", st, fa)
	require.NoError(t, err)
	s.SetEmitters(em.emit, em.emitTo)

	assert.Eventually(t, func() bool {
		return s.Phase() == PhaseEnded
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, CloseTimeLimit, s.CloseReason())
	assert.Nil(t, reg.Lookup("chan-1"))
}

func TestMoveGuardsOutsideRound(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob")

	assert.ErrorIs(t, play(s, "alice"), ErrWrongPhase)

	require.NoError(t, s.Start("alice"))
	fa.validateErr = ErrIllegalMove
	assert.ErrorIs(t, play(s, turnOrder(s)[0]), ErrIllegalMove)
}

func TestStatusSnapshot(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob")
	require.NoError(t, s.Start("alice"))

	snap := s.Status()
	assert.Equal(t, "chan-1", snap.ChannelID)
	assert.Equal(t, "awaiting_move", snap.Phase)
	assert.Equal(t, "alice", snap.HostID)
	assert.Equal(t, 1, snap.Round)
	assert.False(t, snap.Joinable)
	assert.Len(t, snap.Standings, 2)
	assert.Equal(t, turnOrder(s)[0], snap.CurrentUser)
}

func TestClosedSessionRejectsOperations(t *testing.T) {
	em := newMockEmitter()
	_, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob")
	require.NoError(t, s.Abort("alice"))

	assert.ErrorIs(t, s.Join("carol", "carol"), ErrSessionNotFound)
	assert.ErrorIs(t, s.Leave("bob"), ErrSessionNotFound)
	assert.ErrorIs(t, s.Start("alice"), ErrSessionNotFound)
	assert.ErrorIs(t, play(s, "bob"), ErrSessionNotFound)
}

func TestPromptsClosedOnRemoval(t *testing.T) {
	em := newMockEmitter()
	fa := newFakeAdapter(ModeTurnBased)
	_, s := newTestSession(fa, em, "alice", "bob", "carol")
	require.NoError(t, s.Start("alice"))
	order := turnOrder(s)

	closed := 0
	s.mu.Lock()
	s.roster.Find(order[1]).Prompts = []models.Terminable{terminateFunc(func() { closed++ })}
	s.mu.Unlock()

	require.NoError(t, s.Kick("alice", order[1], false))
	assert.Equal(t, 1, closed)
}

type terminateFunc func()

func (f terminateFunc) Terminate() { f() }
