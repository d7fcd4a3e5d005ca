package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateGuards(t *testing.T) {
	reg := NewRegistry()
	fa := newFakeAdapter(ModeTurnBased)

	_, err := reg.Create("chan-1", "guild-1", "host", "host", testSettings(), fa)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())

	// One session per channel.
	_, err = reg.Create("chan-1", "guild-1", "other", "other", testSettings(), fa)
	assert.ErrorIs(t, err, ErrDuplicateSession)

	// One hosted session per host per guild.
	_, err = reg.Create("chan-2", "guild-1", "host", "host", testSettings(), fa)
	assert.ErrorIs(t, err, ErrAlreadyHosting)

	// The same host in another guild is fine.
	_, err = reg.Create("chan-3", "guild-2", "host", "host", testSettings(), fa)
	assert.NoError(t, err)
}

func TestRegistryLookupAndDestroy(t *testing.T) {
	reg := NewRegistry()
	s, err := reg.Create("chan-1", "guild-1", "host", "host", testSettings(), newFakeAdapter(ModeTurnBased))
	require.NoError(t, err)

	assert.Same(t, s, reg.Lookup("chan-1"))
	assert.Nil(t, reg.Lookup("chan-2"))
	assert.Same(t, s, reg.FindHostedBy("host", "guild-1"))

	reg.Destroy("chan-1")
	assert.Nil(t, reg.Lookup("chan-1"))
	assert.Nil(t, reg.FindHostedBy("host", "guild-1"))

	// Destroying an absent channel is a silent no-op.
	reg.Destroy("chan-1")
	assert.Equal(t, 0, reg.Len())

	// The host slot is freed.
	_, err = reg.Create("chan-9", "guild-1", "host", "host", testSettings(), newFakeAdapter(ModeTurnBased))
	assert.NoError(t, err)
}

func TestRegistryHostTransferFreesSlot(t *testing.T) {
	em := newMockEmitter()
	reg, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob")

	require.NoError(t, s.TransferHost("alice", "bob"))
	assert.Same(t, s, reg.FindHostedBy("bob", "guild-1"))
	assert.Nil(t, reg.FindHostedBy("alice", "guild-1"))

	// The previous host may now host elsewhere in the same guild.
	_, err := reg.Create("chan-2", "guild-1", "alice", "alice", testSettings(), newFakeAdapter(ModeTurnBased))
	assert.NoError(t, err)
}

func TestRegistryUpstreamDeletionClosesSession(t *testing.T) {
	em := newMockEmitter()
	reg, s := newTestSession(newFakeAdapter(ModeTurnBased), em, "alice", "bob")

	reg.HandleThreadDeleted("chan-1")
	assert.Equal(t, PhaseEnded, s.Phase())
	assert.Equal(t, CloseThreadDeleted, s.CloseReason())
	assert.Nil(t, reg.Lookup("chan-1"))

	// A trailing channel deletion for the same session is tolerated.
	reg.HandleChannelDeleted("chan-1")
	assert.Equal(t, CloseThreadDeleted, s.CloseReason())
	assert.Equal(t, 1, em.count(EventForceClosed))
}
