package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingNegotiation() *ContactNegotiation {
	listing := draftOffer()
	listing.Status = StatusPublished
	return NewContactNegotiation(listing, "initiator-1")
}

func TestNewContactNegotiation(t *testing.T) {
	n := pendingNegotiation()

	assert.Equal(t, NegotiationPending, n.Status)
	assert.Equal(t, "listing-1", n.ListingID)
	assert.Equal(t, KindOffer, n.ListingKind)
	assert.Equal(t, "owner-1", n.OwnerID)
	assert.Equal(t, "initiator-1", n.InitiatorID)
	assert.Equal(t, 1, n.Version)
	assert.False(t, n.IsTerminal())
}

func TestNegotiationResolve(t *testing.T) {
	n := pendingNegotiation()
	require.NoError(t, n.Resolve(NegotiationAccepted))
	assert.Equal(t, NegotiationAccepted, n.Status)
	assert.True(t, n.IsTerminal())

	n = pendingNegotiation()
	require.NoError(t, n.Resolve(NegotiationRejected))
	assert.Equal(t, NegotiationRejected, n.Status)
	assert.True(t, n.IsTerminal())
}

func TestNegotiationResolveTerminalIsImmutable(t *testing.T) {
	for _, terminal := range []NegotiationStatus{NegotiationAccepted, NegotiationRejected} {
		n := pendingNegotiation()
		require.NoError(t, n.Resolve(terminal))

		for _, to := range []NegotiationStatus{NegotiationAccepted, NegotiationRejected} {
			err := n.Resolve(to)
			var stateErr *StateError
			require.ErrorAs(t, err, &stateErr)
			assert.Equal(t, terminal, n.Status, "terminal status must not move")
		}
	}
}

func TestNegotiationResolveRejectsInvalidTarget(t *testing.T) {
	n := pendingNegotiation()
	var stateErr *StateError
	assert.ErrorAs(t, n.Resolve(NegotiationPending), &stateErr)
	assert.Equal(t, NegotiationPending, n.Status)
}
