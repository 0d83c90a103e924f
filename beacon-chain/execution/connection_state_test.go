package execution

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionTracker_S7Scenario(t *testing.T) {
	ct := NewConnectionTracker()
	require.Equal(t, StateOnline, ct.State())

	ct.OnPayloadStatus(StatusSyncing)
	require.Equal(t, StateSyncing, ct.State())

	ct.OnTransportError(TransportErrConnRefused)
	require.Equal(t, StateOffline, ct.State())

	ok := ct.RequestTransition(StateOnline, StatusUnknown)
	require.False(t, ok, "OFFLINE->ONLINE without an explicit successful payload response must be rejected")
	require.Equal(t, StateOffline, ct.State())

	ok = ct.RequestTransition(StateOnline, StatusValid)
	require.True(t, ok)
	require.Equal(t, StateOnline, ct.State())
}
