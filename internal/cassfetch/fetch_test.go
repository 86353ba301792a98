package cassfetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchStateString(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "running", StateRunning.String())
	require.Equal(t, "done", StateDone.String())
	require.Equal(t, "error", StateError.String())
}

func TestBaseCancelAndNotify(t *testing.T) {
	var notified int
	b := newBase(func() { notified++ })

	require.Equal(t, StateIdle, b.State())
	require.False(t, b.isCancelled())

	b.setState(StateRunning)
	require.Equal(t, StateRunning, b.State())

	b.Cancel()
	require.True(t, b.isCancelled())

	b.notifyReady()
	require.Equal(t, 1, notified)
}
