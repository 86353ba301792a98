package psgclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottleDisablesAfterExceedingThreshold(t *testing.T) {
	th := NewThrottle(128, 0.5, 50*time.Millisecond, false)
	require.True(t, th.Available())

	th.RecordSuccess()
	require.True(t, th.Available())

	for i := 0; i < 5; i++ {
		th.RecordFailure()
	}
	require.False(t, th.Available())

	time.Sleep(60 * time.Millisecond)
	require.True(t, th.Available())
}

func TestThrottleUntilDiscoveryStaysDisabled(t *testing.T) {
	th := NewThrottle(128, 0.1, time.Millisecond, true)
	th.RecordFailure()
	th.RecordFailure()
	require.False(t, th.Available())

	time.Sleep(5 * time.Millisecond)
	require.False(t, th.Available())

	th.ResetOnDiscovery()
	require.True(t, th.Available())
}

func TestServerSetPickSkipsDisabledServers(t *testing.T) {
	s := NewServerSet([]string{"http://a", "http://b"})
	for _, e := range s.entries {
		if e.BaseURL == "http://a" {
			for i := 0; i < 10; i++ {
				e.Throttle.RecordFailure()
			}
		}
	}

	for i := 0; i < 20; i++ {
		picked := s.Pick()
		require.NotNil(t, picked)
		require.Equal(t, "http://b", picked.BaseURL)
	}
}

func TestServerSetPickReturnsNilWhenAllDisabled(t *testing.T) {
	s := NewServerSet([]string{"http://a"})
	for i := 0; i < 10; i++ {
		s.entries[0].Throttle.RecordFailure()
	}
	require.Nil(t, s.Pick())
}

func TestQueueTryAdmitRejectsDuplicate(t *testing.T) {
	q := NewQueue()
	require.True(t, q.TryAdmit("r1"))
	require.False(t, q.TryAdmit("r1"))
	q.Remove("r1")
	require.True(t, q.TryAdmit("r1"))
}
