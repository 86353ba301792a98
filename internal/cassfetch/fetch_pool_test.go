package cassfetch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchPoolBoundsConcurrentGoroutines(t *testing.T) {
	pool := NewFetchPool(2)
	sess := &Session{Pool: pool}

	const n = 6
	var active, maxActive int32
	release := make(chan struct{})
	admitted := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		goRun(sess, func() {
			cur := atomic.AddInt32(&active, 1)
			for {
				old := atomic.LoadInt32(&maxActive)
				if cur <= old {
					break
				}
				if atomic.CompareAndSwapInt32(&maxActive, old, cur) {
					break
				}
			}
			admitted <- struct{}{}
			<-release
			atomic.AddInt32(&active, -1)
		})
	}

	// Only the pool's first two admissions can reach the admitted signal
	// concurrently without anything being released yet.
	for i := 0; i < 2; i++ {
		select {
		case <-admitted:
		case <-time.After(time.Second):
			t.Fatal("pool never admitted its first two goroutines")
		}
	}
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(2), atomic.LoadInt32(&maxActive))

	close(release)
	for i := 0; i < n-2; i++ {
		<-admitted
	}
}

func TestFetchPoolNilSizeIsUnbounded(t *testing.T) {
	require.Nil(t, NewFetchPool(0))
	require.Nil(t, NewFetchPool(-1))

	sess := &Session{}
	done := make(chan struct{})
	goRun(sess, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goRun with no pool never ran")
	}
}

func TestKeyspaceForDefaultsToSessionKeyspace(t *testing.T) {
	s := &Session{Keyspace: "psg_sat1"}
	ks, err := s.KeyspaceFor(4)
	require.NoError(t, err)
	require.Equal(t, "psg_sat1", ks)
}
