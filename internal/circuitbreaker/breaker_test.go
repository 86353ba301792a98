package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ocx/backend/internal/psgerr"
)

func TestBreakerTripsOnConsecutiveFailures(t *testing.T) {
	cb := New(&Config{
		Name:        "test",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
	})

	boom := errors.New("boom")
	_, _ = cb.Execute(func() (interface{}, error) { return nil, boom })
	require.Equal(t, StateClosed, cb.State())
	_, _ = cb.Execute(func() (interface{}, error) { return nil, boom })
	require.Equal(t, StateOpen, cb.State())

	_, err := cb.Execute(func() (interface{}, error) { return "unreachable", nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestIsInfraFailureIgnoresClientFaultErrors(t *testing.T) {
	require.False(t, isInfraFailure(psgerr.UnknownSatellite(7)))
	require.False(t, isInfraFailure(psgerr.New(500, psgerr.CodeInvalidId2Info, psgerr.SeverityError, "bad id2_info")))
	require.False(t, isInfraFailure(psgerr.NotFound(psgerr.CodeBlobPropsNotFound, "missing")))
}

func TestIsInfraFailureCountsBackendFaults(t *testing.T) {
	require.True(t, isInfraFailure(psgerr.Transient(psgerr.CodeCassandraUnavailable, "timeout")))
	require.True(t, isInfraFailure(errors.New("raw driver error")))
}

func TestPSGCircuitBreakerDoesNotTripOnUnknownSatellite(t *testing.T) {
	breakers := NewPSGCircuitBreakers()

	for i := 0; i < 10; i++ {
		_, _ = breakers.Cassandra.Execute(func() (interface{}, error) {
			return nil, psgerr.UnknownSatellite(99)
		})
	}

	require.Equal(t, StateClosed, breakers.Cassandra.State())
}

func TestPSGCircuitBreakerTripsOnCassandraUnavailable(t *testing.T) {
	breakers := NewPSGCircuitBreakers()

	for i := 0; i < 5; i++ {
		_, _ = breakers.Cassandra.Execute(func() (interface{}, error) {
			return nil, psgerr.Transient(psgerr.CodeCassandraUnavailable, "no hosts available")
		})
	}

	require.Equal(t, StateOpen, breakers.Cassandra.State())
}
