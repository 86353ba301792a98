package resolve

import (
	"context"
	"errors"

	"github.com/ocx/backend/internal/cassfetch"
	"github.com/ocx/backend/internal/circuitbreaker"
	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/seqid"
)

// CassandraSource adapts a *cassfetch.Session to BioseqInfoSource, waiting
// on the fetch's DataReadyCB wakeup to turn it into a single call the
// engine can await. The Resolution Engine is not on the processor's hot
// event-loop path (spec.md §4.4 treats resolution as a self-contained
// sub-step), so blocking here is appropriate.
type CassandraSource struct {
	Session *cassfetch.Session

	// Breaker, if set, trips the Cassandra circuit after a run of
	// consecutive failures so a degraded cluster fails requests fast
	// instead of letting every stream time out waiting on it.
	Breaker *circuitbreaker.CircuitBreaker
}

func NewCassandraSource(sess *cassfetch.Session) *CassandraSource {
	return &CassandraSource{Session: sess}
}

func (s *CassandraSource) FetchBioseqInfo(ctx context.Context, accession string, version, seqIDType int, gi int64) ([]seqid.BioseqInfo, error) {
	if s.Breaker == nil {
		return s.fetch(ctx, accession, version, seqIDType, gi)
	}

	rows, err := s.Breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		return s.fetch(ctx, accession, version, seqIDType, gi)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return nil, psgerr.Overloaded("cassandra circuit open")
		}
		return nil, err
	}
	return rows.([]seqid.BioseqInfo), nil
}

func (s *CassandraSource) fetch(ctx context.Context, accession string, version, seqIDType int, gi int64) ([]seqid.BioseqInfo, error) {
	done := make(chan struct{}, 1)
	f := cassfetch.NewBioseqInfoFetch(s.Session, accession, version, seqIDType, gi, func() {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	f.Start()

	select {
	case <-done:
	case <-ctx.Done():
		f.Cancel()
		return nil, psgerr.Cancelled()
	}

	if f.State() == cassfetch.StateError {
		msg := "bioseq_info fetch failed"
		if f.Err != nil {
			msg = msg + ": " + f.Err.Error()
		}
		return nil, psgerr.Transient(psgerr.CodeCassandraUnavailable, msg)
	}
	return f.Rows, nil
}
