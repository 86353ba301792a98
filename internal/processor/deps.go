package processor

import (
	"github.com/ocx/backend/internal/cassfetch"
	"github.com/ocx/backend/internal/resolve"
)

// Metrics receives best-effort observability signals from processors. It
// is the same minimal-interface shape as resolve.BioseqInfoSource: any
// collaborator that can count round trips satisfies it, so processor
// doesn't need to import the concrete monitoring system. Nil-safe.
type Metrics interface {
	RecordRoundTrips(source string, roundTrips int)
}

// Deps bundles the collaborators every processor needs, built once at
// server startup and shared read-only across requests (spec.md §5
// "shared-resource policy").
type Deps struct {
	Resolve *resolve.Engine
	Session *cassfetch.Session
	Metrics Metrics
}

func (d Deps) recordRoundTrips(n int) {
	if d.Metrics == nil || n == 0 {
		return
	}
	d.Metrics.RecordRoundTrips("cassandra", n)
}
