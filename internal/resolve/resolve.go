// Package resolve implements the Resolution Engine (spec.md §4.4, C4):
// turning a textual seq-id into a canonical bioseq-info record, trying the
// property cache first and Cassandra second, with INSDC seq-id-type
// fallback and version-ambiguity rules.
//
// Grounded on the teacher's "try-cheapest-source-first, fall through"
// sequencing (internal/service's trust-score resolution in
// Generativebots-ocx-backend-go-svc): a cache check, then a remote call,
// then disambiguation of the remote result — same control-flow shape,
// different domain.
package resolve

import (
	"context"

	"github.com/ocx/backend/internal/auxstore"
	"github.com/ocx/backend/internal/cache"
	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/seqid"
)

// UseCache selects which sources the engine is allowed to consult.
type UseCache int

const (
	UseCacheDefault UseCache = iota
	UseCacheOnly
	UseDBOnly
)

// ResolutionResult tags where a successful result came from, or why it
// failed, per spec.md §4.3's ResolutionResult enum.
type ResolutionResult int

const (
	NotResolved ResolutionResult = iota
	BioseqCache
	BioseqDB
	Si2csiCache
	Si2csiDB
)

func (r ResolutionResult) String() string {
	switch r {
	case BioseqCache:
		return "bioseqCache"
	case BioseqDB:
		return "bioseqDB"
	case Si2csiCache:
		return "si2csiCache"
	case Si2csiDB:
		return "si2csiDB"
	default:
		return "notResolved"
	}
}

// Succeeded reports whether the result is one of the four resolved tags
// (spec.md invariant 4: only these may be forwarded as a canonical record).
func (r ResolutionResult) Succeeded() bool {
	switch r {
	case BioseqCache, BioseqDB, Si2csiCache, Si2csiDB:
		return true
	default:
		return false
	}
}

// BioseqResolution is the output of Resolve: the tagged result plus the
// record (when resolved) and the number of Cassandra round-trips spent,
// which the processor/monitoring layers use for observability.
type BioseqResolution struct {
	Result     ResolutionResult
	Info       seqid.BioseqInfo
	RoundTrips int
}

// BioseqInfoSource is the minimal interface the Resolution Engine needs
// from the Cassandra fetch adapter — narrow enough that tests can satisfy
// it without a live cluster, the same shape as the teacher's RedisClient/
// HubStore "minimal interface any implementation can satisfy" idiom.
type BioseqInfoSource interface {
	FetchBioseqInfo(ctx context.Context, accession string, version, seqIDType int, gi int64) ([]seqid.BioseqInfo, error)
}

// Engine ties the cache and the Cassandra fetch adapter together.
type Engine struct {
	Cache     cache.Cache
	Cassandra BioseqInfoSource

	// AuxStore is consulted, if set, when Cassandra has no bioseq_info row
	// for a WGS-shaped accession (spec.md's distillation is silent on this
	// fallback; see SPEC_FULL.md's auxiliary-store supplement). Nil means
	// the fallback is disabled, which is fine — most accessions never
	// reach it.
	AuxStore AuxStoreSource
}

func New(c cache.Cache, src BioseqInfoSource) *Engine {
	return &Engine{Cache: c, Cassandra: src}
}

// WithAuxStore attaches the WGS/OSG auxiliary-store fallback to e.
func (e *Engine) WithAuxStore(src AuxStoreSource) *Engine {
	e.AuxStore = src
	return e
}

// Resolve runs the six-step algorithm of spec.md §4.4 against input, a
// seq-id in textual (or already-typed) form.
func (e *Engine) Resolve(ctx context.Context, input string, seqIDType int, useCache UseCache) (BioseqResolution, error) {
	parsed, outcome := seqid.Parse(input, seqIDType)
	if outcome == seqid.Invalid {
		return BioseqResolution{}, psgerr.BadRequest(psgerr.CodeMalformedSeqId, "malformed seq-id: "+input)
	}

	primary, secondaries := seqid.OSLTVariants(parsed)

	if useCache != UseDBOnly {
		if rec, status := e.Cache.LookupBioseqInfo(primary.Accession, primary.Version, primary.Type, 0); status == cache.Found {
			return BioseqResolution{Result: BioseqCache, Info: rec}, nil
		}

		for _, alt := range secondaries {
			if rec, status := e.Cache.LookupSi2csi(alt.Accession, alt.Type); status == cache.Found {
				return BioseqResolution{Result: Si2csiCache, Info: rec}, nil
			}
			if rec, status := e.Cache.LookupBioseqInfo(alt.Accession, alt.Version, alt.Type, 0); status == cache.Found {
				return BioseqResolution{Result: BioseqCache, Info: rec}, nil
			}
		}

		if useCache == UseCacheOnly {
			return BioseqResolution{Result: NotResolved}, nil
		}
	}

	res, err := e.resolveFromCassandra(ctx, primary)
	if err != nil {
		return BioseqResolution{}, err
	}
	return res, nil
}

// resolveFromCassandra implements step 5-6: the richest-key lookup, the
// INSDC retry-without-type fallback, and the zero/one/many-records rules.
func (e *Engine) resolveFromCassandra(ctx context.Context, id seqid.SeqId) (BioseqResolution, error) {
	rows, err := e.Cassandra.FetchBioseqInfo(ctx, id.Accession, id.Version, id.Type, 0)
	if err != nil {
		return BioseqResolution{}, err
	}
	roundTrips := 1

	if len(rows) == 0 && id.HasType && seqid.IsINSDC(id.Type) {
		rows, err = e.Cassandra.FetchBioseqInfo(ctx, id.Accession, id.Version, 0, 0)
		if err != nil {
			return BioseqResolution{}, err
		}
		roundTrips++
	}

	if len(rows) == 0 && e.AuxStore != nil && auxstore.LooksLikeWGS(id.Accession) {
		rec, found, err := e.AuxStore.Lookup(ctx, id.Accession, id.Version, id.Type)
		roundTrips++
		if err != nil {
			return BioseqResolution{}, err
		}
		if found {
			return BioseqResolution{Result: BioseqDB, Info: rec.toBioseqInfo(), RoundTrips: roundTrips}, nil
		}
	}

	switch {
	case len(rows) == 0:
		return BioseqResolution{Result: NotResolved, RoundTrips: roundTrips}, nil
	case len(rows) == 1:
		return BioseqResolution{Result: BioseqDB, Info: rows[0], RoundTrips: roundTrips}, nil
	default:
		if id.Version != 0 {
			return BioseqResolution{Result: NotResolved, RoundTrips: roundTrips}, nil
		}
		best := rows[0]
		for _, r := range rows[1:] {
			if r.Version > best.Version {
				best = r
			}
		}
		return BioseqResolution{Result: BioseqDB, Info: best, RoundTrips: roundTrips}, nil
	}
}

