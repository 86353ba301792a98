// Package processor implements the Processor Framework (spec.md §4.5, C5):
// a per-request workflow owning a set of active Cassandra fetches, driven
// by an event loop that calls ProcessEvent whenever a fetch reports
// progress.
//
// Grounded on the teacher's internal/circuitbreaker state-machine style —
// an explicit State enum, switch-driven transitions, and a "discard stale
// callback" guard — generalized here to drive a single request's fetch
// list to completion instead of a circuit's open/closed/half-open cycle.
package processor

import (
	"github.com/ocx/backend/internal/reply"
	"github.com/ocx/backend/internal/resolve"
)

// TseOption selects how much of a split TSE's data a GetBlobBySeqId/
// GetBlobBySatSatKey request wants (spec.md §4.5 "split flow details",
// §6's tse query parameter).
type TseOption int

const (
	// TseDefault means the caller didn't pass tse; treated the same as
	// TseWhole (documented Open Question decision, DESIGN.md).
	TseDefault TseOption = iota
	// TseNone returns only the target blob's own properties; no data of
	// any kind is streamed, split or not (spec.md invariant: no
	// item_type=blob chunk_type=data chunk appears in the reply).
	TseNone
	// TseSlim returns the parent props plus the split-info chunk (chunk
	// 0) only, without the data chunks 1..N.
	TseSlim
	// TseSmart is accepted but, absent a more precise specification of
	// its chunk-selection rule, currently behaves like TseWhole
	// (documented Open Question decision, DESIGN.md).
	TseSmart
	// TseWhole returns the parent props, the split-info chunk, and every
	// data chunk 1..N.
	TseWhole
	// TseOrig ignores id2_info entirely and fetches the blob as if it
	// were unsplit, streaming its own blob_chunk rows directly.
	TseOrig
)

// ParseTseOption maps the tse query value (spec.md §6) onto a TseOption;
// anything unrecognized (including empty) becomes TseDefault.
func ParseTseOption(s string) TseOption {
	switch s {
	case "none":
		return TseNone
	case "slim":
		return TseSlim
	case "smart":
		return TseSmart
	case "whole":
		return TseWhole
	case "orig":
		return TseOrig
	default:
		return TseDefault
	}
}

// RequestKind selects which Processor variant handles a request, mirroring
// the five HTTP endpoints of spec.md §6.
type RequestKind int

const (
	KindResolve RequestKind = iota
	KindGetBySeqID
	KindGetBySatSatKey
	KindTSEChunk
	KindNamedAnnot
)

// Request carries every field any of the five endpoints might need;
// unused fields are simply left zero for a given Kind, matching the
// teacher's flat request-struct style (e.g. escrow's EvaluateAction
// args) over one struct per endpoint.
type Request struct {
	Kind RequestKind

	SeqID     string
	SeqIDType int
	UseCache  resolve.UseCache

	Sat          int
	SatKey       int
	LastModified int64
	HasLastMod   bool

	SplitVersion int
	ChunkNo      int

	// Tse, ExcludeBlobs and Flags are the GetBlobBySeqId/GetBlobBySatSatKey
	// field-shaping parameters of spec.md §6; ExcludeBlobs only applies to
	// KindGetBySeqID (GetBlobBySatSatKey's endpoint has no such parameter).
	Tse          TseOption
	ExcludeBlobs bool
	Flags        map[string]bool

	Names []string
}

// Processor is the common lifecycle every request-handling workflow
// implements (spec.md §4.5's abstract interface table).
type Processor interface {
	// Process kicks off work; must not block past starting goroutines.
	Process()
	// ProcessEvent is called by the event loop when a fetch has signalled
	// progress; it runs peek to advance state.
	ProcessEvent()
	// Cancel requests best-effort cancellation.
	Cancel()
	// IsFinished reports whether the processor has signalled reply
	// completion. It does not check whether the owned fetches have
	// reached done or error.
	IsFinished() bool
	// Ready exposes the channel the event loop selects on for wakeups.
	Ready() <-chan struct{}
}

// CreateFunc builds a Processor for a request this factory recognizes,
// or returns ok=false.
type CreateFunc func(req *Request, rep *reply.Reply) (Processor, bool)

// Registry is the factory table of spec.md §4.5's createProcessor.
type Registry struct {
	factories []CreateFunc
}

// NewRegistry builds a Registry with every built-in processor factory
// registered in endpoint-table order (spec.md §2 C5 row).
func NewRegistry(deps Deps) *Registry {
	r := &Registry{}
	r.Register(func(req *Request, rep *reply.Reply) (Processor, bool) {
		if req.Kind != KindResolve {
			return nil, false
		}
		return NewResolveProcessor(deps, req, rep), true
	})
	r.Register(func(req *Request, rep *reply.Reply) (Processor, bool) {
		if req.Kind != KindGetBySeqID {
			return nil, false
		}
		return NewGetBlobBySeqIDProcessor(deps, req, rep), true
	})
	r.Register(func(req *Request, rep *reply.Reply) (Processor, bool) {
		if req.Kind != KindGetBySatSatKey {
			return nil, false
		}
		return NewGetBlobBySatSatKeyProcessor(deps, req, rep), true
	})
	r.Register(func(req *Request, rep *reply.Reply) (Processor, bool) {
		if req.Kind != KindTSEChunk {
			return nil, false
		}
		return NewTSEChunkProcessor(deps, req, rep), true
	})
	r.Register(func(req *Request, rep *reply.Reply) (Processor, bool) {
		if req.Kind != KindNamedAnnot {
			return nil, false
		}
		return NewNamedAnnotProcessor(deps, req, rep), true
	})
	return r
}

func (r *Registry) Register(f CreateFunc) {
	r.factories = append(r.factories, f)
}

// CreateProcessor returns the first registered factory that recognizes req.
func (r *Registry) CreateProcessor(req *Request, rep *reply.Reply) (Processor, bool) {
	for _, f := range r.factories {
		if p, ok := f(req, rep); ok {
			return p, true
		}
	}
	return nil, false
}
