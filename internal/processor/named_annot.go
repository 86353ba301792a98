package processor

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ocx/backend/internal/cassfetch"
	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/reply"
)

// NamedAnnotProcessor handles /ID/get_na: emits one bioseq_na item per
// matching annotation name (spec.md §6).
type NamedAnnotProcessor struct {
	deps Deps
	req  *Request
	rep  *reply.Reply
	fs   *fetchSet

	mu      sync.Mutex
	fetch   *cassfetch.NAnnotFetch
	emitted bool

	cancelled int32
}

func NewNamedAnnotProcessor(deps Deps, req *Request, rep *reply.Reply) *NamedAnnotProcessor {
	return &NamedAnnotProcessor{deps: deps, req: req, rep: rep, fs: newFetchSet()}
}

func (p *NamedAnnotProcessor) Ready() <-chan struct{} { return p.fs.Ready() }

func (p *NamedAnnotProcessor) Process() {
	p.mu.Lock()
	p.fetch = cassfetch.NewNAnnotFetch(p.deps.Session, p.req.SeqID, 0, p.req.SeqIDType, p.req.Names, p.fs.onReady)
	p.mu.Unlock()
	p.fs.add(p.fetch)
	p.fetch.Start()
}

func (p *NamedAnnotProcessor) ProcessEvent() {
	p.mu.Lock()
	if p.emitted {
		p.mu.Unlock()
		return
	}
	f := p.fetch
	p.mu.Unlock()

	if f == nil {
		return
	}
	st := f.State()
	if st != cassfetch.StateDone && st != cassfetch.StateError {
		return
	}

	if st == cassfetch.StateError {
		itemID := p.rep.NextItemID()
		_ = p.rep.PrepareMessage(itemID, "na lookup failed", 500, psgerr.CodeCassandraUnavailable, psgerr.SeverityWarning.String())
		_ = p.rep.PrepareCompletion(itemID, reply.ItemReply, 1)
	} else {
		for _, rec := range f.Rows {
			itemID := p.rep.NextItemID()
			payload, _ := json.Marshal(rec)
			_ = p.rep.PrepareBioseqNA(itemID, payload, "json")
			_ = p.rep.PrepareCompletion(itemID, reply.ItemBioseqNA, 1)
		}
		if len(f.Rows) == 0 {
			itemID := p.rep.NextItemID()
			_ = p.rep.PrepareMessage(itemID, "no matching named annotations", 404, psgerr.CodeBioseqInfoNotFound, psgerr.SeverityWarning.String())
			_ = p.rep.PrepareCompletion(itemID, reply.ItemBioseqNA, 1)
		}
	}

	p.mu.Lock()
	p.emitted = true
	p.mu.Unlock()

	if !p.rep.Completed() {
		_ = p.rep.PrepareReplyCompletion(p.rep.ChunkCount() + 1)
	}
}

func (p *NamedAnnotProcessor) Cancel() {
	atomic.StoreInt32(&p.cancelled, 1)
	p.fs.cancelAll()
}

func (p *NamedAnnotProcessor) IsFinished() bool {
	return p.rep.Completed()
}
