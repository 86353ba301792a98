package processor

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/reply"
	"github.com/ocx/backend/internal/resolve"
)

// ResolveProcessor handles /ID/resolve: run the Resolution Engine, emit a
// bioseq_info item (or a NotFound message) and the reply completion.
type ResolveProcessor struct {
	deps Deps
	req  *Request
	rep  *reply.Reply

	done      chan struct{}
	finished  int32
	cancelled int32
}

func NewResolveProcessor(deps Deps, req *Request, rep *reply.Reply) *ResolveProcessor {
	return &ResolveProcessor{deps: deps, req: req, rep: rep, done: make(chan struct{}, 1)}
}

func (p *ResolveProcessor) Ready() <-chan struct{} { return p.done }

func (p *ResolveProcessor) Process() {
	go p.run()
}

func (p *ResolveProcessor) run() {
	defer func() {
		select {
		case p.done <- struct{}{}:
		default:
		}
	}()

	if atomic.LoadInt32(&p.cancelled) == 1 {
		p.finishCancelled()
		return
	}

	res, err := p.deps.Resolve.Resolve(context.Background(), p.req.SeqID, p.req.SeqIDType, p.req.UseCache)
	p.deps.recordRoundTrips(res.RoundTrips)
	if err != nil {
		p.emitError(err)
		return
	}
	if !res.Result.Succeeded() {
		p.emitNotFound(res)
		return
	}
	p.emitResolved(res)
}

func (p *ResolveProcessor) emitResolved(res resolve.BioseqResolution) {
	itemID := p.rep.NextItemID()
	payload, _ := json.Marshal(res.Info)
	if err := p.rep.PrepareBioseqInfo(itemID, payload, "json"); err != nil {
		p.emitError(err)
		return
	}
	if err := p.rep.PrepareCompletion(itemID, reply.ItemBioseqInfo, 1); err != nil {
		p.emitError(err)
		return
	}
	p.finish()
}

func (p *ResolveProcessor) emitNotFound(res resolve.BioseqResolution) {
	itemID := p.rep.NextItemID()
	_ = p.rep.PrepareMessage(itemID, "bioseq_info not found", 404, psgerr.CodeBioseqInfoNotFound, psgerr.SeverityWarning.String())
	_ = p.rep.PrepareCompletion(itemID, reply.ItemBioseqInfo, 1)
	p.finish()
}

func (p *ResolveProcessor) emitError(err error) {
	itemID := p.rep.NextItemID()
	pe, ok := err.(*psgerr.Error)
	if !ok {
		pe = psgerr.Internal(err.Error())
	}
	_ = p.rep.PrepareMessage(itemID, pe.Message, pe.Status, pe.Code, pe.Severity.String())
	_ = p.rep.PrepareCompletion(itemID, reply.ItemReply, 1)
	p.finish()
}

func (p *ResolveProcessor) finishCancelled() {
	itemID := p.rep.NextItemID()
	_ = p.rep.PrepareMessage(itemID, "request cancelled", 499, psgerr.CodeCancelled, psgerr.SeverityInfo.String())
	_ = p.rep.PrepareCompletion(itemID, reply.ItemReply, 1)
	p.finish()
}

func (p *ResolveProcessor) finish() {
	_ = p.rep.PrepareReplyCompletion(p.rep.ChunkCount() + 1)
	atomic.StoreInt32(&p.finished, 1)
}

func (p *ResolveProcessor) ProcessEvent() {
	// Resolution runs to completion inside Process's own goroutine
	// (spec.md §4.4 treats it as a self-contained sub-step); there is no
	// further progress to drive here.
}

func (p *ResolveProcessor) Cancel() {
	atomic.StoreInt32(&p.cancelled, 1)
}

func (p *ResolveProcessor) IsFinished() bool {
	return atomic.LoadInt32(&p.finished) == 1
}
