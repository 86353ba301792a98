package processor

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/reply"
)

// GetBlobBySeqIdProcessor handles /ID/get: resolve the seq-id first, emit
// its bioseq_info item, then run the split-aware blob-props/blob-data
// flow against the resolved blob_id (spec.md §4.5's representative
// diagram), unless the caller asked to exclude blobs entirely.
type GetBlobBySeqIdProcessor struct {
	deps Deps
	req  *Request
	rep  *reply.Reply
	fs   *fetchSet

	mu        sync.Mutex
	flow      *blobRequestFlow
	resolved  bool
	notFound  bool
	cancelled int32
}

func NewGetBlobBySeqIDProcessor(deps Deps, req *Request, rep *reply.Reply) *GetBlobBySeqIdProcessor {
	return &GetBlobBySeqIdProcessor{deps: deps, req: req, rep: rep, fs: newFetchSet()}
}

func (p *GetBlobBySeqIdProcessor) Ready() <-chan struct{} { return p.fs.Ready() }

func (p *GetBlobBySeqIdProcessor) Process() {
	go p.resolveThenFetch()
}

func (p *GetBlobBySeqIdProcessor) resolveThenFetch() {
	if atomic.LoadInt32(&p.cancelled) == 1 {
		p.finishCancelled()
		return
	}

	res, err := p.deps.Resolve.Resolve(context.Background(), p.req.SeqID, p.req.SeqIDType, p.req.UseCache)
	p.deps.recordRoundTrips(res.RoundTrips)
	if err != nil {
		p.finishError(err)
		return
	}
	if !res.Result.Succeeded() {
		p.finishNotFound()
		return
	}

	bioseqItemID := p.rep.NextItemID()
	payload, _ := json.Marshal(projectBioseqInfo(res.Info, p.req.Flags))
	_ = p.rep.PrepareBioseqInfo(bioseqItemID, payload, "json")
	_ = p.rep.PrepareCompletion(bioseqItemID, reply.ItemBioseqInfo, 1)

	p.mu.Lock()
	p.resolved = true
	p.mu.Unlock()

	if p.req.ExcludeBlobs {
		p.signalReplyDone()
		p.fs.notify()
		return
	}

	p.mu.Lock()
	p.flow = newBlobRequestFlow(p.deps, p.rep, res.Info.BlobId.Sat, res.Info.BlobId.SatKey, 0, false, p.req.Tse, p.fs)
	flow := p.flow
	p.mu.Unlock()

	flow.start()
}

func (p *GetBlobBySeqIdProcessor) finishNotFound() {
	itemID := p.rep.NextItemID()
	_ = p.rep.PrepareMessage(itemID, "bioseq_info not found", 404, psgerr.CodeBioseqInfoNotFound, psgerr.SeverityWarning.String())
	_ = p.rep.PrepareCompletion(itemID, reply.ItemBioseqInfo, 1)

	p.mu.Lock()
	p.notFound = true
	p.mu.Unlock()

	p.signalReplyDone()
	p.fs.notify()
}

func (p *GetBlobBySeqIdProcessor) finishError(err error) {
	itemID := p.rep.NextItemID()
	pe, ok := err.(*psgerr.Error)
	if !ok {
		pe = psgerr.Internal(err.Error())
	}
	_ = p.rep.PrepareMessage(itemID, pe.Message, pe.Status, pe.Code, pe.Severity.String())
	_ = p.rep.PrepareCompletion(itemID, reply.ItemReply, 1)

	p.mu.Lock()
	p.notFound = true
	p.mu.Unlock()

	p.signalReplyDone()
	p.fs.notify()
}

func (p *GetBlobBySeqIdProcessor) finishCancelled() {
	itemID := p.rep.NextItemID()
	_ = p.rep.PrepareMessage(itemID, "request cancelled", 499, psgerr.CodeCancelled, psgerr.SeverityInfo.String())
	_ = p.rep.PrepareCompletion(itemID, reply.ItemReply, 1)

	p.mu.Lock()
	p.notFound = true
	p.mu.Unlock()

	p.signalReplyDone()
	p.fs.notify()
}

func (p *GetBlobBySeqIdProcessor) ProcessEvent() {
	p.mu.Lock()
	flow := p.flow
	p.mu.Unlock()

	if flow == nil {
		return
	}
	if flow.finished() {
		return
	}
	if flow.advance() && flow.finished() {
		p.signalReplyDone()
	}
}

func (p *GetBlobBySeqIdProcessor) signalReplyDone() {
	if p.rep.Completed() {
		return
	}
	_ = p.rep.PrepareReplyCompletion(p.rep.ChunkCount() + 1)
}

func (p *GetBlobBySeqIdProcessor) Cancel() {
	atomic.StoreInt32(&p.cancelled, 1)
	p.fs.cancelAll()
}

func (p *GetBlobBySeqIdProcessor) IsFinished() bool {
	return p.rep.Completed()
}
