package processor

import (
	"sync"
	"sync/atomic"

	"github.com/ocx/backend/internal/cassfetch"
	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/reply"
	"github.com/ocx/backend/internal/seqid"
)

// TSEChunkProcessor handles /ID/get_tse_chunk: resolve the requested
// split_version to its id2_info via split history, compute the chunk's
// sat_key, then run the standard props+data blob flow against it.
type TSEChunkProcessor struct {
	deps Deps
	req  *Request
	rep  *reply.Reply
	fs   *fetchSet

	mu         sync.Mutex
	splitFetch *cassfetch.SplitHistoryFetch
	flow       *blobFlow
	cancelled  int32
}

func NewTSEChunkProcessor(deps Deps, req *Request, rep *reply.Reply) *TSEChunkProcessor {
	return &TSEChunkProcessor{deps: deps, req: req, rep: rep, fs: newFetchSet()}
}

func (p *TSEChunkProcessor) Ready() <-chan struct{} { return p.fs.Ready() }

func (p *TSEChunkProcessor) Process() {
	p.mu.Lock()
	p.splitFetch = cassfetch.NewSplitHistoryFetch(p.deps.Session, p.req.Sat, p.req.SatKey, p.fs.onReady)
	p.mu.Unlock()
	p.fs.add(p.splitFetch)
	p.splitFetch.Start()
}

func (p *TSEChunkProcessor) ProcessEvent() {
	p.mu.Lock()
	flow := p.flow
	split := p.splitFetch
	p.mu.Unlock()

	if flow != nil {
		if !flow.finished() && flow.advance() && flow.finished() {
			p.signalReplyDone()
		}
		return
	}

	if split == nil {
		return
	}
	st := split.State()
	if st != cassfetch.StateDone && st != cassfetch.StateError {
		return
	}
	if st == cassfetch.StateError {
		p.fail(psgerr.Transient(psgerr.CodeCassandraUnavailable, "split_history fetch failed"))
		return
	}

	var id2 seqid.Id2Info
	found := false
	for _, rec := range split.Rows {
		if rec.SplitVersion == p.req.SplitVersion {
			parsed, err := seqid.ParseId2Info(rec.Id2Info)
			if err != nil {
				p.fail(psgerr.New(500, psgerr.CodeInvalidId2Info, psgerr.SeverityError, err.Error()))
				return
			}
			id2 = parsed
			found = true
			break
		}
	}
	if !found {
		p.fail(psgerr.NotFound(psgerr.CodeSplitHistoryNotFound, "split_version not found in history"))
		return
	}

	chunkSatKey := id2.ChunkSatKey(p.req.ChunkNo)

	p.mu.Lock()
	p.flow = newBlobFlow(p.deps, p.rep, p.req.Sat, chunkSatKey, 0, false, p.fs)
	flow = p.flow
	p.mu.Unlock()
	flow.start()
}

func (p *TSEChunkProcessor) fail(err *psgerr.Error) {
	itemID := p.rep.NextItemID()
	_ = p.rep.PrepareMessage(itemID, err.Message, err.Status, err.Code, err.Severity.String())
	_ = p.rep.PrepareCompletion(itemID, reply.ItemBlob, 1)
	p.signalReplyDone()
}

func (p *TSEChunkProcessor) signalReplyDone() {
	if p.rep.Completed() {
		return
	}
	_ = p.rep.PrepareReplyCompletion(p.rep.ChunkCount() + 1)
}

func (p *TSEChunkProcessor) Cancel() {
	atomic.StoreInt32(&p.cancelled, 1)
	p.fs.cancelAll()
}

func (p *TSEChunkProcessor) IsFinished() bool {
	return p.rep.Completed()
}
