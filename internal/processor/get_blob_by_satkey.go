package processor

import (
	"sync/atomic"

	"github.com/ocx/backend/internal/reply"
)

// GetBlobBySatSatKeyProcessor handles /ID/getblob: the caller already
// supplies (sat, sat_key), so the resolution step is skipped entirely.
type GetBlobBySatSatKeyProcessor struct {
	deps Deps
	req  *Request
	rep  *reply.Reply
	fs   *fetchSet
	flow *blobRequestFlow

	cancelled int32
}

func NewGetBlobBySatSatKeyProcessor(deps Deps, req *Request, rep *reply.Reply) *GetBlobBySatSatKeyProcessor {
	p := &GetBlobBySatSatKeyProcessor{deps: deps, req: req, rep: rep, fs: newFetchSet()}
	p.flow = newBlobRequestFlow(deps, rep, req.Sat, req.SatKey, req.LastModified, req.HasLastMod, req.Tse, p.fs)
	return p
}

func (p *GetBlobBySatSatKeyProcessor) Ready() <-chan struct{} { return p.fs.Ready() }

func (p *GetBlobBySatSatKeyProcessor) Process() {
	p.flow.start()
}

func (p *GetBlobBySatSatKeyProcessor) ProcessEvent() {
	if p.flow.finished() {
		return
	}
	if p.flow.advance() && p.flow.finished() {
		p.signalReplyDone()
	}
}

func (p *GetBlobBySatSatKeyProcessor) signalReplyDone() {
	if p.rep.Completed() {
		return
	}
	_ = p.rep.PrepareReplyCompletion(p.rep.ChunkCount() + 1)
}

func (p *GetBlobBySatSatKeyProcessor) Cancel() {
	atomic.StoreInt32(&p.cancelled, 1)
	p.fs.cancelAll()
}

func (p *GetBlobBySatSatKeyProcessor) IsFinished() bool {
	return p.rep.Completed()
}
