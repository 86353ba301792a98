package processor

import (
	"sync"
	"sync/atomic"

	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/reply"
	"github.com/ocx/backend/internal/seqid"
)

type requestBlobState int32

const (
	reqBlobRoot requestBlobState = iota
	reqBlobChildren
	reqBlobDone
)

// blobRequestFlow implements spec.md §4.5's split decision tree on top of
// blobFlow: it drives the target blob's own props+data flow, and if the
// props reveal a split TSE (id2_info present, tse != orig) it suspends
// that flow's data fetch and instead schedules one child blobFlow per
// chunk the requested tse option calls for — the split-info chunk (chunk
// 0) alone for tse=slim, or every chunk 0..Chunks for whole/smart/default
// — reusing TSEChunkProcessor's id2_info-parse-then-chunk-sat-key pattern
// once per chunk instead of once for a single requested chunk.
type blobRequestFlow struct {
	deps Deps
	rep  *reply.Reply
	fs   *fetchSet
	tse  TseOption

	root *blobFlow

	mu        sync.Mutex
	id2       seqid.Id2Info
	splitMode bool
	splitErr  *psgerr.Error
	children  []*blobFlow

	state int32
}

func newBlobRequestFlow(deps Deps, rep *reply.Reply, sat, satKey int, lastModified int64, pinned bool, tse TseOption, fs *fetchSet) *blobRequestFlow {
	b := &blobRequestFlow{deps: deps, rep: rep, fs: fs, tse: tse, state: int32(reqBlobRoot)}
	b.root = newBlobFlow(deps, rep, sat, satKey, lastModified, pinned, fs)
	b.root.decideData = b.decideRootData
	return b
}

func (b *blobRequestFlow) start() {
	b.root.start()
}

// decideRootData runs from inside the root blobFlow's advanceProps, right
// after its props chunk has been emitted. Returning false tells the root
// flow to stop (props-only item); blobRequestFlow then takes over to
// schedule whatever child chunk flows the tse option calls for.
func (b *blobRequestFlow) decideRootData(props seqid.BlobProps) bool {
	if b.tse == TseNone {
		return false
	}
	if b.tse == TseOrig || props.Id2Info == "" {
		return true
	}

	id2, err := seqid.ParseId2Info(props.Id2Info)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.splitMode = true
	if err != nil {
		b.splitErr = psgerr.New(500, psgerr.CodeInvalidId2Info, psgerr.SeverityError, err.Error())
	} else {
		b.id2 = id2
	}
	return false
}

func (b *blobRequestFlow) advance() bool {
	switch requestBlobState(atomic.LoadInt32(&b.state)) {
	case reqBlobRoot:
		return b.advanceRoot()
	case reqBlobChildren:
		return b.advanceChildren()
	default:
		return true
	}
}

func (b *blobRequestFlow) advanceRoot() bool {
	if !b.root.finished() {
		b.root.advance()
		if !b.root.finished() {
			return false
		}
	}

	b.mu.Lock()
	splitMode, splitErr, id2 := b.splitMode, b.splitErr, b.id2
	b.mu.Unlock()

	if !splitMode {
		atomic.StoreInt32(&b.state, int32(reqBlobDone))
		return true
	}
	if splitErr != nil {
		b.emitSplitError(splitErr)
		atomic.StoreInt32(&b.state, int32(reqBlobDone))
		return true
	}

	// Map sat -> sat_name up front: a split chunk's sat may differ from
	// the parent blob's sat, and a missing mapping is fatal for the
	// whole request rather than just one chunk (spec.md §4.1/§4.5).
	if _, err := b.deps.Session.KeyspaceFor(id2.Sat); err != nil {
		b.emitSplitError(fetchErr(err, "unknown satellite"))
		atomic.StoreInt32(&b.state, int32(reqBlobDone))
		return true
	}

	for _, n := range b.chunkNumbers(id2) {
		child := newBlobFlow(b.deps, b.rep, id2.Sat, id2.ChunkSatKey(n), 0, false, b.fs)
		b.children = append(b.children, child)
	}
	if len(b.children) == 0 {
		atomic.StoreInt32(&b.state, int32(reqBlobDone))
		return true
	}

	atomic.StoreInt32(&b.state, int32(reqBlobChildren))
	for _, c := range b.children {
		c.start()
	}
	return false
}

// chunkNumbers returns which chunk numbers (0 = split-info, 1..Chunks =
// data chunks) b.tse calls for. tse=smart has no more precise
// chunk-selection rule specified than "not none, not slim" (documented
// Open Question decision, DESIGN.md), so it behaves like whole.
func (b *blobRequestFlow) chunkNumbers(id2 seqid.Id2Info) []int {
	if b.tse == TseSlim {
		return []int{0}
	}
	out := make([]int, 0, id2.Chunks+1)
	for n := 0; n <= id2.Chunks; n++ {
		out = append(out, n)
	}
	return out
}

func (b *blobRequestFlow) emitSplitError(err *psgerr.Error) {
	itemID := b.rep.NextItemID()
	_ = b.rep.PrepareMessage(itemID, err.Message, err.Status, err.Code, err.Severity.String())
	_ = b.rep.PrepareCompletion(itemID, reply.ItemBlobProp, 1)
}

func (b *blobRequestFlow) advanceChildren() bool {
	allDone := true
	for _, c := range b.children {
		if !c.finished() {
			c.advance()
		}
		if !c.finished() {
			allDone = false
		}
	}
	if !allDone {
		return false
	}
	atomic.StoreInt32(&b.state, int32(reqBlobDone))
	return true
}

func (b *blobRequestFlow) finished() bool {
	return requestBlobState(atomic.LoadInt32(&b.state)) == reqBlobDone
}
