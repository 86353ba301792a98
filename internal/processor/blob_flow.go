package processor

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/ocx/backend/internal/cassfetch"
	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/reply"
	"github.com/ocx/backend/internal/seqid"
)

// blobState is the state machine for fetching a single blob's props and
// then its data, following the representative GetBlobBySeqId diagram of
// spec.md §4.5: props first, then either the split flow (id2_info
// present) or the original-blob flow (plain chunk stream).
type blobState int32

const (
	blobStateProps blobState = iota
	blobStateData
	blobStateDone
)

// blobFlow drives one blob item (props + data) to completion, shared by
// GetBlobBySeqIdProcessor and GetBlobBySatSatKeyProcessor.
type blobFlow struct {
	deps   Deps
	rep    *reply.Reply
	itemID int

	sat, satKey  int
	lastModified int64
	pinned       bool

	fs    *fetchSet
	state int32

	// decideData, when set, is consulted right after props are fetched and
	// emitted: it returns whether this flow should go on to stream the
	// blob's own blob_chunk rows as item data. blobRequestFlow uses it to
	// detect a split TSE (props carry id2_info) and divert data fetching
	// to per-chunk child flows instead. Nil means "always fetch data",
	// which is every plain single-blob use (TSEChunkProcessor, tests).
	decideData func(props seqid.BlobProps) bool

	mu         sync.Mutex
	propsFetch *cassfetch.BlobPropsFetch
	blobFetch  *cassfetch.BlobFetch
	itemChunks int32 // chunks emitted for b.itemID so far, excluding its completion
}

func newBlobFlow(deps Deps, rep *reply.Reply, sat, satKey int, lastModified int64, pinned bool, fs *fetchSet) *blobFlow {
	return &blobFlow{
		deps:         deps,
		rep:          rep,
		itemID:       rep.NextItemID(),
		sat:          sat,
		satKey:       satKey,
		lastModified: lastModified,
		pinned:       pinned,
		fs:           fs,
		state:        int32(blobStateProps),
	}
}

func (b *blobFlow) start() {
	b.propsFetch = cassfetch.NewBlobPropsFetch(b.deps.Session, b.sat, b.satKey, b.lastModified, b.pinned, b.fs.onReady)
	b.fs.add(b.propsFetch)
	b.propsFetch.Start()
}

// advance is called from ProcessEvent; it returns true once this flow has
// reached a terminal state (done or error-reported).
func (b *blobFlow) advance() bool {
	switch blobState(atomic.LoadInt32(&b.state)) {
	case blobStateProps:
		return b.advanceProps()
	case blobStateData:
		return b.advanceData()
	default:
		return true
	}
}

func (b *blobFlow) advanceProps() bool {
	st := b.propsFetch.State()
	if st != cassfetch.StateDone && st != cassfetch.StateError {
		return false
	}
	if st == cassfetch.StateError {
		b.emitError(fetchErr(b.propsFetch.Err, "blob_prop fetch failed"))
		return true
	}
	if !b.propsFetch.Found {
		b.emitError(psgerr.NotFound(psgerr.CodeBlobPropsNotFound, "blob_prop not found"))
		return true
	}

	propsJSON, _ := json.Marshal(b.propsFetch.Props)
	blobIDStr := seqid.BlobId{Sat: b.sat, SatKey: b.satKey}.String()
	if err := b.rep.PrepareBlobProp(b.itemID, blobIDStr, propsJSON); err != nil {
		b.emitInternalFinal(err)
		return true
	}
	atomic.AddInt32(&b.itemChunks, 1)

	if b.propsFetch.Props.HUPProtected || b.propsFetch.Props.State.Forbidden() {
		// HUP-protected / withdrawn blobs are not streamed; props alone
		// satisfy the request (spec.md §7 403-class forbidden category).
		b.emitError(psgerr.Forbidden("blob withdrawn or access-restricted"))
		return true
	}

	if b.decideData != nil && !b.decideData(b.propsFetch.Props) {
		_ = b.rep.PrepareCompletion(b.itemID, reply.ItemBlobProp, int(atomic.LoadInt32(&b.itemChunks))+1)
		atomic.StoreInt32(&b.state, int32(blobStateDone))
		return true
	}

	b.blobFetch = cassfetch.NewBlobFetch(b.deps.Session, b.sat, b.satKey, b.onChunk, b.fs.onReady)
	b.fs.add(b.blobFetch)
	atomic.StoreInt32(&b.state, int32(blobStateData))
	b.blobFetch.Start()
	return false
}

func (b *blobFlow) onChunk(c cassfetch.Chunk) {
	b.mu.Lock()
	blobIDStr := seqid.BlobId{Sat: b.sat, SatKey: b.satKey}.String()
	_ = b.rep.PrepareBlobData(b.itemID, blobIDStr, c.Data, c.ChunkNo)
	b.mu.Unlock()
	atomic.AddInt32(&b.itemChunks, 1)
}

func (b *blobFlow) advanceData() bool {
	st := b.blobFetch.State()
	if st != cassfetch.StateDone && st != cassfetch.StateError {
		return false
	}
	if st == cassfetch.StateError {
		b.emitError(fetchErr(b.blobFetch.Err, "blob data fetch failed"))
		return true
	}
	_ = b.rep.PrepareCompletion(b.itemID, reply.ItemBlob, int(atomic.LoadInt32(&b.itemChunks))+1)
	atomic.StoreInt32(&b.state, int32(blobStateDone))
	return true
}

func (b *blobFlow) emitError(err *psgerr.Error) {
	_ = b.rep.PrepareMessage(b.itemID, err.Message, err.Status, err.Code, err.Severity.String())
	atomic.AddInt32(&b.itemChunks, 1)
	_ = b.rep.PrepareCompletion(b.itemID, reply.ItemBlob, int(atomic.LoadInt32(&b.itemChunks))+1)
	atomic.StoreInt32(&b.state, int32(blobStateDone))
}

func (b *blobFlow) emitInternalFinal(err error) {
	b.emitError(psgerr.Internal(err.Error()))
}

// fetchErr reports a fetch's own error as a psgerr.Error when it already
// is one (e.g. UnknownResolvedSatellite raised by Session.KeyspaceFor),
// falling back to a generic transient Cassandra failure otherwise.
func fetchErr(err error, fallbackMsg string) *psgerr.Error {
	if pe, ok := err.(*psgerr.Error); ok {
		return pe
	}
	return psgerr.Transient(psgerr.CodeCassandraUnavailable, fallbackMsg)
}

func (b *blobFlow) finished() bool {
	return blobState(atomic.LoadInt32(&b.state)) == blobStateDone
}
