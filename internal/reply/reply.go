// Package reply implements PSG wire framing (spec.md §4.6, C6): item-ids,
// chunk types, completion records, and the final reply-completion chunk.
//
// Grounded on the teacher's internal/protocol wire-frame shape (a struct
// with Marshal/Unmarshal/Validate and an explicit header line before the
// payload) generalized from a single fixed binary frame to PSG's
// variable key=value header line plus payload.
package reply

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ocx/backend/internal/psgerr"
)

// ItemType is the item_type field of a chunk header (spec.md §4.6).
type ItemType string

const (
	ItemBioseqInfo    ItemType = "bioseq_info"
	ItemBlobProp      ItemType = "blob_prop"
	ItemBlob          ItemType = "blob"
	ItemReply         ItemType = "reply"
	ItemBioseqNA      ItemType = "bioseq_na"
	ItemPublicComment ItemType = "public_comment"
	ItemProcessor     ItemType = "processor"
	ItemIPGInfo       ItemType = "ipg_info"
)

// ChunkType is a bitmask over {meta, data, message} (spec.md §4.6).
type ChunkType int

const (
	ChunkData    ChunkType = 1 << iota // payload carries item data
	ChunkMeta                          // completion: carries the item's final n_chunks
	ChunkMessage                       // payload is a human/diagnostic message
)

func (c ChunkType) String() string {
	var parts []string
	if c&ChunkData != 0 {
		parts = append(parts, "data")
	}
	if c&ChunkMeta != 0 {
		parts = append(parts, "meta")
	}
	if c&ChunkMessage != 0 {
		parts = append(parts, "message")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Chunk is one framed PSG reply chunk: a header line of &-joined
// key=value args, followed by an opaque payload.
type Chunk struct {
	ItemID    int
	ItemType  ItemType
	ChunkType ChunkType
	ChunkNo   int
	Args      map[string]string
	Payload   []byte
}

// Encode renders the wire form: "PSG-Reply-Chunk: k=v&k=v\n<payload>".
func (c Chunk) Encode() []byte {
	args := map[string]string{
		"item_id":    fmt.Sprintf("%d", c.ItemID),
		"item_type":  string(c.ItemType),
		"chunk_type": c.ChunkType.String(),
		"data_len":   fmt.Sprintf("%d", len(c.Payload)),
	}
	if c.ChunkNo > 0 || c.ChunkType&ChunkData != 0 {
		args["chunk_no"] = fmt.Sprintf("%d", c.ChunkNo)
	}
	for k, v := range c.Args {
		args[k] = v
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+args[k])
	}

	header := "PSG-Reply-Chunk: " + strings.Join(pairs, "&") + "\n"
	out := make([]byte, 0, len(header)+len(c.Payload))
	out = append(out, header...)
	out = append(out, c.Payload...)
	return out
}

// itemState tracks per-item completion so further emits after a
// completion chunk are rejected, per spec.md §4.6's table.
type itemState struct {
	completed  bool
	propsSeen  bool
	lastChunk  int
	haveChunks bool
}

// Reply owns one request's ordered, mutex-guarded chunk buffer plus the
// per-item-id bookkeeping needed to enforce spec.md §4.6's preconditions.
// Created when the front-end accepts the request; destroyed only after
// the processor finishes and the last chunk is flushed (spec.md §3
// Lifecycle).
type Reply struct {
	mu             sync.Mutex
	nextItemID     int32 // atomic counter; item_id 0 reserved for reply-level messages
	chunks         []Chunk
	totalChunks    int
	items          map[int]*itemState
	replyCompleted bool
}

// New creates an empty Reply ready to accept emits.
func New() *Reply {
	return &Reply{items: make(map[int]*itemState)}
}

// NextItemID allocates a fresh, unique item_id starting at 1.
func (r *Reply) NextItemID() int {
	return int(atomic.AddInt32(&r.nextItemID, 1))
}

func (r *Reply) stateFor(itemID int) *itemState {
	st, ok := r.items[itemID]
	if !ok {
		st = &itemState{}
		r.items[itemID] = st
	}
	return st
}

// PrepareBioseqInfo buffers a bioseq_info data chunk.
func (r *Reply) PrepareBioseqInfo(itemID int, payload []byte, format string) error {
	return r.emitData(itemID, ItemBioseqInfo, payload, map[string]string{"format": format})
}

// PrepareBioseqNA buffers a bioseq_na data chunk (spec.md §6's /ID/get_na:
// "emits one bioseq_na item"). Distinct from PrepareBioseqInfo so a named
// annotation's data chunk and its completion chunk agree on item_type.
func (r *Reply) PrepareBioseqNA(itemID int, payload []byte, format string) error {
	return r.emitData(itemID, ItemBioseqNA, payload, map[string]string{"format": format})
}

// PrepareBlobProp buffers a blob_prop data chunk for blobID and marks the
// item as having seen its props, a precondition for PrepareBlobData.
func (r *Reply) PrepareBlobProp(itemID int, blobID string, jsonPayload []byte) error {
	r.mu.Lock()
	if r.replyCompleted {
		r.mu.Unlock()
		return psgerr.Internal("emit after reply completion")
	}
	st := r.stateFor(itemID)
	if st.completed {
		r.mu.Unlock()
		return psgerr.Internal(fmt.Sprintf("emit for completed item_id=%d", itemID))
	}
	st.propsSeen = true
	r.mu.Unlock()

	return r.emitData(itemID, ItemBlobProp, jsonPayload, map[string]string{"blob_id": blobID})
}

// PrepareBlobData buffers a blob data chunk. Requires PrepareBlobProp to
// have run first for this item_id, and consecutive (gapless) chunk_no
// values starting at 0.
func (r *Reply) PrepareBlobData(itemID int, blobID string, data []byte, chunkNo int) error {
	r.mu.Lock()
	if r.replyCompleted {
		r.mu.Unlock()
		return psgerr.Internal("emit after reply completion")
	}
	st := r.stateFor(itemID)
	if st.completed {
		r.mu.Unlock()
		return psgerr.Internal(fmt.Sprintf("emit for completed item_id=%d", itemID))
	}
	if !st.propsSeen {
		r.mu.Unlock()
		return psgerr.Internal(fmt.Sprintf("blob data emitted before props for item_id=%d", itemID))
	}
	wantChunkNo := 0
	if st.haveChunks {
		wantChunkNo = st.lastChunk + 1
	}
	if chunkNo != wantChunkNo {
		r.mu.Unlock()
		return psgerr.Internal(fmt.Sprintf("non-monotone chunk_no for item_id=%d: want %d, got %d", itemID, wantChunkNo, chunkNo))
	}
	st.lastChunk = chunkNo
	st.haveChunks = true
	r.mu.Unlock()

	c := Chunk{ItemID: itemID, ItemType: ItemBlob, ChunkType: ChunkData, ChunkNo: chunkNo, Payload: data, Args: map[string]string{"blob_id": blobID}}
	r.append(c)
	return nil
}

// PrepareMessage buffers a message chunk, allowed any time before the
// item (or, for item_id 0, the reply) completes.
func (r *Reply) PrepareMessage(itemID int, msg string, status int, code string, severity string) error {
	r.mu.Lock()
	if r.replyCompleted {
		r.mu.Unlock()
		return psgerr.Internal("message emitted after reply completion")
	}
	if itemID != 0 {
		st := r.stateFor(itemID)
		if st.completed {
			r.mu.Unlock()
			return psgerr.Internal(fmt.Sprintf("message emitted for completed item_id=%d", itemID))
		}
	}
	r.mu.Unlock()

	c := Chunk{
		ItemID:    itemID,
		ItemType:  ItemReply,
		ChunkType: ChunkMessage,
		Payload:   []byte(msg),
		Args: map[string]string{
			"status":   fmt.Sprintf("%d", status),
			"code":     code,
			"severity": severity,
		},
	}
	r.append(c)
	return nil
}

// PrepareCompletion buffers the item's final meta chunk. Further emits
// for itemID are rejected afterward.
func (r *Reply) PrepareCompletion(itemID int, itemType ItemType, nChunks int) error {
	r.mu.Lock()
	if r.replyCompleted {
		r.mu.Unlock()
		return psgerr.Internal("completion emitted after reply completion")
	}
	st := r.stateFor(itemID)
	if st.completed {
		r.mu.Unlock()
		return psgerr.Internal(fmt.Sprintf("duplicate completion for item_id=%d", itemID))
	}
	st.completed = true
	r.mu.Unlock()

	c := Chunk{
		ItemID:    itemID,
		ItemType:  itemType,
		ChunkType: ChunkMeta,
		Args:      map[string]string{"n_chunks": fmt.Sprintf("%d", nChunks)},
	}
	r.append(c)
	return nil
}

// PrepareReplyCompletion buffers the final reply-completion chunk.
// Requires every opened item to have already been completed.
func (r *Reply) PrepareReplyCompletion(totalChunks int) error {
	r.mu.Lock()
	if r.replyCompleted {
		r.mu.Unlock()
		return psgerr.Internal("duplicate reply completion")
	}
	for id, st := range r.items {
		if !st.completed {
			r.mu.Unlock()
			return psgerr.Internal(fmt.Sprintf("reply completed with open item_id=%d", id))
		}
	}
	r.replyCompleted = true
	r.mu.Unlock()

	c := Chunk{
		ItemID:    0,
		ItemType:  ItemReply,
		ChunkType: ChunkMeta,
		Args:      map[string]string{"n_chunks": fmt.Sprintf("%d", totalChunks)},
	}
	r.append(c)
	return nil
}

func (r *Reply) emitData(itemID int, itemType ItemType, payload []byte, args map[string]string) error {
	r.mu.Lock()
	if r.replyCompleted {
		r.mu.Unlock()
		return psgerr.Internal("emit after reply completion")
	}
	st := r.stateFor(itemID)
	if st.completed {
		r.mu.Unlock()
		return psgerr.Internal(fmt.Sprintf("emit for completed item_id=%d", itemID))
	}
	r.mu.Unlock()

	r.append(Chunk{ItemID: itemID, ItemType: itemType, ChunkType: ChunkData, Payload: payload, Args: args})
	return nil
}

func (r *Reply) append(c Chunk) {
	r.mu.Lock()
	r.chunks = append(r.chunks, c)
	r.totalChunks++
	r.mu.Unlock()
}

// Drain removes and returns every chunk buffered so far, for the HTTP/2
// writer to flush when the stream becomes write-ready (spec.md §4.6
// "flushing is driven by the HTTP/2 layer").
func (r *Reply) Drain() []Chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.chunks
	r.chunks = nil
	return out
}

// ChunkCount reports how many chunks have been emitted in total so far
// (including ones already drained), for building the reply-completion's
// n_chunks argument (spec.md invariant 2).
func (r *Reply) ChunkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totalChunks
}

// Completed reports whether PrepareReplyCompletion has already run.
func (r *Reply) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replyCompleted
}
