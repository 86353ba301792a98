package reply

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemIDsAreUniqueAndStartAtOne(t *testing.T) {
	r := New()
	a := r.NextItemID()
	b := r.NextItemID()
	require.Equal(t, 1, a)
	require.Equal(t, 2, b)
}

func TestBioseqInfoFlow(t *testing.T) {
	r := New()
	id := r.NextItemID()

	require.NoError(t, r.PrepareBioseqInfo(id, []byte(`{"accession":"NM_000170"}`), "json"))
	require.NoError(t, r.PrepareCompletion(id, ItemBioseqInfo, 1))

	chunks := r.Drain()
	require.Len(t, chunks, 2)
	require.Equal(t, ChunkData, chunks[0].ChunkType)
	require.Equal(t, ChunkMeta, chunks[1].ChunkType)

	require.NoError(t, r.PrepareReplyCompletion(r.ChunkCount()+1))
	require.True(t, r.Completed())
}

func TestBioseqNAUsesDistinctItemType(t *testing.T) {
	r := New()
	id := r.NextItemID()

	require.NoError(t, r.PrepareBioseqNA(id, []byte(`{"na":"NA_000001"}`), "json"))
	require.NoError(t, r.PrepareCompletion(id, ItemBioseqNA, 1))

	chunks := r.Drain()
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		require.Equal(t, ItemBioseqNA, c.ItemType)
	}
}

func TestBlobDataBeforePropsRejected(t *testing.T) {
	r := New()
	id := r.NextItemID()
	err := r.PrepareBlobData(id, "4.12345", []byte("data"), 0)
	require.Error(t, err)
}

func TestBlobDataNonMonotoneChunkNoRejected(t *testing.T) {
	r := New()
	id := r.NextItemID()
	require.NoError(t, r.PrepareBlobProp(id, "4.12345", []byte(`{}`)))
	require.NoError(t, r.PrepareBlobData(id, "4.12345", []byte("chunk0"), 0))
	err := r.PrepareBlobData(id, "4.12345", []byte("chunk2"), 2)
	require.Error(t, err)
}

func TestBlobDataAscendingChunkNoAccepted(t *testing.T) {
	r := New()
	id := r.NextItemID()
	require.NoError(t, r.PrepareBlobProp(id, "4.12345", []byte(`{}`)))
	require.NoError(t, r.PrepareBlobData(id, "4.12345", []byte("c0"), 0))
	require.NoError(t, r.PrepareBlobData(id, "4.12345", []byte("c1"), 1))
}

func TestEmitAfterCompletionRejected(t *testing.T) {
	r := New()
	id := r.NextItemID()
	require.NoError(t, r.PrepareBioseqInfo(id, []byte(`{}`), "json"))
	require.NoError(t, r.PrepareCompletion(id, ItemBioseqInfo, 1))

	err := r.PrepareBioseqInfo(id, []byte(`{}`), "json")
	require.Error(t, err)
}

func TestReplyCompletionRejectsOpenItems(t *testing.T) {
	r := New()
	id := r.NextItemID()
	require.NoError(t, r.PrepareBioseqInfo(id, []byte(`{}`), "json"))

	err := r.PrepareReplyCompletion(1)
	require.Error(t, err)
}

func TestEmitAfterReplyCompletionRejected(t *testing.T) {
	r := New()
	require.NoError(t, r.PrepareReplyCompletion(0))
	err := r.PrepareMessage(0, "late", 500, "InternalError", "ERROR")
	require.Error(t, err)
}

func TestChunkEncodeIncludesHeaderLine(t *testing.T) {
	c := Chunk{ItemID: 1, ItemType: ItemBioseqInfo, ChunkType: ChunkData, Payload: []byte("x")}
	encoded := string(c.Encode())
	require.Contains(t, encoded, "PSG-Reply-Chunk:")
	require.Contains(t, encoded, "item_id=1")
	require.Contains(t, encoded, "item_type=bioseq_info")
	require.Contains(t, encoded, "\nx")
}
