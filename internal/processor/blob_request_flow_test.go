package processor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ocx/backend/internal/seqid"
)

func TestChunkNumbersSlimIsSplitInfoOnly(t *testing.T) {
	b := &blobRequestFlow{tse: TseSlim}
	require.Equal(t, []int{0}, b.chunkNumbers(seqid.Id2Info{Sat: 4, Info: 100, Chunks: 3}))
}

func TestChunkNumbersWholeWalksEveryChunk(t *testing.T) {
	b := &blobRequestFlow{tse: TseWhole}
	require.Equal(t, []int{0, 1, 2, 3}, b.chunkNumbers(seqid.Id2Info{Sat: 4, Info: 100, Chunks: 3}))
}

func TestChunkNumbersSmartFallsBackToWhole(t *testing.T) {
	b := &blobRequestFlow{tse: TseSmart}
	require.Equal(t, []int{0, 1, 2, 3}, b.chunkNumbers(seqid.Id2Info{Sat: 4, Info: 100, Chunks: 3}))
}

func TestChunkNumbersDefaultFallsBackToWhole(t *testing.T) {
	b := &blobRequestFlow{tse: TseDefault}
	require.Equal(t, []int{0, 1, 2, 3}, b.chunkNumbers(seqid.Id2Info{Sat: 4, Info: 100, Chunks: 3}))
}

func TestChunkNumbersSingleChunkBlob(t *testing.T) {
	b := &blobRequestFlow{tse: TseWhole}
	require.Equal(t, []int{0, 1}, b.chunkNumbers(seqid.Id2Info{Sat: 4, Info: 100, Chunks: 1}))
}

func TestDecideRootDataNoneStopsBeforeSplitCheck(t *testing.T) {
	b := &blobRequestFlow{tse: TseNone}
	require.False(t, b.decideRootData(seqid.BlobProps{Id2Info: "4.100.3"}))
	require.False(t, b.splitMode)
}

func TestDecideRootDataOrigIgnoresId2Info(t *testing.T) {
	b := &blobRequestFlow{tse: TseOrig}
	require.True(t, b.decideRootData(seqid.BlobProps{Id2Info: "4.100.3"}))
	require.False(t, b.splitMode)
}

func TestDecideRootDataUnsplitBlobIsPlainFlow(t *testing.T) {
	b := &blobRequestFlow{tse: TseWhole}
	require.True(t, b.decideRootData(seqid.BlobProps{}))
	require.False(t, b.splitMode)
}

func TestDecideRootDataSplitBlobParsesId2Info(t *testing.T) {
	b := &blobRequestFlow{tse: TseWhole}
	require.False(t, b.decideRootData(seqid.BlobProps{Id2Info: "4.100.3"}))
	require.True(t, b.splitMode)
	require.Nil(t, b.splitErr)
	require.Equal(t, seqid.Id2Info{Sat: 4, Info: 100, Chunks: 3}, b.id2)
}

func TestDecideRootDataMalformedId2InfoSetsSplitErr(t *testing.T) {
	b := &blobRequestFlow{tse: TseWhole}
	require.False(t, b.decideRootData(seqid.BlobProps{Id2Info: "not-an-id2info"}))
	require.True(t, b.splitMode)
	require.NotNil(t, b.splitErr)
}
