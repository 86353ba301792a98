package psgclient

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParserReadsDataChunkFollowedByCompletion(t *testing.T) {
	wire := "PSG-Reply-Chunk: chunk_no=0&data_len=2&item_id=1&item_type=bioseq_info&chunk_type=data\n{}" +
		"PSG-Reply-Chunk: item_id=1&item_type=bioseq_info&chunk_type=meta&n_chunks=1&data_len=0\n" +
		"PSG-Reply-Chunk: item_id=0&item_type=reply&chunk_type=meta&n_chunks=2&data_len=0\n"

	p := NewParser(strings.NewReader(wire))

	c1, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, 1, c1.ItemID)
	require.Equal(t, "bioseq_info", c1.ItemType)
	require.Equal(t, "data", c1.ChunkType)
	require.Equal(t, []byte("{}"), c1.Payload)

	c2, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, "meta", c2.ChunkType)
	require.Equal(t, "1", c2.Args["n_chunks"])

	c3, err := p.Next()
	require.NoError(t, err)
	require.Equal(t, 0, c3.ItemID)
	require.Equal(t, "reply", c3.ItemType)

	_, err = p.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestClientReplyMarksCompleteOnReplyMeta(t *testing.T) {
	wire := "PSG-Reply-Chunk: chunk_no=0&data_len=2&item_id=1&item_type=bioseq_info&chunk_type=data\n{}" +
		"PSG-Reply-Chunk: item_id=1&item_type=bioseq_info&chunk_type=meta&n_chunks=1&data_len=0\n" +
		"PSG-Reply-Chunk: item_id=0&item_type=reply&chunk_type=meta&n_chunks=2&data_len=0\n"

	reply, err := parseReply(strings.NewReader(wire))
	require.NoError(t, err)
	require.True(t, reply.Complete)
	require.Len(t, reply.Items, 2)
	require.True(t, reply.Items[1].Complete)
	require.Equal(t, 1, reply.Items[1].NChunks)
}
