package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ocx/backend/internal/cache"
	"github.com/ocx/backend/internal/config"
	"github.com/ocx/backend/internal/processor"
	"github.com/ocx/backend/internal/resolve"
	"github.com/ocx/backend/internal/seqid"
)

type fakeBioseqSource struct{}

func (fakeBioseqSource) FetchBioseqInfo(ctx context.Context, accession string, version, seqIDType int, gi int64) ([]seqid.BioseqInfo, error) {
	return nil, nil
}

func testServer(t *testing.T) *Server {
	c := cache.NewFakeCache()
	c.PutBioseqInfo("NM_000170", 1, 0, seqid.BioseqInfo{Accession: "NM_000170", Version: 1})
	engine := resolve.New(c, fakeBioseqSource{})
	reg := processor.NewRegistry(processor.Deps{Resolve: engine})
	return New(config.ServerConfig{ListenAddr: ":0"}, reg, nil)
}

func TestResolveEndpointMissingSeqIdIs400(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/ID/resolve", nil)
	w := httptest.NewRecorder()
	s.handleResolve(w, req)
	require.Equal(t, 400, w.Code)
}

func TestResolveEndpointReturnsBioseqInfoChunk(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/ID/resolve?seq_id=NM_000170.1", nil)
	w := httptest.NewRecorder()
	s.handleResolve(w, req)

	body := w.Body.String()
	require.Contains(t, body, "PSG-Reply-Chunk:")
	require.Contains(t, body, "item_type=bioseq_info")
	require.True(t, strings.Contains(body, "n_chunks="))
}

func TestGetBlobMissingBlobIdIs400(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/ID/getblob", nil)
	w := httptest.NewRecorder()
	s.handleGetBlob(w, req)
	require.Equal(t, 400, w.Code)
}

func TestGetBlobMalformedBlobIdIs400(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/ID/getblob?blob_id=not-a-blob-id", nil)
	w := httptest.NewRecorder()
	s.handleGetBlob(w, req)
	require.Equal(t, 400, w.Code)
}

func TestTSEChunkMissingParamsIs400(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/ID/get_tse_chunk?tse_id=4.5", nil)
	w := httptest.NewRecorder()
	s.handleTSEChunk(w, req)
	require.Equal(t, 400, w.Code)
}

func TestNamedAnnotMissingNamesIs400(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/ID/get_na?seq_id=NM_000170", nil)
	w := httptest.NewRecorder()
	s.handleNamedAnnot(w, req)
	require.Equal(t, 400, w.Code)
}
