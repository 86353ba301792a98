package psgclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// writeWireChunk writes one chunk in the same format internal/reply's
// Chunk.Encode produces.
func writeWireChunk(w http.ResponseWriter, itemID int, itemType, chunkType string, payload []byte) {
	fmt.Fprintf(w, "PSG-Reply-Chunk: item_id=%d&item_type=%s&chunk_type=%s&data_len=%d\n",
		itemID, itemType, chunkType, len(payload))
	w.Write(payload)
}

func newH2CServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	h2s := &http2.Server{}
	srv := httptest.NewServer(h2c.NewHandler(handler, h2s))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientSubmitParsesFullReply(t *testing.T) {
	srv := newH2CServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "NM_000170.1", r.URL.Query().Get("seq_id"))
		writeWireChunk(w, 1, "bioseq_info", "data", []byte(`{"accession":"NM_000170"}`))
		writeWireChunk(w, 1, "bioseq_info", "meta", nil)
		writeWireChunk(w, 0, "reply", "meta", nil)
	})

	client := NewClient(Config{Servers: []string{srv.URL}, RequestTimeout: 2 * time.Second})
	defer client.Close()

	reply, err := client.Submit(context.Background(), Request{
		Path:  "/ID/resolve",
		Query: map[string]string{"seq_id": "NM_000170.1"},
	})
	require.NoError(t, err)
	require.True(t, reply.Complete)
	require.Len(t, reply.Items, 2)
	require.True(t, reply.Items[1].Complete)
	require.Equal(t, `{"accession":"NM_000170"}`, string(reply.Items[1].Chunks[0].Payload))
}

func TestClientSubmitRejectsDuplicateInFlightID(t *testing.T) {
	block := make(chan struct{})
	srv := newH2CServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-block
		writeWireChunk(w, 0, "reply", "meta", nil)
	})

	client := NewClient(Config{Servers: []string{srv.URL}, RequestTimeout: 2 * time.Second})
	defer client.Close()

	done := make(chan struct{})
	go func() {
		_, _ = client.Submit(context.Background(), Request{ID: "dup", Path: "/ID/resolve"})
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := client.Submit(context.Background(), Request{ID: "dup", Path: "/ID/resolve"})
		return err != nil
	}, time.Second, 10*time.Millisecond)

	close(block)
	<-done
}

func TestClientSubmitFailsWhenNoServersConfigured(t *testing.T) {
	client := NewClient(Config{RequestTimeout: 200 * time.Millisecond, RequestRetries: 0, RefusedStreamRetries: 0})
	defer client.Close()

	_, err := client.Submit(context.Background(), Request{Path: "/ID/resolve"})
	require.Error(t, err)
}
