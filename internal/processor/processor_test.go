package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ocx/backend/internal/cache"
	"github.com/ocx/backend/internal/reply"
	"github.com/ocx/backend/internal/resolve"
	"github.com/ocx/backend/internal/seqid"
)

type fakeBioseqSource struct {
	rows []seqid.BioseqInfo
}

func (f *fakeBioseqSource) FetchBioseqInfo(ctx context.Context, accession string, version, seqIDType int, gi int64) ([]seqid.BioseqInfo, error) {
	return f.rows, nil
}

func waitFinished(t *testing.T, p Processor) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case <-p.Ready():
			p.ProcessEvent()
			if p.IsFinished() {
				return
			}
		case <-deadline:
			t.Fatal("processor did not finish in time")
		}
	}
}

func TestResolveProcessorResolvedFromCache(t *testing.T) {
	c := cache.NewFakeCache()
	c.PutBioseqInfo("NM_000170", 1, 0, seqid.BioseqInfo{Accession: "NM_000170", Version: 1})
	engine := resolve.New(c, &fakeBioseqSource{})

	rep := reply.New()
	req := &Request{Kind: KindResolve, SeqID: "NM_000170.1"}
	p := NewResolveProcessor(Deps{Resolve: engine}, req, rep)

	p.Process()
	waitFinished(t, p)

	chunks := rep.Drain()
	require.NotEmpty(t, chunks)
	require.Equal(t, reply.ItemBioseqInfo, chunks[0].ItemType)
	require.True(t, rep.Completed())
}

func TestResolveProcessorNotFound(t *testing.T) {
	c := cache.NewFakeCache()
	engine := resolve.New(c, &fakeBioseqSource{})

	rep := reply.New()
	req := &Request{Kind: KindResolve, SeqID: "NM_999999.1", UseCache: resolve.UseCacheOnly}
	p := NewResolveProcessor(Deps{Resolve: engine}, req, rep)

	p.Process()
	waitFinished(t, p)

	require.True(t, rep.Completed())
}

func TestParseTseOption(t *testing.T) {
	require.Equal(t, TseNone, ParseTseOption("none"))
	require.Equal(t, TseSlim, ParseTseOption("slim"))
	require.Equal(t, TseSmart, ParseTseOption("smart"))
	require.Equal(t, TseWhole, ParseTseOption("whole"))
	require.Equal(t, TseOrig, ParseTseOption("orig"))
	require.Equal(t, TseDefault, ParseTseOption(""))
	require.Equal(t, TseDefault, ParseTseOption("bogus"))
}

func TestRegistryDispatchesByKind(t *testing.T) {
	c := cache.NewFakeCache()
	engine := resolve.New(c, &fakeBioseqSource{})
	reg := NewRegistry(Deps{Resolve: engine})

	rep := reply.New()
	p, ok := reg.CreateProcessor(&Request{Kind: KindResolve, SeqID: "NM_000170"}, rep)
	require.True(t, ok)
	require.IsType(t, &ResolveProcessor{}, p)
}
