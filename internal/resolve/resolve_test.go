package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ocx/backend/internal/cache"
	"github.com/ocx/backend/internal/psgerr"
	"github.com/ocx/backend/internal/seqid"
)

// fakeSource is a hand-rolled BioseqInfoSource test double, queued with
// canned responses consumed in call order — same shape as the teacher's
// MockJuryClient.
type fakeSource struct {
	calls     int
	responses [][]seqid.BioseqInfo
	err       error
}

func (f *fakeSource) FetchBioseqInfo(ctx context.Context, accession string, version, seqIDType int, gi int64) ([]seqid.BioseqInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.responses) {
		return nil, nil
	}
	rows := f.responses[f.calls]
	f.calls++
	return rows, nil
}

func TestResolveHitsBioseqCache(t *testing.T) {
	c := cache.NewFakeCache()
	c.PutBioseqInfo("NM_000170", 1, 0, seqid.BioseqInfo{Accession: "NM_000170", Version: 1})

	e := New(c, &fakeSource{})
	res, err := e.Resolve(context.Background(), "NM_000170.1", 0, UseCacheDefault)
	require.NoError(t, err)
	require.Equal(t, BioseqCache, res.Result)
	require.Equal(t, "NM_000170", res.Info.Accession)
}

func TestResolveFallsThroughToSi2csiCache(t *testing.T) {
	c := cache.NewFakeCache()
	c.PutSi2csi("NM_000170", 0, seqid.BioseqInfo{Accession: "NM_000170", Version: 2})

	e := New(c, &fakeSource{})
	res, err := e.Resolve(context.Background(), "NM_000170.1", 0, UseCacheDefault)
	require.NoError(t, err)
	require.Equal(t, Si2csiCache, res.Result)
}

func TestResolveCacheOnlyStopsBeforeCassandra(t *testing.T) {
	c := cache.NewFakeCache()
	e := New(c, &fakeSource{})
	res, err := e.Resolve(context.Background(), "NM_999999.1", 0, UseCacheOnly)
	require.NoError(t, err)
	require.Equal(t, NotResolved, res.Result)
}

func TestResolveOneCassandraRecord(t *testing.T) {
	c := cache.NewFakeCache()
	src := &fakeSource{responses: [][]seqid.BioseqInfo{
		{{Accession: "NM_000170", Version: 3}},
	}}
	e := New(c, src)

	res, err := e.Resolve(context.Background(), "NM_000170.3", 0, UseCacheDefault)
	require.NoError(t, err)
	require.Equal(t, BioseqDB, res.Result)
	require.Equal(t, 3, res.Info.Version)
	require.Equal(t, 1, res.RoundTrips)
}

func TestResolveManyRecordsWithVersionIsAmbiguous(t *testing.T) {
	c := cache.NewFakeCache()
	src := &fakeSource{responses: [][]seqid.BioseqInfo{
		{{Accession: "NM_000170", Version: 3}, {Accession: "NM_000170", Version: 3, SeqIdType: 5}},
	}}
	e := New(c, src)

	res, err := e.Resolve(context.Background(), "NM_000170.3", 0, UseCacheDefault)
	require.NoError(t, err)
	require.Equal(t, NotResolved, res.Result)
}

func TestResolveManyRecordsWithoutVersionPicksHighest(t *testing.T) {
	c := cache.NewFakeCache()
	src := &fakeSource{responses: [][]seqid.BioseqInfo{
		{{Accession: "NM_000170", Version: 2}, {Accession: "NM_000170", Version: 5}},
	}}
	e := New(c, src)

	res, err := e.Resolve(context.Background(), "NM_000170", 0, UseCacheDefault)
	require.NoError(t, err)
	require.Equal(t, BioseqDB, res.Result)
	require.Equal(t, 5, res.Info.Version)
}

func TestResolveINSDCRetriesWithoutType(t *testing.T) {
	c := cache.NewFakeCache()
	src := &fakeSource{responses: [][]seqid.BioseqInfo{
		nil,
		{{Accession: "NM_000170", Version: 1}},
	}}
	e := New(c, src)

	res, err := e.Resolve(context.Background(), "NM_000170.1", 5, UseCacheDefault)
	require.NoError(t, err)
	require.Equal(t, BioseqDB, res.Result)
	require.Equal(t, 2, res.RoundTrips)
}

func TestResolveMalformedSeqIdIsBadRequest(t *testing.T) {
	c := cache.NewFakeCache()
	e := New(c, &fakeSource{})
	_, err := e.Resolve(context.Background(), "bad id!!", 0, UseCacheDefault)
	require.Error(t, err)
	pe, ok := err.(*psgerr.Error)
	require.True(t, ok)
	require.Equal(t, psgerr.CodeMalformedSeqId, pe.Code)
}

// fakeAuxSource is a hand-rolled AuxStoreSource test double.
type fakeAuxSource struct {
	rec   Record
	found bool
	err   error
}

func (f *fakeAuxSource) Lookup(ctx context.Context, accession string, version, seqIDType int) (Record, bool, error) {
	return f.rec, f.found, f.err
}

func TestResolveFallsBackToAuxStoreForWGSAccession(t *testing.T) {
	c := cache.NewFakeCache()
	src := &fakeSource{responses: [][]seqid.BioseqInfo{nil}}
	e := New(c, src).WithAuxStore(&fakeAuxSource{
		found: true,
		rec:   Record{Accession: "AAAA01000001", Version: 1, Sat: 4, SatKey: 55},
	})

	res, err := e.Resolve(context.Background(), "AAAA01000001", 0, UseCacheDefault)
	require.NoError(t, err)
	require.Equal(t, BioseqDB, res.Result)
	require.Equal(t, 4, res.Info.BlobId.Sat)
	require.Equal(t, 55, res.Info.BlobId.SatKey)
	require.Equal(t, 2, res.RoundTrips)
}

func TestResolveAuxStoreSkippedForNonWGSAccession(t *testing.T) {
	c := cache.NewFakeCache()
	src := &fakeSource{responses: [][]seqid.BioseqInfo{nil}}
	aux := &fakeAuxSource{found: true, rec: Record{Accession: "NM_000170", Version: 1}}
	e := New(c, src).WithAuxStore(aux)

	res, err := e.Resolve(context.Background(), "NM_000170", 0, UseCacheDefault)
	require.NoError(t, err)
	require.Equal(t, NotResolved, res.Result)
}

func TestResultSucceeded(t *testing.T) {
	require.True(t, BioseqCache.Succeeded())
	require.True(t, BioseqDB.Succeeded())
	require.True(t, Si2csiCache.Succeeded())
	require.True(t, Si2csiDB.Succeeded())
	require.False(t, NotResolved.Succeeded())
}
