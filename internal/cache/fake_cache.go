package cache

import (
	"sync"

	"github.com/ocx/backend/internal/seqid"
)

// FakeCache is an in-memory Cache used by tests across this module
// (internal/resolve, internal/processor) that need a cache collaborator
// without standing up a real bbolt file.
type FakeCache struct {
	mu         sync.RWMutex
	bioseqInfo map[string]seqid.BioseqInfo
	si2csi     map[string]seqid.BioseqInfo
	blobProp   map[string]seqid.BlobProps
	failAll    bool
}

func NewFakeCache() *FakeCache {
	return &FakeCache{
		bioseqInfo: make(map[string]seqid.BioseqInfo),
		si2csi:     make(map[string]seqid.BioseqInfo),
		blobProp:   make(map[string]seqid.BlobProps),
	}
}

// SetFailAll forces every lookup to return Failure, for exercising the
// "cache failure -> proceed to Cassandra" path (spec.md §4.2).
func (f *FakeCache) SetFailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = fail
}

func (f *FakeCache) PutBioseqInfo(accession string, version, seqIdType int, rec seqid.BioseqInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bioseqInfo[bioseqInfoMapKey(accession, version, seqIdType)] = rec
}

func (f *FakeCache) PutSi2csi(seqID string, seqIdType int, rec seqid.BioseqInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.si2csi[si2csiMapKey(seqID, seqIdType)] = rec
}

func (f *FakeCache) PutBlobProp(sat, satKey int, rec seqid.BlobProps) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobProp[blobPropMapKey(sat, satKey)] = rec
}

func bioseqInfoMapKey(accession string, version, seqIdType int) string {
	return string(bioseqInfoKey(accession, version, seqIdType))
}
func si2csiMapKey(seqID string, seqIdType int) string { return string(si2csiKey(seqID, seqIdType)) }
func blobPropMapKey(sat, satKey int) string           { return string(blobPropKey(sat, satKey, Latest)) }

func (f *FakeCache) LookupBioseqInfo(accession string, version, seqIdType int, gi int64) (seqid.BioseqInfo, LookupStatus) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.failAll {
		return seqid.BioseqInfo{}, Failure
	}
	if rec, ok := f.bioseqInfo[bioseqInfoMapKey(accession, version, seqIdType)]; ok {
		return rec, Found
	}
	return seqid.BioseqInfo{}, NotFound
}

func (f *FakeCache) LookupSi2csi(seqID string, seqIdType int) (seqid.BioseqInfo, LookupStatus) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.failAll {
		return seqid.BioseqInfo{}, Failure
	}
	if rec, ok := f.si2csi[si2csiMapKey(seqID, seqIdType)]; ok {
		return rec, Found
	}
	return seqid.BioseqInfo{}, NotFound
}

func (f *FakeCache) LookupBlobProp(sat, satKey int, lastModified LastModified) (seqid.BlobProps, LookupStatus) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.failAll {
		return seqid.BlobProps{}, Failure
	}
	if rec, ok := f.blobProp[blobPropMapKey(sat, satKey)]; ok {
		return rec, Found
	}
	return seqid.BlobProps{}, NotFound
}

func (f *FakeCache) Close() error { return nil }
