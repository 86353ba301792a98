package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ocx/backend/internal/seqid"
)

var (
	bucketBioseqInfo = []byte("bioseq_info")
	bucketSi2csi     = []byte("si2csi")
	bucketBlobProp   = []byte("blob_prop")
)

// BoltCache is the bbolt-backed Cache implementation (spec.md §6 "Persistent
// state layout": three logical databases, read-only for the server
// process). It mirrors the grounded etcd `backend.Backend` shape
// (single *bolt.DB, per-call read transactions) reduced to the three
// read-only lookups this codebase needs.
type BoltCache struct {
	db        *bolt.DB
	opTimeout time.Duration
}

// OpenBoltCache opens path read-only with the given file-lock wait bound.
func OpenBoltCache(path string, lockTimeout, opTimeout time.Duration) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{
		ReadOnly: true,
		Timeout:  lockTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	return &BoltCache{db: db, opTimeout: opTimeout}, nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

// boundedView runs fn under the configured op-timeout, handing the blocking
// bbolt transaction off to its own goroutine so a slow disk read only ever
// blocks the calling task, never the caller beyond opTimeout (spec.md §4.2).
func (c *BoltCache) boundedView(fn func(*bolt.Tx) error) LookupStatus {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.db.View(fn)
	}()

	select {
	case err := <-done:
		if err == errNotFound {
			return NotFound
		}
		if err != nil {
			return Failure
		}
		return Found
	case <-ctx.Done():
		return Failure
	}
}

var errNotFound = fmt.Errorf("cache: key not found")

func bioseqInfoKey(accession string, version, seqIdType int) []byte {
	return []byte(fmt.Sprintf("%s\x00%d\x00%d", accession, version, seqIdType))
}

func si2csiKey(seqID string, seqIdType int) []byte {
	return []byte(fmt.Sprintf("%s\x00%d", seqID, seqIdType))
}

func blobPropKey(sat, satKey int, lastModified LastModified) []byte {
	if lastModified.Known {
		return []byte(fmt.Sprintf("%d\x00%d\x00%d", sat, satKey, lastModified.Value))
	}
	return []byte(fmt.Sprintf("%d\x00%d\x00latest", sat, satKey))
}

func (c *BoltCache) LookupBioseqInfo(accession string, version, seqIdType int, gi int64) (seqid.BioseqInfo, LookupStatus) {
	var rec seqid.BioseqInfo
	status := c.boundedView(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBioseqInfo)
		if b == nil {
			return errNotFound
		}
		raw := b.Get(bioseqInfoKey(accession, version, seqIdType))
		if raw == nil {
			return errNotFound
		}
		return json.Unmarshal(raw, &rec)
	})
	return rec, status
}

func (c *BoltCache) LookupSi2csi(seqID string, seqIdType int) (seqid.BioseqInfo, LookupStatus) {
	var rec seqid.BioseqInfo
	status := c.boundedView(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSi2csi)
		if b == nil {
			return errNotFound
		}
		raw := b.Get(si2csiKey(seqID, seqIdType))
		if raw == nil {
			return errNotFound
		}
		return json.Unmarshal(raw, &rec)
	})
	return rec, status
}

func (c *BoltCache) LookupBlobProp(sat, satKey int, lastModified LastModified) (seqid.BlobProps, LookupStatus) {
	var rec seqid.BlobProps
	status := c.boundedView(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketBlobProp)
		if b == nil {
			return errNotFound
		}
		raw := b.Get(blobPropKey(sat, satKey, lastModified))
		if raw == nil {
			return errNotFound
		}
		return json.Unmarshal(raw, &rec)
	})
	return rec, status
}
