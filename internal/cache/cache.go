// Package cache implements the synchronous Property & Record Cache
// Interface (spec.md §4.2, C2): bioseq-info, si2csi, and blob-prop lookups
// against an embedded, read-only key/value store standing in for LMDB.
package cache

import (
	"github.com/ocx/backend/internal/seqid"
)

// LookupStatus is the tri-state result of every Cache lookup (spec.md §4.2).
type LookupStatus int

const (
	Found LookupStatus = iota
	NotFound
	Failure
)

// LastModified selects which blob-prop revision to return; Latest means
// "pick the most recent" per spec.md §4.2.
type LastModified struct {
	Known bool
	Value int64
}

// Latest is the sentinel meaning "unknown last_modified — pick latest".
var Latest = LastModified{}

// Cache is the synchronous read-only property cache interface. Every
// implementation must bound its own blocking time — spec.md §4.2 requires
// that a cache lookup never block the caller past a configured bound.
type Cache interface {
	LookupBioseqInfo(accession string, version int, seqIdType int, gi int64) (seqid.BioseqInfo, LookupStatus)
	LookupSi2csi(seqID string, seqIdType int) (seqid.BioseqInfo, LookupStatus)
	LookupBlobProp(sat, satKey int, lastModified LastModified) (seqid.BlobProps, LookupStatus)
	Close() error
}
