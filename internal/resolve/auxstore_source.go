package resolve

import (
	"context"

	"github.com/ocx/backend/internal/auxstore"
	"github.com/ocx/backend/internal/seqid"
)

// AuxStoreSource is the minimal interface the engine needs from the WGS/OSG
// auxiliary-store plugin (internal/auxstore), narrow for the same testing
// reason as BioseqInfoSource.
type AuxStoreSource interface {
	Lookup(ctx context.Context, accession string, version, seqIDType int) (Record, bool, error)
}

// Record mirrors auxstore.Record's fields the engine needs to synthesize a
// BioseqInfo; kept as a separate type so this package doesn't import
// internal/auxstore just for a struct shape.
type Record struct {
	Accession string
	Version   int
	SeqIdType int
	Gi        int64
	Sat       int
	SatKey    int
}

func (r Record) toBioseqInfo() seqid.BioseqInfo {
	return seqid.BioseqInfo{
		Accession: r.Accession,
		Version:   r.Version,
		SeqIdType: r.SeqIdType,
		GI:        r.Gi,
		BlobId:    seqid.BlobId{Sat: r.Sat, SatKey: r.SatKey},
	}
}

// AuxStoreClient adapts *auxstore.Client to AuxStoreSource, translating
// the plugin's own Record shape into the engine's.
type AuxStoreClient struct {
	Client *auxstore.Client
}

func (a AuxStoreClient) Lookup(ctx context.Context, accession string, version, seqIDType int) (Record, bool, error) {
	rec, found, err := a.Client.Lookup(ctx, accession, version, seqIDType)
	if err != nil || !found {
		return Record{}, found, err
	}
	return Record{
		Accession: rec.Accession,
		Version:   rec.Version,
		SeqIdType: rec.SeqIdType,
		Gi:        rec.Gi,
		Sat:       rec.Sat,
		SatKey:    rec.SatKey,
	}, true, nil
}
