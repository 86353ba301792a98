package cassfetch

import (
	"github.com/gocql/gocql"

	"github.com/ocx/backend/internal/seqid"
)

// BioseqInfoFetch resolves rows from the bioseq_info table for a given
// accession, optionally narrowed by version/seq-id-type/gi. Cassandra may
// legitimately return more than one row (same accession, different
// version or seq-id-type); the resolution engine performs tie-breaking.
type BioseqInfoFetch struct {
	base

	sess      *Session
	accession string
	version   int
	seqIDType int
	gi        int64

	Rows []seqid.BioseqInfo
	Err  error
}

func NewBioseqInfoFetch(sess *Session, accession string, version, seqIDType int, gi int64, onReady DataReadyCB) *BioseqInfoFetch {
	return &BioseqInfoFetch{
		base:      newBase(onReady),
		sess:      sess,
		accession: accession,
		version:   version,
		seqIDType: seqIDType,
		gi:        gi,
	}
}

func (f *BioseqInfoFetch) Start() {
	f.setState(StateRunning)
	goRun(f.sess, f.run)
}

func (f *BioseqInfoFetch) run() {
	defer f.notifyReady()

	var rows []seqid.BioseqInfo
	err := withRetry(f.sess.cfg, func() error {
		rows = nil
		q := f.sess.CQL.Query(
			`SELECT accession, version, seq_id_type, gi, sat, sat_key, tax_id, mol_type, state, synonyms, date
			 FROM bioseq_info WHERE accession = ?`, f.accession)

		iter := q.Iter()
		var synonyms []string
		for {
			var rec seqid.BioseqInfo
			synonyms = nil
			if !iter.Scan(&rec.Accession, &rec.Version, &rec.SeqIdType, &rec.GI,
				&rec.BlobId.Sat, &rec.BlobId.SatKey, &rec.TaxId, &rec.MolType, &rec.State, &synonyms, &rec.Date) {
				break
			}
			rec.Synonyms = synonyms

			if f.version != 0 && rec.Version != f.version {
				continue
			}
			if f.seqIDType != 0 && rec.SeqIdType != f.seqIDType {
				continue
			}
			if f.gi != 0 && rec.GI != f.gi {
				continue
			}
			rows = append(rows, rec)
		}
		return iter.Close()
	})

	if err != nil && err != gocql.ErrNotFound {
		f.Err = err
		f.setState(StateError)
		return
	}

	f.Rows = rows
	f.setState(StateDone)
}
