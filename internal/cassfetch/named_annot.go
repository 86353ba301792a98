package cassfetch

import (
	"github.com/gocql/gocql"

	"github.com/ocx/backend/internal/seqid"
)

// NAnnotFetch resolves named-annotation blob pointers for an accession
// against a requested set of annotation names (spec.md §4.3 "named
// annotation lookup"); only names with a stored row are returned.
type NAnnotFetch struct {
	base

	sess      *Session
	accession string
	version   int
	seqIDType int
	names     []string

	Rows []seqid.NAnnotRecord
	Err  error
}

func NewNAnnotFetch(sess *Session, accession string, version, seqIDType int, names []string, onReady DataReadyCB) *NAnnotFetch {
	return &NAnnotFetch{
		base:      newBase(onReady),
		sess:      sess,
		accession: accession,
		version:   version,
		seqIDType: seqIDType,
		names:     names,
	}
}

func (f *NAnnotFetch) Start() {
	f.setState(StateRunning)
	goRun(f.sess, f.run)
}

func (f *NAnnotFetch) run() {
	defer f.notifyReady()

	var rows []seqid.NAnnotRecord
	err := withRetry(f.sess.cfg, func() error {
		rows = nil
		iter := f.sess.CQL.Query(
			`SELECT annot_name, sat, sat_key FROM na_annot
			 WHERE accession = ? AND version = ? AND seq_id_type = ? AND annot_name IN ?`,
			f.accession, f.version, f.seqIDType, f.names).Iter()

		var name string
		var sat, satKey int
		for iter.Scan(&name, &sat, &satKey) {
			rows = append(rows, seqid.NAnnotRecord{
				Accession: f.accession,
				Version:   f.version,
				SeqIdType: f.seqIDType,
				AnnotName: name,
				Parent:    seqid.BlobId{Sat: sat, SatKey: satKey},
			})
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
