package cassfetch

import (
	"github.com/gocql/gocql"

	"github.com/ocx/backend/internal/seqid"
)

// BlobPropsFetch retrieves the property row for a single (sat, sat_key),
// optionally pinned to a specific last_modified revision.
type BlobPropsFetch struct {
	base

	sess         *Session
	sat, satKey  int
	lastModified int64
	pinned       bool

	Props seqid.BlobProps
	Found bool
	Err   error
}

func NewBlobPropsFetch(sess *Session, sat, satKey int, lastModified int64, pinned bool, onReady DataReadyCB) *BlobPropsFetch {
	return &BlobPropsFetch{
		base:         newBase(onReady),
		sess:         sess,
		sat:          sat,
		satKey:       satKey,
		lastModified: lastModified,
		pinned:       pinned,
	}
}

func (f *BlobPropsFetch) Start() {
	f.setState(StateRunning)
	goRun(f.sess, f.run)
}

func (f *BlobPropsFetch) run() {
	defer f.notifyReady()

	ks, err := f.sess.KeyspaceFor(f.sat)
	if err != nil {
		f.Err = err
		f.setState(StateError)
		return
	}

	var q *gocql.Query
	if f.pinned {
		q = f.sess.CQL.Query(
			`SELECT size, last_modified, compression, format, chunk_count, id2_info, state, hup_protected
			 FROM `+ks+`.blob_prop WHERE sat_key = ? AND last_modified = ?`, f.satKey, f.lastModified)
	} else {
		q = f.sess.CQL.Query(
			`SELECT size, last_modified, compression, format, chunk_count, id2_info, state, hup_protected
			 FROM `+ks+`.blob_prop WHERE sat_key = ? ORDER BY last_modified DESC LIMIT 1`, f.satKey)
	}

	var rec seqid.BlobProps
	err = withRetry(f.sess.cfg, func() error {
		return q.Scan(&rec.Size, &rec.LastModified, &rec.Compression, &rec.Format,
			&rec.ChunkCount, &rec.Id2Info, &rec.State, &rec.HUPProtected)
	})

	if err == gocql.ErrNotFound {
		f.Found = false
		f.setState(StateDone)
		return
	}
	if err != nil {
		f.Err = err
		f.setState(StateError)
		return
	}

	f.Props = rec
	f.Found = true
	f.setState(StateDone)
}
