package cassfetch

import (
	"github.com/gocql/gocql"
)

// Chunk is one piece of blob data as stored across the chunked blob table;
// large blobs are split across multiple rows (spec.md §4.3 "blob chunk
// storage"), delivered to the caller in ascending chunk-number order.
type Chunk struct {
	ChunkNo int
	Data    []byte
	Last    bool
}

// OnChunk is invoked once per chunk, in order, with Last set on the final
// call of a successful fetch.
type OnChunk func(Chunk)

// BlobFetch streams the raw chunk rows of a single (sat, sat_key) blob.
type BlobFetch struct {
	base

	sess        *Session
	sat, satKey int
	onChunk     OnChunk

	Err error
}

func NewBlobFetch(sess *Session, sat, satKey int, onChunk OnChunk, onReady DataReadyCB) *BlobFetch {
	return &BlobFetch{
		base:    newBase(onReady),
		sess:    sess,
		sat:     sat,
		satKey:  satKey,
		onChunk: onChunk,
	}
}

func (f *BlobFetch) Start() {
	f.setState(StateRunning)
	goRun(f.sess, f.run)
}

func (f *BlobFetch) run() {
	defer f.notifyReady()

	ks, err := f.sess.KeyspaceFor(f.sat)
	if err != nil {
		f.Err = err
		f.setState(StateError)
		return
	}

	var rows []Chunk
	err = withRetry(f.sess.cfg, func() error {
		rows = nil
		iter := f.sess.CQL.Query(
			`SELECT chunk_no, data FROM `+ks+`.blob_chunk WHERE sat_key = ? ORDER BY chunk_no ASC`,
			f.satKey).Iter()

		var chunkNo int
		var data []byte
		for iter.Scan(&chunkNo, &data) {
			cp := make([]byte, len(data))
			copy(cp, data)
			rows = append(rows, Chunk{ChunkNo: chunkNo, Data: cp})
		}
		return iter.Close()
	})

	if err != nil && err != gocql.ErrNotFound {
		f.Err = err
		f.setState(StateError)
		return
	}

	for i, c := range rows {
		if f.isCancelled() {
			f.setState(StateError)
			return
		}
		c.Last = i == len(rows)-1
		if f.onChunk != nil {
			f.onChunk(c)
		}
	}

	f.setState(StateDone)
}
