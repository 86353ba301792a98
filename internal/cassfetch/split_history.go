package cassfetch

import (
	"github.com/gocql/gocql"

	"github.com/ocx/backend/internal/seqid"
)

// SplitHistoryFetch retrieves every split_version/id2_info pair recorded
// for a blob, used to resolve a TSE chunk request against the split
// history when the caller did not supply an Id2Info directly.
type SplitHistoryFetch struct {
	base

	sess        *Session
	sat, satKey int

	Rows []seqid.SplitHistoryRecord
	Err  error
}

func NewSplitHistoryFetch(sess *Session, sat, satKey int, onReady DataReadyCB) *SplitHistoryFetch {
	return &SplitHistoryFetch{base: newBase(onReady), sess: sess, sat: sat, satKey: satKey}
}

func (f *SplitHistoryFetch) Start() {
	f.setState(StateRunning)
	goRun(f.sess, f.run)
}

func (f *SplitHistoryFetch) run() {
	defer f.notifyReady()

	ks, err := f.sess.KeyspaceFor(f.sat)
	if err != nil {
		f.Err = err
		f.setState(StateError)
		return
	}

	var rows []seqid.SplitHistoryRecord
	err = withRetry(f.sess.cfg, func() error {
		rows = nil
		iter := f.sess.CQL.Query(
			`SELECT split_version, id2_info FROM `+ks+`.split_history WHERE sat_key = ?`,
			f.satKey).Iter()

		var rec seqid.SplitHistoryRecord
		for iter.Scan(&rec.SplitVersion, &rec.Id2Info) {
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
