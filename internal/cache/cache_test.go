package cache

import (
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
	"github.com/stretchr/testify/require"

	"github.com/ocx/backend/internal/seqid"
)

func TestFakeCacheFoundNotFound(t *testing.T) {
	c := NewFakeCache()
	c.PutBioseqInfo("NM_000170", 1, 0, seqid.BioseqInfo{Accession: "NM_000170", Version: 1})

	rec, status := c.LookupBioseqInfo("NM_000170", 1, 0, 0)
	require.Equal(t, Found, status)
	require.Equal(t, "NM_000170", rec.Accession)

	_, status = c.LookupBioseqInfo("UNKNOWN", 1, 0, 0)
	require.Equal(t, NotFound, status)
}

func TestFakeCacheFailAll(t *testing.T) {
	c := NewFakeCache()
	c.SetFailAll(true)
	_, status := c.LookupSi2csi("X", 0)
	require.Equal(t, Failure, status)
}

func TestBoltCacheLookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "psg_cache.db")

	// Seed the store by opening it read-write once.
	seed, err := bolt.Open(path, 0o600, nil)
	require.NoError(t, err)
	err = seed.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketBlobProp)
		if err != nil {
			return err
		}
		return b.Put(blobPropKey(4, 12345, Latest), []byte(`{"Size":1024,"Id2Info":""}`))
	})
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	c, err := OpenBoltCache(path, 100*time.Millisecond, 100*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	props, status := c.LookupBlobProp(4, 12345, Latest)
	require.Equal(t, Found, status)
	require.EqualValues(t, 1024, props.Size)

	_, status = c.LookupBlobProp(9, 9, Latest)
	require.Equal(t, NotFound, status)
}
