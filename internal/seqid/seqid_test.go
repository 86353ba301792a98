package seqid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAccessionWithVersion(t *testing.T) {
	id, outcome := Parse("NM_000170.1", 0)
	require.Equal(t, Parsed, outcome)
	require.Equal(t, "NM_000170", id.Accession)
	require.Equal(t, 1, id.Version)
	require.Equal(t, "NM_000170.1", id.String())
}

func TestParsePlainAccession(t *testing.T) {
	id, outcome := Parse("AC_000001", 0)
	require.Equal(t, Parsed, outcome)
	require.Equal(t, 0, id.Version)
	require.Equal(t, "AC_000001", id.String())
}

func TestParseInvalidPunctuation(t *testing.T) {
	_, outcome := Parse("foo/bar.baz", 0)
	require.Equal(t, Invalid, outcome)
}

func TestParseEmpty(t *testing.T) {
	_, outcome := Parse("", 0)
	require.Equal(t, Invalid, outcome)
}

func TestIsINSDC(t *testing.T) {
	require.True(t, IsINSDC(5))
	require.True(t, IsINSDC(12))
	require.False(t, IsINSDC(999))
}

func TestOSLTVariantsVersionAndType(t *testing.T) {
	id, _ := Parse("AB012345.2", 5) // INSDC type
	primary, secondary := OSLTVariants(id)
	require.Equal(t, id, primary)

	found := map[string]bool{}
	for _, s := range secondary {
		found[s.String()] = true
	}
	require.True(t, found["AB012345"], "version-stripped variant expected")
}

func TestParseBlobIdRoundTrip(t *testing.T) {
	b, err := ParseBlobId("4.12345")
	require.NoError(t, err)
	require.Equal(t, 4, b.Sat)
	require.Equal(t, 12345, b.SatKey)
	require.Equal(t, "4.12345", b.String())
}

func TestParseBlobIdRejectsMalformed(t *testing.T) {
	_, err := ParseBlobId("not-a-blob-id")
	require.Error(t, err)

	_, err = ParseBlobId("-1.5")
	require.Error(t, err)
}

func TestParseId2Info(t *testing.T) {
	info, err := ParseId2Info("4.1000.3")
	require.NoError(t, err)
	require.Equal(t, 4, info.GetSat())
	require.Equal(t, 1000, info.GetInfo())
	require.Equal(t, 3, info.GetChunks())
	require.Equal(t, "4.1000.3", info.String())

	require.Equal(t, 997, info.ChunkSatKey(1))
	require.Equal(t, 999, info.ChunkSatKey(3))
	require.Equal(t, 996, info.SplitInfoSatKey())
}

func TestParseId2InfoInvalid(t *testing.T) {
	_, err := ParseId2Info("garbage")
	require.Error(t, err)
}

func TestStateFlagsForbidden(t *testing.T) {
	require.True(t, StateWithdrawn.Forbidden())
	require.True(t, StateSuppressed.Forbidden())
	require.False(t, StateDead.Forbidden())
	require.False(t, StateLive.Forbidden())
}
