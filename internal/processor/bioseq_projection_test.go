package processor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ocx/backend/internal/seqid"
)

func TestProjectBioseqInfoNoFlagsReturnsFullRecord(t *testing.T) {
	info := seqid.BioseqInfo{Accession: "NM_000170", Version: 1, TaxId: 9606}
	got := projectBioseqInfo(info, nil)
	require.Equal(t, info, got)
}

func TestProjectBioseqInfoCanonIDOnly(t *testing.T) {
	info := seqid.BioseqInfo{Accession: "NM_000170", Version: 1, TaxId: 9606, MolType: "na"}
	got := projectBioseqInfo(info, map[string]bool{"canon_id": true})

	shaped, ok := got.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "NM_000170", shaped["accession"])
	require.Equal(t, 1, shaped["version"])
	require.NotContains(t, shaped, "tax_id")
	require.NotContains(t, shaped, "mol_type")
}

func TestProjectBioseqInfoCombinesRequestedFields(t *testing.T) {
	info := seqid.BioseqInfo{Accession: "NM_000170", Version: 1, TaxId: 9606, MolType: "na"}
	got := projectBioseqInfo(info, map[string]bool{"tax_id": true, "mol_type": true})

	shaped, ok := got.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, 9606, shaped["tax_id"])
	require.Equal(t, "na", shaped["mol_type"])
	require.NotContains(t, shaped, "accession")
}

func TestProjectBioseqInfoUnsupportedFlagsAreNoOp(t *testing.T) {
	info := seqid.BioseqInfo{Accession: "NM_000170", Version: 1}
	got := projectBioseqInfo(info, map[string]bool{"length": true, "hash": true})

	// Neither flag has a backing field, so nothing gets selected and the
	// full record is returned instead of an empty map.
	require.Equal(t, info, got)
}
