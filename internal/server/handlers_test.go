package server

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ocx/backend/internal/processor"
)

func TestParseTseFromEnum(t *testing.T) {
	r := httptest.NewRequest("GET", "/ID/get?seq_id=X&tse=slim", nil)
	require.Equal(t, processor.TseSlim, parseTse(r))
}

func TestParseTseShorthandFlagsOverrideEnum(t *testing.T) {
	r := httptest.NewRequest("GET", "/ID/get?seq_id=X&tse=whole&no_tse=yes", nil)
	require.Equal(t, processor.TseNone, parseTse(r))
}

func TestParseTseDefaultsWhenAbsent(t *testing.T) {
	r := httptest.NewRequest("GET", "/ID/get?seq_id=X", nil)
	require.Equal(t, processor.TseDefault, parseTse(r))
}

func TestQueryBoolAcceptsTruthyValues(t *testing.T) {
	for _, v := range []string{"yes", "1", "true"} {
		r := httptest.NewRequest("GET", "/ID/get?flag="+v, nil)
		require.True(t, queryBool(r, "flag"), "value %q should be truthy", v)
	}
}

func TestQueryBoolRejectsOtherValues(t *testing.T) {
	r := httptest.NewRequest("GET", "/ID/get?flag=no", nil)
	require.False(t, queryBool(r, "flag"))

	r = httptest.NewRequest("GET", "/ID/get", nil)
	require.False(t, queryBool(r, "flag"))
}

func TestParseFlagsOnlyReturnsSetFlags(t *testing.T) {
	r := httptest.NewRequest("GET", "/ID/get?seq_id=X&tax_id=yes&mol_type=1", nil)
	flags := parseFlags(r, getFlagNames)
	require.Equal(t, map[string]bool{"tax_id": true, "mol_type": true}, flags)
}

func TestParseFlagsNoneSetReturnsNil(t *testing.T) {
	r := httptest.NewRequest("GET", "/ID/get?seq_id=X", nil)
	require.Nil(t, parseFlags(r, getFlagNames))
}

func TestHandleGetBySeqIDWithTseAndFlagsStreamsReply(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest("GET", "/ID/get?seq_id=NM_000170.1&tse=slim&exclude_blobs=yes&tax_id=yes", nil)
	w := httptest.NewRecorder()
	s.handleGetBySeqID(w, req)

	require.Contains(t, w.Body.String(), "PSG-Reply-Chunk:")
}
