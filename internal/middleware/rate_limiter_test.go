package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestCostResolveIsBaseline(t *testing.T) {
	r := httptest.NewRequest("GET", "/ID/resolve?seq_id=NM_000170.1", nil)
	require.Equal(t, 1, requestCost(r))
}

func TestRequestCostGetWithSlimTseIsCheaperThanWhole(t *testing.T) {
	slim := httptest.NewRequest("GET", "/ID/get?seq_id=X&tse=slim", nil)
	whole := httptest.NewRequest("GET", "/ID/get?seq_id=X&tse=whole", nil)

	require.Less(t, requestCost(slim), requestCost(whole))
}

func TestRequestCostGetNoneOrOrigIsBaseline(t *testing.T) {
	none := httptest.NewRequest("GET", "/ID/get?seq_id=X&tse=none", nil)
	orig := httptest.NewRequest("GET", "/ID/get?seq_id=X&tse=orig", nil)

	require.Equal(t, 1, requestCost(none))
	require.Equal(t, 1, requestCost(orig))
}

func TestRequestCostShorthandFlagsMatchEnum(t *testing.T) {
	r := httptest.NewRequest("GET", "/ID/get?seq_id=X&whole_tse=yes", nil)
	require.Equal(t, splitFanOutCost, requestCost(r))
}

func TestRequestCostNamedAnnotScalesWithNameCount(t *testing.T) {
	one := httptest.NewRequest("GET", "/ID/get_na?seq_id=X&names=foo", nil)
	three := httptest.NewRequest("GET", "/ID/get_na?seq_id=X&names=foo,bar,baz", nil)

	require.Equal(t, 1, requestCost(one))
	require.Equal(t, 3, requestCost(three))
}

func TestAllowCostChargesConfiguredWeight(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 100, BurstSize: 10})

	require.True(t, rl.AllowCost("client", 6))
	require.True(t, rl.AllowCost("client", 3))
	require.False(t, rl.AllowCost("client", 3))
}

func TestAllowIsAllowCostOfOne(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxCallsPerMinute: 100, BurstSize: 2})

	require.True(t, rl.Allow("client"))
	require.True(t, rl.Allow("client"))
	require.False(t, rl.Allow("client"))
}
