package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordRequestUpdatesLiveMetrics(t *testing.T) {
	ms := NewMonitoringSystem()
	ms.RecordRequest("/ID/resolve", true, 10*time.Millisecond)
	ms.RecordRequest("/ID/resolve", false, 20*time.Millisecond)

	m := ms.GetLiveMetrics()
	require.Equal(t, int64(2), m.TotalRequests)
	require.Equal(t, int64(1), m.SuccessfulRequests)
	require.Equal(t, int64(1), m.FailedRequests)
	require.InDelta(t, 0.5, m.ErrorRate, 0.0001)

	bucket := ms.GetLatencyMetrics("/ID/resolve")
	require.NotNil(t, bucket)
	require.Equal(t, int64(2), bucket.Count)

	throughput := ms.GetThroughputMetrics("/ID/resolve")
	require.NotNil(t, throughput)
	require.Equal(t, int64(2), throughput.Count)
}

func TestRecordRoundTrips(t *testing.T) {
	ms := NewMonitoringSystem()
	ms.RecordRoundTrips("cassandra", 2)
	ms.RecordRoundTrips("auxstore", 1)
	ms.RecordRoundTrips("cassandra", 1)

	m := ms.GetLiveMetrics()
	require.Equal(t, int64(3), m.TotalCassandraRoundTrips)
	require.Equal(t, int64(1), m.TotalAuxStoreRoundTrips)
}

func TestRecordErrorAggregatesByKey(t *testing.T) {
	ms := NewMonitoringSystem()
	ms.RecordError("transient", "cassandra timeout", "/ID/get", "warning")
	ms.RecordError("transient", "cassandra timeout", "/ID/get", "warning")

	errs := ms.GetRecentErrors(10)
	require.Len(t, errs, 1)
	require.Equal(t, int64(2), errs[0].Count)
}

func TestAlertRuleTriggersOnErrorRate(t *testing.T) {
	ms := NewMonitoringSystem()
	ms.AddAlertRule(&AlertRule{
		RuleID:    "high-error-rate",
		Name:      "High error rate",
		Condition: "error_rate > 0.05",
		Severity:  "critical",
		Enabled:   true,
	})

	for i := 0; i < 10; i++ {
		ms.RecordRequest("/ID/resolve", false, time.Millisecond)
	}
	ms.RecordError("internal", "boom", "/ID/resolve", "critical")

	require.NotEmpty(t, ms.GetActiveAlerts())
}
