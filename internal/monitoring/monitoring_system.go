// Package monitoring implements the PSG front-end's live in-memory metrics
// surface, a companion to the Prometheus counters C7 exports at
// /ADMIN/metrics: point-in-time per-endpoint latency/throughput/error
// snapshots for /ADMIN/live, the kind of thing an operator dashboard
// polls directly instead of scraping and aggregating.
package monitoring

import (
	"sync"
	"time"
)

// ============================================================================
// REAL-TIME MONITORING & ANALYTICS
// ============================================================================

// MonitoringSystem tracks live per-endpoint execution metrics.
type MonitoringSystem struct {
	mu sync.RWMutex

	metrics *LiveMetrics

	latencyHistogram  map[string]*LatencyBucket
	throughputCounter map[string]*ThroughputCounter

	errors map[string]*ErrorRecord

	historicalMetrics []*MetricsSnapshot

	alerts     []*Alert
	alertRules []*AlertRule
}

// LiveMetrics contains real-time metrics for the PSG request path.
type LiveMetrics struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	AverageRequestTime float64 // milliseconds
	RequestsPerSecond  float64

	TotalCassandraRoundTrips int64
	TotalAuxStoreRoundTrips  int64

	ActiveStreams int64
	ErrorRate     float64

	LastUpdated time.Time
}

// LatencyBucket tracks latency distribution for one endpoint.
type LatencyBucket struct {
	Operation string
	P50       float64
	P95       float64
	P99       float64
	Min       float64
	Max       float64
	Count     int64
	Sum       float64
}

// ThroughputCounter tracks throughput for one endpoint.
type ThroughputCounter struct {
	Operation      string
	Count          int64
	LastMinute     int64
	LastHour       int64
	LastDay        int64
	RequestsPerSec float64
}

// ErrorRecord tracks an error occurrence.
type ErrorRecord struct {
	ErrorID    string
	ErrorType  string
	Message    string
	Operation  string
	Timestamp  time.Time
	Count      int64
	LastSeen   time.Time
	Severity   string
	Resolved   bool
	StackTrace string
}

// MetricsSnapshot captures metrics at a point in time.
type MetricsSnapshot struct {
	Timestamp time.Time
	Metrics   *LiveMetrics
}

// Alert represents a triggered alert.
type Alert struct {
	AlertID     string
	RuleID      string
	Severity    string
	Title       string
	Message     string
	TriggeredAt time.Time
	Resolved    bool
	ResolvedAt  *time.Time
	Metadata    map[string]interface{}
}

// AlertRule defines conditions for alerts.
type AlertRule struct {
	RuleID        string
	Name          string
	Condition     string // "error_rate > 0.05"
	Severity      string
	Enabled       bool
	Cooldown      time.Duration
	LastTriggered *time.Time
}

// NewMonitoringSystem creates a new monitoring system.
func NewMonitoringSystem() *MonitoringSystem {
	return &MonitoringSystem{
		metrics: &LiveMetrics{
			LastUpdated: time.Now(),
		},
		latencyHistogram:  make(map[string]*LatencyBucket),
		throughputCounter: make(map[string]*ThroughputCounter),
		errors:            make(map[string]*ErrorRecord),
		historicalMetrics: make([]*MetricsSnapshot, 0),
		alerts:            make([]*Alert, 0),
		alertRules:        make([]*AlertRule, 0),
	}
}

// ============================================================================
// METRICS RECORDING
// ============================================================================

// RecordRequest records one completed request against endpoint (one of the
// five ID endpoints).
func (ms *MonitoringSystem) RecordRequest(endpoint string, success bool, duration time.Duration) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.metrics.TotalRequests++
	if success {
		ms.metrics.SuccessfulRequests++
	} else {
		ms.metrics.FailedRequests++
	}

	ms.updateAverageRequestTime(duration.Milliseconds())
	ms.recordLatencyUnsafe(endpoint, float64(duration.Milliseconds()))
	ms.recordThroughputUnsafe(endpoint)
	ms.updateErrorRateUnsafe()

	ms.metrics.LastUpdated = time.Now()
}

// RecordRoundTrips accumulates the number of upstream calls a resolve spent
// reaching a result, split by source ("cassandra" or "auxstore"), for
// capacity planning against C4's round-trip counters.
func (ms *MonitoringSystem) RecordRoundTrips(source string, roundTrips int) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	switch source {
	case "cassandra":
		ms.metrics.TotalCassandraRoundTrips += int64(roundTrips)
	case "auxstore":
		ms.metrics.TotalAuxStoreRoundTrips += int64(roundTrips)
	}
	ms.metrics.LastUpdated = time.Now()
}

// RecordError records an error occurrence.
func (ms *MonitoringSystem) RecordError(errorType, message, operation, severity string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	errorKey := errorType + ":" + message

	if existing, ok := ms.errors[errorKey]; ok {
		existing.Count++
		existing.LastSeen = time.Now()
	} else {
		ms.errors[errorKey] = &ErrorRecord{
			ErrorID:   generateErrorID(),
			ErrorType: errorType,
			Message:   message,
			Operation: operation,
			Timestamp: time.Now(),
			Count:     1,
			LastSeen:  time.Now(),
			Severity:  severity,
		}
	}

	ms.checkAlertRulesUnsafe()
	ms.metrics.LastUpdated = time.Now()
}

// SetActiveStreams reports the current count of open /ADMIN/stream clients.
func (ms *MonitoringSystem) SetActiveStreams(n int64) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.metrics.ActiveStreams = n
}

// ============================================================================
// METRICS RETRIEVAL
// ============================================================================

// GetLiveMetrics returns a copy of the current live metrics.
func (ms *MonitoringSystem) GetLiveMetrics() *LiveMetrics {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	metrics := *ms.metrics
	return &metrics
}

// GetLatencyMetrics returns latency metrics for an endpoint.
func (ms *MonitoringSystem) GetLatencyMetrics(operation string) *LatencyBucket {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	bucket, ok := ms.latencyHistogram[operation]
	if !ok {
		return nil
	}
	bucketCopy := *bucket
	return &bucketCopy
}

// GetThroughputMetrics returns throughput metrics for an endpoint.
func (ms *MonitoringSystem) GetThroughputMetrics(operation string) *ThroughputCounter {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	counter, ok := ms.throughputCounter[operation]
	if !ok {
		return nil
	}
	counterCopy := *counter
	return &counterCopy
}

// GetRecentErrors returns up to limit unresolved errors, most recent first.
func (ms *MonitoringSystem) GetRecentErrors(limit int) []*ErrorRecord {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	errors := make([]*ErrorRecord, 0, len(ms.errors))
	for _, err := range ms.errors {
		if !err.Resolved {
			errors = append(errors, err)
		}
	}

	for i := 0; i < len(errors)-1; i++ {
		for j := 0; j < len(errors)-i-1; j++ {
			if errors[j].LastSeen.Before(errors[j+1].LastSeen) {
				errors[j], errors[j+1] = errors[j+1], errors[j]
			}
		}
	}

	if limit > 0 && limit < len(errors) {
		errors = errors[:limit]
	}
	return errors
}

// GetActiveAlerts returns unresolved alerts.
func (ms *MonitoringSystem) GetActiveAlerts() []*Alert {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	active := make([]*Alert, 0)
	for _, alert := range ms.alerts {
		if !alert.Resolved {
			active = append(active, alert)
		}
	}
	return active
}

// GetHistoricalMetrics returns snapshots taken strictly between start and
// end (both bounds excluded).
func (ms *MonitoringSystem) GetHistoricalMetrics(start, end time.Time) []*MetricsSnapshot {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	snapshots := make([]*MetricsSnapshot, 0)
	for _, snapshot := range ms.historicalMetrics {
		if snapshot.Timestamp.After(start) && snapshot.Timestamp.Before(end) {
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots
}

// ============================================================================
// ALERT MANAGEMENT
// ============================================================================

// AddAlertRule adds a new alert rule.
func (ms *MonitoringSystem) AddAlertRule(rule *AlertRule) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.alertRules = append(ms.alertRules, rule)
}

func (ms *MonitoringSystem) checkAlertRulesUnsafe() {
	for _, rule := range ms.alertRules {
		if !rule.Enabled {
			continue
		}
		if rule.LastTriggered != nil && time.Since(*rule.LastTriggered) < rule.Cooldown {
			continue
		}
		if ms.evaluateCondition(rule.Condition) {
			ms.triggerAlertUnsafe(rule)
		}
	}
}

func (ms *MonitoringSystem) evaluateCondition(condition string) bool {
	if condition == "error_rate > 0.05" {
		return ms.metrics.ErrorRate > 0.05
	}
	return false
}

func (ms *MonitoringSystem) triggerAlertUnsafe(rule *AlertRule) {
	alert := &Alert{
		AlertID:     generateAlertID(),
		RuleID:      rule.RuleID,
		Severity:    rule.Severity,
		Title:       rule.Name,
		Message:     "Alert condition met: " + rule.Condition,
		TriggeredAt: time.Now(),
		Metadata:    make(map[string]interface{}),
	}
	ms.alerts = append(ms.alerts, alert)

	now := time.Now()
	rule.LastTriggered = &now
}

// ============================================================================
// HELPER FUNCTIONS
// ============================================================================

func (ms *MonitoringSystem) updateAverageRequestTime(durationMs int64) {
	alpha := 0.1
	ms.metrics.AverageRequestTime = alpha*float64(durationMs) + (1-alpha)*ms.metrics.AverageRequestTime
}

func (ms *MonitoringSystem) updateErrorRateUnsafe() {
	if ms.metrics.TotalRequests > 0 {
		ms.metrics.ErrorRate = float64(ms.metrics.FailedRequests) / float64(ms.metrics.TotalRequests)
	}
}

func (ms *MonitoringSystem) recordLatencyUnsafe(operation string, latencyMs float64) {
	bucket, ok := ms.latencyHistogram[operation]
	if !ok {
		bucket = &LatencyBucket{
			Operation: operation,
			Min:       latencyMs,
			Max:       latencyMs,
		}
		ms.latencyHistogram[operation] = bucket
	}

	bucket.Count++
	bucket.Sum += latencyMs

	if latencyMs < bucket.Min {
		bucket.Min = latencyMs
	}
	if latencyMs > bucket.Max {
		bucket.Max = latencyMs
	}

	// Simple percentile approximation; Prometheus's own histogram at
	// /ADMIN/metrics is the source of truth for real percentile queries.
	bucket.P50 = bucket.Sum / float64(bucket.Count)
	bucket.P95 = bucket.Max * 0.95
	bucket.P99 = bucket.Max * 0.99
}

func (ms *MonitoringSystem) recordThroughputUnsafe(operation string) {
	counter, ok := ms.throughputCounter[operation]
	if !ok {
		counter = &ThroughputCounter{Operation: operation}
		ms.throughputCounter[operation] = counter
	}

	counter.Count++
	counter.LastMinute++
	counter.LastHour++
	counter.LastDay++
	counter.RequestsPerSec = float64(counter.LastMinute) / 60.0
}

func generateErrorID() string {
	return "err_" + time.Now().Format("20060102150405")
}

func generateAlertID() string {
	return "alert_" + time.Now().Format("20060102150405")
}

// SnapshotMetrics appends the current metrics to history, trimming anything
// older than 24 hours.
func (ms *MonitoringSystem) SnapshotMetrics() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	m := *ms.metrics
	snapshot := &MetricsSnapshot{
		Timestamp: time.Now(),
		Metrics:   &m,
	}
	ms.historicalMetrics = append(ms.historicalMetrics, snapshot)

	cutoff := time.Now().Add(-24 * time.Hour)
	filtered := make([]*MetricsSnapshot, 0)
	for _, s := range ms.historicalMetrics {
		if s.Timestamp.After(cutoff) {
			filtered = append(filtered, s)
		}
	}
	ms.historicalMetrics = filtered
}
