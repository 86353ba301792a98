package psgclient

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// throttleCounts mirrors circuitbreaker.Counts's success/failure
// bookkeeping shape, capped at the Throttle's denominator (128 as
// NewServerSet builds it) total samples (spec.md
// §9's Open Question, resolved as "preserve as-is": the denominator never
// grows past 128 regardless of how long the server runs, so a long-lived
// server's throttle ratio stays responsive to recent behavior instead of
// being swamped by history).
type throttleCounts struct {
	numerator   int // failures
	denominator int // total samples, capped
}

func (t *throttleCounts) onSuccess(cap int) {
	t.denominator++
	if t.denominator > cap {
		t.numerator = t.numerator * cap / t.denominator
		t.denominator = cap
	}
}

func (t *throttleCounts) onFailure(cap int) {
	t.numerator++
	t.denominator++
	if t.denominator > cap {
		t.numerator = t.numerator * cap / t.denominator
		t.denominator = cap
	}
}

func (t throttleCounts) ratio() float64 {
	if t.denominator == 0 {
		return 0
	}
	return float64(t.numerator) / float64(t.denominator)
}

// Throttle tracks one server's recent success/failure ratio and whether
// it is currently disabled (spec.md §4.8: "a server that exceeds the
// threshold is disabled for a bounded period; optionally it stays
// disabled until the next discovery").
type Throttle struct {
	mu              sync.Mutex
	counts          throttleCounts
	denominatorCap  int
	threshold       float64
	period          time.Duration
	untilDiscovery  bool
	disabledUntil   time.Time
	disabledForever bool
}

// NewThrottle builds a Throttle with the given denominator cap, trip
// threshold, and disable period.
func NewThrottle(denominatorCap int, threshold float64, period time.Duration, untilDiscovery bool) *Throttle {
	return &Throttle{
		denominatorCap: denominatorCap,
		threshold:      threshold,
		period:         period,
		untilDiscovery: untilDiscovery,
	}
}

// RecordSuccess registers a successful request against this server.
func (t *Throttle) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.onSuccess(t.denominatorCap)
}

// RecordFailure registers a failed request and disables the server if
// its failure ratio now exceeds the configured threshold.
func (t *Throttle) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts.onFailure(t.denominatorCap)
	if t.counts.ratio() > t.threshold {
		if t.untilDiscovery {
			t.disabledForever = true
		} else {
			t.disabledUntil = time.Now().Add(t.period)
		}
	}
}

// Available reports whether the server is currently eligible for
// selection.
func (t *Throttle) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disabledForever {
		return false
	}
	return time.Now().After(t.disabledUntil)
}

// ResetOnDiscovery clears an until-discovery disable, called when a new
// discovery cycle refreshes the server set.
func (t *Throttle) ResetOnDiscovery() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disabledForever = false
	t.disabledUntil = time.Time{}
	t.counts = throttleCounts{}
}

// Rate returns a selection weight: 1.0 for a server with no failures,
// trending to 0 as its failure ratio approaches the trip threshold.
func (t *Throttle) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.threshold == 0 {
		return 1
	}
	r := 1 - t.counts.ratio()/t.threshold
	if r < 0 {
		return 0
	}
	return r
}

// ServerEntry is one discovered PSG server and its throttle state.
type ServerEntry struct {
	BaseURL  string
	Throttle *Throttle
}

// ServerSet is the LBSM-style sorted-by-rate view of known servers
// (spec.md §4.8: "a server set sorted by rate").
type ServerSet struct {
	mu      sync.RWMutex
	entries []*ServerEntry
}

// NewServerSet builds a ServerSet from a static list of base URLs, each
// given a fresh Throttle with the spec's default 128-sample cap.
func NewServerSet(baseURLs []string) *ServerSet {
	entries := make([]*ServerEntry, 0, len(baseURLs))
	for _, u := range baseURLs {
		entries = append(entries, &ServerEntry{
			BaseURL:  u,
			Throttle: NewThrottle(128, 0.5, 10*time.Second, false),
		})
	}
	return &ServerSet{entries: entries}
}

// withKnownServers returns a new ServerSet containing exactly the given
// base URLs, carrying over Throttle state for URLs already present and
// resetting any "until discovery" disable per spec.md §4.8 step 2's
// discovery-refresh semantics.
func (s *ServerSet) withKnownServers(baseURLs []string) *ServerSet {
	s.mu.RLock()
	existing := make(map[string]*ServerEntry, len(s.entries))
	for _, e := range s.entries {
		existing[e.BaseURL] = e
	}
	s.mu.RUnlock()

	next := &ServerSet{entries: make([]*ServerEntry, 0, len(baseURLs))}
	for _, u := range baseURLs {
		if e, ok := existing[u]; ok {
			e.Throttle.ResetOnDiscovery()
			next.entries = append(next.entries, e)
			continue
		}
		next.entries = append(next.entries, &ServerEntry{
			BaseURL:  u,
			Throttle: NewThrottle(128, 0.5, 10*time.Second, false),
		})
	}
	return next
}

// Len returns the number of known servers, regardless of availability.
func (s *ServerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Pick selects an available server weighted by rate (spec.md §4.8 step
// 2: "Client picks a server weighted by rate"). Returns nil if no server
// is currently available.
func (s *ServerSet) Pick() *ServerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type weighted struct {
		entry  *ServerEntry
		weight float64
	}
	var candidates []weighted
	var total float64
	for _, e := range s.entries {
		if !e.Throttle.Available() {
			continue
		}
		w := e.Throttle.Rate()
		if w <= 0 {
			w = 0.01 // keep a long tail chance for recovering servers
		}
		candidates = append(candidates, weighted{e, w})
		total += w
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].weight > candidates[j].weight })

	r := rand.Float64() * total
	for _, c := range candidates {
		r -= c.weight
		if r <= 0 {
			return c.entry
		}
	}
	return candidates[0].entry
}
