package psgclient

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Discovery periodically refreshes the known PSG server set (spec.md
// §4.8: "a service discovery loop... refreshes the set of known
// servers"). It optionally reads that set from a shared Redis key so
// multiple client processes converge on the same view without each one
// running its own discovery backend query (the teacher used
// redis/go-redis/v9 as an app cache; here it's the client's distributed
// discovery cache).
type Discovery struct {
	period      time.Duration
	failOnEmpty bool

	redis    *redis.Client
	redisKey string

	mu      sync.RWMutex
	servers *ServerSet
	static  []string
}

// NewDiscovery builds a Discovery seeded with a static server list. Call
// WithRedis to additionally merge in a shared, Redis-backed set.
func NewDiscovery(period time.Duration, failOnEmpty bool, staticServers []string) *Discovery {
	return &Discovery{
		period:      period,
		failOnEmpty: failOnEmpty,
		static:      staticServers,
		servers:     NewServerSet(staticServers),
	}
}

// WithRedis attaches a shared discovery cache: Run will periodically
// SMEMBERS redisKey and merge the result into the server set alongside
// the static list.
func (d *Discovery) WithRedis(client *redis.Client, redisKey string) *Discovery {
	d.redis = client
	d.redisKey = redisKey
	return d
}

// Servers returns the current ServerSet. Safe for concurrent use.
func (d *Discovery) Servers() *ServerSet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.servers
}

// Run drives the periodic refresh until ctx is cancelled. If no Redis
// client is attached this is a no-op beyond the initial static seed —
// the static list never changes, so there's nothing to poll.
func (d *Discovery) Run(ctx context.Context) {
	if d.redis == nil {
		return
	}

	ticker := time.NewTicker(d.period)
	defer ticker.Stop()

	d.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.refresh(ctx)
		}
	}
}

func (d *Discovery) refresh(ctx context.Context) {
	members, err := d.redis.SMembers(ctx, d.redisKey).Result()
	if err != nil {
		clientLog.Printf("discovery refresh failed, keeping last known set: %v", err)
		return
	}

	merged := make([]string, 0, len(d.static)+len(members))
	seen := make(map[string]bool, len(merged))
	for _, s := range append(append([]string{}, d.static...), members...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		merged = append(merged, s)
	}

	d.mu.Lock()
	d.servers = d.servers.withKnownServers(merged)
	d.mu.Unlock()
}

// Empty reports whether the current server set has no usable servers,
// the condition FailRequestsWhenEmpty gates on.
func (d *Discovery) Empty() bool {
	return d.Servers().Len() == 0
}
