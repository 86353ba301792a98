// Package psgclient implements the PSG Client Transport (spec.md §4.8,
// C8): a reusable library that discovers PSG servers, spreads requests
// across them with per-server throttling, and parses the chunked reply
// wire format C7/C6 produce.
//
// Grounded on the teacher's internal/circuitbreaker (Counts/ReadyToTrip
// threshold shape, reused here for per-server throttling) and
// internal/middleware/rate_limiter.go (sliding-window counter map,
// read-then-write-lock pattern reused for server-set bookkeeping).
package psgclient

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

var clientLog = log.New(os.Stdout, "[psg:client] ", log.LstdFlags|log.Lmicroseconds)

// Config controls discovery, throttling, session limits, and retry
// budgets for a Client. Zero values are replaced with sane defaults by
// NewClient, mirroring the teacher's Config-struct-plus-defaults idiom
// (internal/config.Config.applyDefaults).
type Config struct {
	// Static list of server base URLs, used when no Redis-backed
	// discovery is configured.
	Servers []string

	// DiscoveryPeriod is how often the known server set is refreshed.
	DiscoveryPeriod time.Duration
	// FailRequestsWhenEmpty, if true, fails requests immediately when
	// discovery has found zero servers rather than blocking for one.
	FailRequestsWhenEmpty bool

	// MaxStreams caps concurrent in-flight requests per server session.
	MaxStreams int

	// ThrottleDenominator caps the failure-ratio denominator (spec.md §9
	// Open Question: preserved as-is at 128). NewClient normalizes it, but
	// the server set's throttles use a fixed cap of 128 and do not read
	// this field.
	ThrottleDenominator int
	// ThrottlePeriod is how long a throttled server stays disabled. The
	// server set's throttles use a fixed 10s period and do not read this
	// field.
	ThrottlePeriod time.Duration

	// RequestTimeout bounds how long a single submitted request waits
	// for a reply-completion chunk.
	RequestTimeout time.Duration
	// CompetitiveAfter is the delay after which a parallel submission to
	// a second eligible server is allowed for the same request.
	CompetitiveAfter time.Duration
	// IoTimerPeriod is the initial delay of the retry backoff. The
	// per-request timeout is RequestTimeout, enforced as a context
	// deadline.
	IoTimerPeriod time.Duration

	// RequestRetries bounds retries on general request failure.
	RequestRetries int
	// RefusedStreamRetries bounds retries specifically on an HTTP/2
	// REFUSED_STREAM response.
	RefusedStreamRetries int
}

func (c *Config) applyDefaults() {
	if c.DiscoveryPeriod == 0 {
		c.DiscoveryPeriod = 30 * time.Second
	}
	if c.MaxStreams == 0 {
		c.MaxStreams = 32
	}
	if c.ThrottleDenominator == 0 || c.ThrottleDenominator > 128 {
		c.ThrottleDenominator = 128
	}
	if c.ThrottlePeriod == 0 {
		c.ThrottlePeriod = 10 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 5 * time.Second
	}
	if c.CompetitiveAfter == 0 {
		c.CompetitiveAfter = 2 * time.Second
	}
	if c.IoTimerPeriod == 0 {
		c.IoTimerPeriod = 100 * time.Millisecond
	}
	if c.RequestRetries == 0 {
		c.RequestRetries = 2
	}
	if c.RefusedStreamRetries == 0 {
		c.RefusedStreamRetries = 3
	}
}

// Client is the top-level PSG client: discovery feeding a ServerSet,
// Sessions capped per server, and a Queue of in-flight submissions.
type Client struct {
	cfg   Config
	disc  *Discovery
	queue *Queue

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewClient builds a Client. If cfg.Servers is non-empty it seeds the
// server set immediately; call Start to begin periodic discovery on top
// of (or instead of) that static list.
func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	c := &Client{
		cfg:      cfg,
		queue:    NewQueue(),
		sessions: make(map[string]*Session),
	}
	c.disc = NewDiscovery(cfg.DiscoveryPeriod, cfg.FailRequestsWhenEmpty, cfg.Servers)
	return c
}

// Start begins the discovery polling loop. Cancel ctx to stop it.
func (c *Client) Start(ctx context.Context) {
	c.disc.Run(ctx)
}

// Submit issues request against the best available server, honoring
// ctx's deadline and the client's retry budgets, and returns the fully
// parsed Reply. It is safe to call concurrently.
func (c *Client) Submit(ctx context.Context, req Request) (*Reply, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if !c.queue.TryAdmit(req.ID) {
		return nil, fmt.Errorf("psgclient: request %s already in flight", req.ID)
	}
	defer c.queue.Remove(req.ID)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	return submitWithRetry(ctx, c, req)
}

// Close tears down every session the client has opened.
func (c *Client) Close() error {
	var firstErr error
	for _, s := range c.sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Client) sessionFor(server *ServerEntry) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[server.BaseURL]; ok {
		return s, nil
	}
	s, err := NewSession(server.BaseURL, c.cfg.MaxStreams)
	if err != nil {
		return nil, err
	}
	c.sessions[server.BaseURL] = s
	return s, nil
}
