package psgclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/http2"
)

// buildHTTPRequest builds a GET request for req against baseURL, the
// client-side mirror of how C7's router maps query parameters onto
// processor.Request.
func buildHTTPRequest(ctx context.Context, baseURL string, req Request) (*http.Request, error) {
	u, err := url.Parse(baseURL + req.Path)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	for k, v := range req.Query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

// Session is one HTTP/2 connection to a PSG server, capped at
// GetMaxStreams() concurrent requests via a semaphore (spec.md §4.8:
// "per-server sessions capped at GetMaxStreams() concurrent requests").
type Session struct {
	baseURL string
	client  *http.Client
	sem     chan struct{}
}

// NewSession dials baseURL over HTTP/2 (clear-text h2c if the scheme is
// http, TLS ALPN otherwise) and caps concurrent requests at maxStreams.
func NewSession(baseURL string, maxStreams int) (*Session, error) {
	useTLS := false
	if u, err := url.Parse(baseURL); err == nil && u.Scheme == "https" {
		useTLS = true
	}
	transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
			var d net.Dialer
			if useTLS {
				return (&tls.Dialer{NetDialer: &d, Config: cfg}).DialContext(ctx, network, addr)
			}
			return d.DialContext(ctx, network, addr)
		},
	}

	return &Session{
		baseURL: baseURL,
		client:  &http.Client{Transport: transport},
		sem:     make(chan struct{}, maxStreams),
	}, nil
}

// Do issues req, blocking until a stream slot is free or ctx is done.
func (s *Session) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.sem }()

	return s.client.Do(req.WithContext(ctx))
}

// InFlight returns the number of requests currently holding a stream
// slot on this session.
func (s *Session) InFlight() int {
	return len(s.sem)
}

// Close releases the session's idle connections.
func (s *Session) Close() error {
	if t, ok := s.client.Transport.(*http2.Transport); ok {
		t.CloseIdleConnections()
	}
	return nil
}
