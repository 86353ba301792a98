package psgclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/http2"
)

// errRefusedStream marks a failure the server's HTTP/2 layer signaled as
// a refused stream, tracked against its own retry budget per spec.md
// §4.8 step 6.
var errRefusedStream = errors.New("psgclient: stream refused")

// submitWithRetry runs one request attempt at a time, retrying under two
// independent budgets (general request retries and refused-stream
// retries) with an exponential backoff delay curve, until ctx expires or
// a budget is exhausted.
func submitWithRetry(ctx context.Context, c *Client, req Request) (*Reply, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.IoTimerPeriod
	bo.MaxElapsedTime = 0 // ctx's own deadline is the outer bound

	requestRetries := c.cfg.RequestRetries
	refusedRetries := c.cfg.RefusedStreamRetries

	for {
		reply, err := attemptCompetitive(ctx, c, req)
		if err == nil {
			return reply, nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("psgclient: request %s: %w", req.ID, ctx.Err())
		}
		if c.cfg.FailRequestsWhenEmpty && c.disc.Empty() {
			return nil, fmt.Errorf("psgclient: request %s: %w", req.ID, err)
		}

		if errors.Is(err, errRefusedStream) {
			if refusedRetries <= 0 {
				return nil, fmt.Errorf("psgclient: request %s exhausted refused-stream retries: %w", req.ID, err)
			}
			refusedRetries--
		} else {
			if requestRetries <= 0 {
				return nil, fmt.Errorf("psgclient: request %s exhausted request retries: %w", req.ID, err)
			}
			requestRetries--
		}

		wait := bo.NextBackOff()
		clientLog.Printf("request %s attempt failed, retrying in %s: %v", req.ID, wait, err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("psgclient: request %s: %w", req.ID, ctx.Err())
		case <-time.After(wait):
		}
	}
}

// attemptResult carries one attempt's outcome back to attemptCompetitive.
type attemptResult struct {
	reply *Reply
	err   error
}

// attemptCompetitive runs one attempt, and if it hasn't finished within
// CompetitiveAfter, fires a second parallel attempt against a (likely
// different, since the first server's throttle ratio has already moved)
// server, returning whichever finishes first (spec.md §4.8 step 5:
// "beyond competitive_after a parallel submission to another eligible
// server is allowed"). The loser's result is discarded.
func attemptCompetitive(ctx context.Context, c *Client, req Request) (*Reply, error) {
	primary := make(chan attemptResult, 1)
	go func() {
		reply, err := attempt(ctx, c, req)
		primary <- attemptResult{reply, err}
	}()

	select {
	case res := <-primary:
		return res.reply, res.err
	case <-time.After(c.cfg.CompetitiveAfter):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	secondary := make(chan attemptResult, 1)
	go func() {
		reply, err := attempt(ctx, c, req)
		secondary <- attemptResult{reply, err}
	}()

	select {
	case res := <-primary:
		return res.reply, res.err
	case res := <-secondary:
		return res.reply, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func attempt(ctx context.Context, c *Client, req Request) (*Reply, error) {
	server := c.disc.Servers().Pick()
	if server == nil {
		if c.cfg.FailRequestsWhenEmpty {
			return nil, errors.New("psgclient: no available servers")
		}
		return nil, errors.New("psgclient: no available servers (will retry)")
	}

	session, err := c.sessionFor(server)
	if err != nil {
		server.Throttle.RecordFailure()
		return nil, err
	}

	httpReq, err := buildHTTPRequest(ctx, server.BaseURL, req)
	if err != nil {
		return nil, err
	}

	resp, err := session.Do(ctx, httpReq)
	if err != nil {
		server.Throttle.RecordFailure()
		var se http2.StreamError
		if errors.As(err, &se) && se.Code == http2.ErrCodeRefusedStream {
			return nil, errRefusedStream
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusMisdirectedRequest {
		server.Throttle.RecordFailure()
		return nil, errRefusedStream
	}
	if resp.StatusCode >= 500 {
		server.Throttle.RecordFailure()
		return nil, fmt.Errorf("psgclient: server %s returned %d", server.BaseURL, resp.StatusCode)
	}

	reply, err := parseReply(resp.Body)
	if err != nil {
		server.Throttle.RecordFailure()
		return nil, err
	}

	server.Throttle.RecordSuccess()
	return reply, nil
}

func parseReply(body io.Reader) (*Reply, error) {
	p := NewParser(body)
	reply := newClientReply()
	for {
		chunk, err := p.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		reply.apply(chunk)
		if reply.Complete {
			break
		}
	}
	return reply, nil
}
