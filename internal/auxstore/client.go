package auxstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/ocx/backend/internal/circuitbreaker"
)

var auxLog = log.New(os.Stdout, "[psg:auxstore] ", log.LstdFlags|log.Lmicroseconds)

const lookupMethod = "/psg.auxstore.AuxStore/Lookup"

// lookupRequest/lookupResponse are the wire shapes of the single RPC this
// plugin needs; see codec.go for why these stay plain structs instead of
// protoc-generated types.
type lookupRequest struct {
	Accession string `json:"accession"`
	Version   int    `json:"version"`
	SeqIdType int    `json:"seq_id_type"`
}

type lookupResponse struct {
	Found  bool   `json:"found"`
	Record Record `json:"record"`
}

// Client talks to an external WGS/OSG auxiliary-store service over gRPC.
// resolve.AuxStoreClient adapts it to resolve.AuxStoreSource.
type Client struct {
	conn *grpc.ClientConn

	// Breaker, if set, trips the auxstore circuit after a run of failures
	// so the WGS fallback path fails fast instead of stalling every
	// WGS-shaped resolve behind a dead backend.
	Breaker *circuitbreaker.CircuitBreaker
}

// Dial connects to the auxiliary store at addr. Connection is lazy
// (grpc.NewClient doesn't block), matching the teacher's federation
// client's non-blocking dial.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("auxstore: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Lookup asks the auxiliary store for a WGS master record matching
// accession/version/seqIDType, returning (record, true, nil) on a hit,
// (Record{}, false, nil) on a clean miss, and a non-nil error only for
// transport/service failures.
func (c *Client) Lookup(ctx context.Context, accession string, version, seqIDType int) (Record, bool, error) {
	if c.Breaker == nil {
		return c.lookup(ctx, accession, version, seqIDType)
	}

	type result struct {
		rec   Record
		found bool
	}
	v, err := c.Breaker.ExecuteContext(ctx, func(ctx context.Context) (interface{}, error) {
		rec, found, err := c.lookup(ctx, accession, version, seqIDType)
		if err != nil {
			return nil, err
		}
		return result{rec, found}, nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	r := v.(result)
	return r.rec, r.found, nil
}

func (c *Client) lookup(ctx context.Context, accession string, version, seqIDType int) (Record, bool, error) {
	req := &lookupRequest{Accession: accession, Version: version, SeqIdType: seqIDType}
	resp := &lookupResponse{}

	err := c.conn.Invoke(ctx, lookupMethod, req, resp, grpc.ForceCodec(jsonCodec{}))
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
			return Record{}, false, nil
		}
		auxLog.Printf("lookup %s failed: %v", accession, err)
		return Record{}, false, fmt.Errorf("auxstore: lookup %s: %w", accession, err)
	}
	if !resp.Found {
		return Record{}, false, nil
	}
	return resp.Record, true, nil
}
