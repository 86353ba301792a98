// Command psgcli is a small command-line PSG client exercising
// pkg/psgclient end to end: resolve a seq-id against one or more PSG
// servers and print the parsed reply.
//
// Usage: psgcli -servers http://localhost:2180 -seq-id NM_000170.1
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/ocx/backend/pkg/psgclient"
)

func main() {
	var (
		servers  = flag.String("servers", "http://localhost:2180", "comma-separated PSG server base URLs")
		seqID    = flag.String("seq-id", "", "seq_id to resolve (required)")
		seqType  = flag.String("seq-id-type", "", "seq_id_type query param")
		timeout  = flag.Duration("timeout", 5*time.Second, "overall request timeout")
		endpoint = flag.String("endpoint", "/ID/resolve", "PSG endpoint path")
	)
	flag.Parse()

	if *seqID == "" {
		fmt.Fprintln(os.Stderr, "psgcli: -seq-id is required")
		os.Exit(2)
	}

	cfg := psgclient.Config{
		Servers:        strings.Split(*servers, ","),
		RequestTimeout: *timeout,
	}
	client := psgclient.NewClient(cfg)
	defer client.Close()

	query := map[string]string{"seq_id": *seqID}
	if *seqType != "" {
		query["seq_id_type"] = *seqType
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := client.Submit(ctx, psgclient.Request{Path: *endpoint, Query: query})
	if err != nil {
		log.Fatalf("psgcli: request failed: %v", err)
	}

	out := make(map[string]interface{}, len(reply.Items))
	for id, item := range reply.Items {
		chunks := make([]string, 0, len(item.Chunks))
		for _, c := range item.Chunks {
			chunks = append(chunks, string(c.Payload))
		}
		out[fmt.Sprintf("item_%d", id)] = map[string]interface{}{
			"item_type": item.ItemType,
			"complete":  item.Complete,
			"payloads":  chunks,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}
