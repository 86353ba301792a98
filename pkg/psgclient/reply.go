package psgclient

// Request is a single PSG ID-endpoint call submitted through a Client.
type Request struct {
	// ID uniquely identifies this request for Queue dedup and log
	// correlation; left blank, Submit assigns a uuid.
	ID string

	// Path is one of the PSG ID endpoints, e.g. "/ID/resolve".
	Path string
	// Query holds the endpoint's query parameters (seq_id, blob_id, ...).
	Query map[string]string
}

// Item accumulates every chunk seen for one item_id, in arrival order.
type Item struct {
	ItemID   int
	ItemType string
	Chunks   []ParsedChunk
	// NChunks is the item's declared chunk count, set once its meta
	// (completion) chunk arrives.
	NChunks  int
	Complete bool
}

// Reply is the client-side accumulation of a parsed PSG reply: every
// item keyed by item_id, plus whether the reply-completion chunk has
// arrived (spec.md §4.8 step 4: "when the reply-completion arrives, the
// reply is marked complete").
type Reply struct {
	Items    map[int]*Item
	Complete bool
}

func newClientReply() *Reply {
	return &Reply{Items: make(map[int]*Item)}
}

// apply folds one parsed chunk into the reply's per-item state.
func (r *Reply) apply(c ParsedChunk) {
	item, ok := r.Items[c.ItemID]
	if !ok {
		item = &Item{ItemID: c.ItemID, ItemType: c.ItemType}
		r.Items[c.ItemID] = item
	}
	item.Chunks = append(item.Chunks, c)

	if c.ChunkType == "meta" || containsType(c.ChunkType, "meta") {
		item.Complete = true
		item.NChunks = c.ChunkNo
		if n, err := argInt(c.Args, "n_chunks"); err == nil && n > 0 {
			item.NChunks = n
		}
	}

	if c.ItemID == 0 && c.ItemType == "reply" && (c.ChunkType == "meta" || containsType(c.ChunkType, "meta")) {
		r.Complete = true
	}
}

func containsType(chunkType, want string) bool {
	for _, part := range splitBitmask(chunkType) {
		if part == want {
			return true
		}
	}
	return false
}

func splitBitmask(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '|' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
