package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ocx/backend/internal/processor"
	"github.com/ocx/backend/internal/reply"
	"github.com/ocx/backend/internal/resolve"
	"github.com/ocx/backend/internal/seqid"
)

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	seqID := r.URL.Query().Get("seq_id")
	if seqID == "" {
		writeBadRequest(w, "missing required parameter: seq_id")
		return
	}
	req := &processor.Request{
		Kind:      processor.KindResolve,
		SeqID:     seqID,
		SeqIDType: queryInt(r, "seq_id_type", 0),
		UseCache:  parseUseCache(r),
	}
	s.drive(w, r, req, "/ID/resolve")
}

// getFlagNames is the /ID/get field-shaping flag set of spec.md §6: the
// three tse shorthands (aliases for the tse=none/whole/orig enum values)
// plus the bioseq_info field selectors.
var getFlagNames = []string{
	"no_tse", "fast_info", "whole_tse", "orig_tse",
	"canon_id", "other_ids", "mol_type", "length", "state", "blob_id", "tax_id", "hash",
}

func (s *Server) handleGetBySeqID(w http.ResponseWriter, r *http.Request) {
	seqID := r.URL.Query().Get("seq_id")
	if seqID == "" {
		writeBadRequest(w, "missing required parameter: seq_id")
		return
	}
	req := &processor.Request{
		Kind:         processor.KindGetBySeqID,
		SeqID:        seqID,
		SeqIDType:    queryInt(r, "seq_id_type", 0),
		UseCache:     parseUseCache(r),
		Tse:          parseTse(r),
		ExcludeBlobs: queryBool(r, "exclude_blobs"),
		Flags:        parseFlags(r, getFlagNames),
	}
	s.drive(w, r, req, "/ID/get")
}

func (s *Server) handleGetBlob(w http.ResponseWriter, r *http.Request) {
	blobIDText := r.URL.Query().Get("blob_id")
	if blobIDText == "" {
		writeBadRequest(w, "missing required parameter: blob_id")
		return
	}
	blobID, err := seqid.ParseBlobId(blobIDText)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	req := &processor.Request{
		Kind:   processor.KindGetBySatSatKey,
		Sat:    blobID.Sat,
		SatKey: blobID.SatKey,
		Tse:    parseTse(r),
	}
	if lm := r.URL.Query().Get("last_modified"); lm != "" {
		v, err := strconv.ParseInt(lm, 10, 64)
		if err != nil {
			writeBadRequest(w, "malformed last_modified")
			return
		}
		req.LastModified = v
		req.HasLastMod = true
	}
	s.drive(w, r, req, "/ID/getblob")
}

func (s *Server) handleTSEChunk(w http.ResponseWriter, r *http.Request) {
	tseIDText := r.URL.Query().Get("tse_id")
	chunkText := r.URL.Query().Get("chunk")
	splitVersionText := r.URL.Query().Get("split_version")
	if tseIDText == "" || chunkText == "" || splitVersionText == "" {
		writeBadRequest(w, "missing required parameter: tse_id, chunk, split_version")
		return
	}
	tseID, err := seqid.ParseBlobId(tseIDText)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	chunkNo, err := strconv.Atoi(chunkText)
	if err != nil {
		writeBadRequest(w, "malformed chunk")
		return
	}
	splitVersion, err := strconv.Atoi(splitVersionText)
	if err != nil {
		writeBadRequest(w, "malformed split_version")
		return
	}

	req := &processor.Request{
		Kind:         processor.KindTSEChunk,
		Sat:          tseID.Sat,
		SatKey:       tseID.SatKey,
		ChunkNo:      chunkNo,
		SplitVersion: splitVersion,
	}
	s.drive(w, r, req, "/ID/get_tse_chunk")
}

func (s *Server) handleNamedAnnot(w http.ResponseWriter, r *http.Request) {
	seqID := r.URL.Query().Get("seq_id")
	namesText := r.URL.Query().Get("names")
	if seqID == "" || namesText == "" {
		writeBadRequest(w, "missing required parameter: seq_id, names")
		return
	}
	req := &processor.Request{
		Kind:      processor.KindNamedAnnot,
		SeqID:     seqID,
		SeqIDType: queryInt(r, "seq_id_type", 0),
		Names:     strings.Split(namesText, ","),
	}
	s.drive(w, r, req, "/ID/get_na")
}

// drive instantiates a Reply and Processor for req, runs the processor's
// per-stream event loop, and flushes buffered chunks to the peer
// whenever the connection is write-ready (spec.md §4.7's peek/outputReady
// discipline, realized here via http.Flusher).
func (s *Server) drive(w http.ResponseWriter, r *http.Request, req *processor.Request, endpoint string) {
	start := time.Now()
	rep := reply.New()
	p, ok := s.registry.CreateProcessor(req, rep)
	if !ok {
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/octet-stream")

	p.Process()

	ctx := r.Context()
	for !p.IsFinished() {
		select {
		case <-p.Ready():
			p.ProcessEvent()
			flush(w, flusher, rep)
		case <-ctx.Done():
			p.Cancel()
		case <-time.After(100 * time.Millisecond):
			// Bounded poll as a backstop so a missed wakeup can't hang the
			// stream forever; real progress still comes from Ready().
		}
	}
	flush(w, flusher, rep)

	result := resultLabel(rep)
	s.metrics.RecordRequest(endpoint, rep.Completed(), time.Since(start))
	if !rep.Completed() {
		s.metrics.RecordError("incomplete_reply", "reply completed without closing every item", endpoint, "warning")
	}

	s.hub.Publish(PipelineEvent{
		Endpoint:  endpoint,
		SeqID:     req.SeqID,
		Result:    result,
		NChunks:   rep.ChunkCount(),
		Timestamp: time.Now(),
	})
}

func flush(w http.ResponseWriter, flusher http.Flusher, rep *reply.Reply) {
	for _, c := range rep.Drain() {
		w.Write(c.Encode())
	}
	if flusher != nil {
		flusher.Flush()
	}
}

func resultLabel(rep *reply.Reply) string {
	if rep.Completed() {
		return "completed"
	}
	return "incomplete"
}

// parseTse maps the tse query value onto a processor.TseOption, then lets
// the no_tse/whole_tse/orig_tse shorthand flags (part of the /ID/get flag
// set of spec.md §6) override it when present — a boolean flag is a more
// explicit signal than the enum default, so it wins if both are given.
func parseTse(r *http.Request) processor.TseOption {
	tse := processor.ParseTseOption(r.URL.Query().Get("tse"))
	switch {
	case queryBool(r, "no_tse"):
		return processor.TseNone
	case queryBool(r, "whole_tse"):
		return processor.TseWhole
	case queryBool(r, "orig_tse"):
		return processor.TseOrig
	default:
		return tse
	}
}

// queryBool reports whether key is present with a truthy value ("yes",
// "1", "true").
func queryBool(r *http.Request, key string) bool {
	switch r.URL.Query().Get(key) {
	case "yes", "1", "true":
		return true
	default:
		return false
	}
}

// parseFlags reads every name in names as a boolean query flag, returning
// only the ones present and truthy (nil if none were set).
func parseFlags(r *http.Request, names []string) map[string]bool {
	var flags map[string]bool
	for _, name := range names {
		if queryBool(r, name) {
			if flags == nil {
				flags = make(map[string]bool, len(names))
			}
			flags[name] = true
		}
	}
	return flags
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// parseUseCache maps the use_cache={yes,no,no_cache} query values of
// spec.md §6 onto resolve.UseCache. "no" and "no_cache" are treated as
// synonyms meaning "skip the cache, go to Cassandra directly" — the spec
// doesn't define a distinct meaning for each (documented as an Open
// Question decision in DESIGN.md); "yes" is the ordinary cache-then-DB
// default.
func parseUseCache(r *http.Request) resolve.UseCache {
	switch r.URL.Query().Get("use_cache") {
	case "no", "no_cache":
		return resolve.UseDBOnly
	default:
		return resolve.UseCacheDefault
	}
}
