// Package seqid implements the immutable identifier value types of the PSG
// data model — SeqId, BlobId, Id2Info, ChunkId — their parsing and
// stringification, per spec.md §3–4.1.
package seqid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ocx/backend/internal/psgerr"
)

// ParseOutcome tags the result of parsing a textual seq-id.
type ParseOutcome int

const (
	Parsed ParseOutcome = iota
	Unsupported
	Invalid
)

// SeqId is a textual accession plus an optional version and seq-id-type.
type SeqId struct {
	Accession string
	Version   int  // 0 means "no version specified"
	Type      int  // 0 means "unspecified"
	HasType   bool
}

var accessionWithVersionRE = regexp.MustCompile(`^([A-Za-z0-9_]+)\.(\d+)$`)
var plainAccessionRE = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Parse parses a textual seq-id such as "NM_000170.1" or "NM_000170" into a
// canonical SeqId. Per spec.md §4.4 step 1: a plain accession without
// punctuation that fails to parse is still accepted "as-is"; anything else
// that fails to parse is Invalid.
func Parse(text string, seqIDType int) (SeqId, ParseOutcome) {
	text = strings.TrimSpace(text)
	if text == "" {
		return SeqId{}, Invalid
	}

	if m := accessionWithVersionRE.FindStringSubmatch(text); m != nil {
		version, err := strconv.Atoi(m[2])
		if err != nil {
			return SeqId{}, Invalid
		}
		return SeqId{
			Accession: strings.ToUpper(m[1]),
			Version:   version,
			Type:      seqIDType,
			HasType:   seqIDType != 0,
		}, Parsed
	}

	if plainAccessionRE.MatchString(text) {
		return SeqId{
			Accession: strings.ToUpper(text),
			Type:      seqIDType,
			HasType:   seqIDType != 0,
		}, Parsed
	}

	// Punctuation present but didn't match the accepted shapes: if it has no
	// punctuation at all, continue as-is (spec.md §4.4 step 1); otherwise fail.
	if !strings.ContainsAny(text, "./\\ \t") {
		return SeqId{Accession: strings.ToUpper(text), Type: seqIDType, HasType: seqIDType != 0}, Parsed
	}
	return SeqId{}, Invalid
}

// String renders the canonical text form ("ACCESSION" or "ACCESSION.VERSION").
func (s SeqId) String() string {
	if s.Version > 0 {
		return fmt.Sprintf("%s.%d", s.Accession, s.Version)
	}
	return s.Accession
}

// WithoutVersion returns a copy of s with no version set.
func (s SeqId) WithoutVersion() SeqId {
	s.Version = 0
	return s
}

// WithoutType returns a copy of s with no seq-id-type set.
func (s SeqId) WithoutType() SeqId {
	s.Type = 0
	s.HasType = false
	return s
}

// insdcTypes is the fixed set of INSDC seq-id-types requiring a type-agnostic
// resolution fallback (spec.md §4.1, GLOSSARY "INSDC").
var insdcTypes = map[int]bool{
	5:  true, // GenBank
	6:  true, // EMBL
	7:  true, // PIR (legacy; retained for parity with historical callers)
	8:  true, // SwissProt
	12: true, // DDBJ
	18: true, // TPG (third-party GenBank)
	19: true, // TPE
	20: true, // TPD
}

// IsINSDC reports whether seqIDType belongs to the INSDC fallback set.
func IsINSDC(seqIDType int) bool {
	return insdcTypes[seqIDType]
}

// BlobId is the pair (sat, sat_key); the keyspace for a sat is looked up
// separately (cassfetch.Session.KeyspaceFor).
type BlobId struct {
	Sat    int
	SatKey int
}

var blobIDRE = regexp.MustCompile(`^(\d+)\.(\d+)$`)

// ParseBlobId parses the canonical "sat.sat_key" string form (spec.md §4.1).
func ParseBlobId(text string) (BlobId, error) {
	m := blobIDRE.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return BlobId{}, psgerr.BadRequest(psgerr.CodeBadRequest, fmt.Sprintf("malformed blob_id %q: want sat.sat_key", text))
	}
	sat, _ := strconv.Atoi(m[1])
	satKey, _ := strconv.Atoi(m[2])
	if sat < 0 || satKey < 0 {
		return BlobId{}, psgerr.BadRequest(psgerr.CodeBadRequest, fmt.Sprintf("malformed blob_id %q: sat/sat_key must be >= 0", text))
	}
	return BlobId{Sat: sat, SatKey: satKey}, nil
}

// String renders the canonical "sat.sat_key" form.
func (b BlobId) String() string {
	return fmt.Sprintf("%d.%d", b.Sat, b.SatKey)
}

// Id2Info is the (sat, info, chunks) triple extracted from a blob's
// id2_info property, identifying a split TSE (spec.md §3, §4.1).
type Id2Info struct {
	Sat    int
	Info   int
	Chunks int
}

var id2InfoRE = regexp.MustCompile(`^(-?\d+)\.(-?\d+)\.(-?\d+)$`)

// ParseId2Info parses "sat.info.chunks"; malformed input raises
// InvalidId2Info per spec.md §4.1.
func ParseId2Info(text string) (Id2Info, error) {
	m := id2InfoRE.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Id2Info{}, psgerr.New(500, psgerr.CodeInvalidId2Info, psgerr.SeverityError, fmt.Sprintf("malformed id2_info %q", text))
	}
	sat, _ := strconv.Atoi(m[1])
	info, _ := strconv.Atoi(m[2])
	chunks, _ := strconv.Atoi(m[3])
	if chunks < 0 {
		return Id2Info{}, psgerr.New(500, psgerr.CodeInvalidId2Info, psgerr.SeverityError, fmt.Sprintf("negative chunk count in id2_info %q", text))
	}
	return Id2Info{Sat: sat, Info: info, Chunks: chunks}, nil
}

func (i Id2Info) GetSat() int    { return i.Sat }
func (i Id2Info) GetInfo() int   { return i.Info }
func (i Id2Info) GetChunks() int { return i.Chunks }

func (i Id2Info) String() string {
	return fmt.Sprintf("%d.%d.%d", i.Sat, i.Info, i.Chunks)
}

// ChunkSatKey returns the sat_key for chunk number chunkNo (1-based, per
// spec.md §3: "chunk i ∈ [1, chunks] has sat_key info − chunks − 1 + i").
func (i Id2Info) ChunkSatKey(chunkNo int) int {
	return i.Info - i.Chunks - 1 + chunkNo
}

// SplitInfoSatKey returns the sat_key of the designated split-info chunk,
// which this codebase treats as chunk 0 (emitted before chunks 1..N).
func (i Id2Info) SplitInfoSatKey() int {
	return i.Info - i.Chunks - 1
}

// ChunkId identifies one chunk of a split TSE.
type ChunkId struct {
	Parent  BlobId
	ChunkNo int
}

func (c ChunkId) String() string {
	return fmt.Sprintf("%s/%d", c.Parent, c.ChunkNo)
}
