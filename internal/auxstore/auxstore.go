// Package auxstore implements the WGS/OSG auxiliary-store plugin
// (spec.md's resolution pipeline is silent on WGS master-record assembly;
// original_source/src/app/pubseq_gateway/server/wgs_processor.cpp shows it
// as a real fallback path consulted once Cassandra's bioseq_info table
// comes back empty for a WGS-shaped accession).
//
// Grounded on the teacher's internal/federation gRPC client/server pair
// (Generativebots-ocx-backend-go-svc/internal/federation/handshake_client.go,
// handshake_service.go): a grpc.ClientConn wrapper with a narrow
// request/response pair and codes/status error mapping, generalized from
// inter-agent handshake messages to a single accession lookup RPC.
package auxstore

import "regexp"

// Record is the subset of a WGS master record PSG needs to synthesize a
// bioseq_info-shaped answer for an accession Cassandra doesn't carry.
type Record struct {
	Accession string
	Version   int
	SeqIdType int
	Gi        int64
	Sat       int
	SatKey    int
	MolType   string
	Length    int64
}

// wgsAccession matches the NCBI WGS/WGS-scaffold accession shape: a 4-6
// letter project prefix, a 2-digit assembly version, then a numeric
// contig/scaffold serial (see wgs_processor.cpp's reliance on CWGSResolver
// recognizing this same prefix+version+serial layout).
var wgsAccession = regexp.MustCompile(`^[A-Z]{4,6}[0-9]{2}[0-9]{6,9}$`)

// LooksLikeWGS reports whether accession has the WGS project-prefix shape,
// the cheap pre-check the engine runs before paying for an auxstore RPC.
func LooksLikeWGS(accession string) bool {
	return wgsAccession.MatchString(accession)
}
