package processor

import "github.com/ocx/backend/internal/seqid"

// projectBioseqInfo shapes a resolved bioseq_info record according to the
// /ID/get field-selector flags of spec.md §6 (canon_id, other_ids,
// mol_type, state, blob_id, tax_id, fast_info). With no flags set, the
// full record is returned unchanged — the common case. The length and
// hash flags are accepted but have no backing field anywhere in this
// distillation's BioseqInfo record (spec.md §3 doesn't carry sequence
// length or a content hash), so they select nothing; see DESIGN.md.
func projectBioseqInfo(info seqid.BioseqInfo, flags map[string]bool) interface{} {
	if len(flags) == 0 {
		return info
	}

	out := map[string]interface{}{}
	if flags["fast_info"] {
		out["accession"] = info.Accession
		out["version"] = info.Version
		out["blob_id"] = info.BlobId.String()
		out["state"] = info.State
	}
	if flags["canon_id"] {
		out["accession"] = info.Accession
		out["version"] = info.Version
	}
	if flags["other_ids"] {
		out["synonyms"] = info.Synonyms
	}
	if flags["mol_type"] {
		out["mol_type"] = info.MolType
	}
	if flags["state"] {
		out["state"] = info.State
	}
	if flags["blob_id"] {
		out["blob_id"] = info.BlobId.String()
	}
	if flags["tax_id"] {
		out["tax_id"] = info.TaxId
	}

	if len(out) == 0 {
		return info
	}
	return out
}
