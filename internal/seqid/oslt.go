package seqid

import "fmt"

// OSLTVariants derives the primary and secondary OSLT ("one symbol lookup
// table") forms of a parsed seq-id, per spec.md §4.4 step 2. The original
// C++ toolkit's exact canonicalization table lives outside this repo's
// scope (ObjectManager internals); this derives the two transformations
// supplemented from original_source/include/objmgr/util/indexer.hpp that
// matter for cache/Cassandra lookup: a version-stripped form, and — for
// INSDC seq-id-types — a type-stripped form.
func OSLTVariants(id SeqId) (primary SeqId, secondary []SeqId) {
	primary = id

	keyOf := func(v SeqId) string { return fmt.Sprintf("%s/%t/%d", v.String(), v.HasType, v.Type) }
	seen := map[string]bool{keyOf(primary): true}
	add := func(v SeqId) {
		key := keyOf(v)
		if !seen[key] {
			seen[key] = true
			secondary = append(secondary, v)
		}
	}

	if id.Version > 0 {
		add(id.WithoutVersion())
	}
	if id.HasType && IsINSDC(id.Type) {
		add(id.WithoutType())
		if id.Version > 0 {
			add(id.WithoutType().WithoutVersion())
		}
	}
	return primary, secondary
}
