package variant

import "sort"

// Ledger accumulates the set of successfully introduced variants for one
// contig, deduplicated by (pos, ref, alt, genotype) and emitted in sorted
// order, matching the VariantLedger invariant in the data model.
type Ledger struct {
	seen map[string]struct{}
	vars []Variant
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Add inserts v into the ledger, ignoring it if an identical variant
// (by dedup key) is already present.
func (l *Ledger) Add(v Variant) {
	k := v.key()
	if _, ok := l.seen[k]; ok {
		return
	}
	l.seen[k] = struct{}{}
	l.vars = append(l.vars, v)
}

// Len returns the number of distinct variants in the ledger.
func (l *Ledger) Len() int {
	return len(l.vars)
}

// Sorted returns the ledger's variants ordered by position, breaking ties
// by kind then ref then alt so output is deterministic.
func (l *Ledger) Sorted() []Variant {
	out := append([]Variant(nil), l.vars...)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Pos != b.Pos {
			return a.Pos < b.Pos
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Ref != b.Ref {
			return a.Ref < b.Ref
		}
		return a.Alt < b.Alt
	})
	return out
}
