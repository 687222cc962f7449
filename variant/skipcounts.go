package variant

// SkipCounts tallies why input variants were rejected during ingest,
// mirroring the original simulator's n_skipped triple (ref mismatch, N
// overlap, non-ACGT alt).
type SkipCounts struct {
	RefMismatch int
	NOverlap    int
	NonACGTAlt  int
}

// Total returns the sum of all skip reasons.
func (s SkipCounts) Total() int {
	return s.RefMismatch + s.NOverlap + s.NonACGTAlt
}
