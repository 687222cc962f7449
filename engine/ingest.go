package engine

import "github.com/fragmentlab/readsim/variant"

// IngestVariants validates candidate variants against ref (one contig's full
// sequence) and returns the accepted subset, sorted by position, alongside
// the three-bucket skip-count tally: reference-allele mismatch, overlap
// with an N base, and a non-ACGT alternate allele. Mirrors the original
// simulator's n_skipped triple.
func IngestVariants(ref []byte, candidates []variant.Variant) ([]variant.Variant, variant.SkipCounts) {
	var accepted []variant.Variant
	var counts variant.SkipCounts

	for _, v := range candidates {
		end := v.Pos + v.RefLen()
		if v.Pos < 0 || end > len(ref) {
			counts.RefMismatch++
			continue
		}
		if v.Kind != variant.Ins && string(ref[v.Pos:end]) != v.Ref {
			counts.RefMismatch++
			continue
		}
		if overlapsN(ref, v.Pos, end) {
			counts.NOverlap++
			continue
		}
		if !isACGT(v.Alt) {
			counts.NonACGTAlt++
			continue
		}
		v.FromVCF = true
		accepted = append(accepted, v)
	}

	insertionSortByPos(accepted)
	return accepted, counts
}

func overlapsN(ref []byte, start, end int) bool {
	for i := start; i < end; i++ {
		if ref[i] == 'N' {
			return true
		}
	}
	return false
}

func isACGT(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T':
		default:
			return false
		}
	}
	return true
}

// insertionSortByPos sorts small, already-mostly-ordered variant slices
// in place by position. VCF input is conventionally position-sorted, so a
// simple insertion sort avoids pulling in sort.Slice's reflection overhead
// for the common case while still handling an out-of-order input file.
func insertionSortByPos(vs []variant.Variant) {
	for i := 1; i < len(vs); i++ {
		v := vs[i]
		j := i - 1
		for j >= 0 && vs[j].Pos > v.Pos {
			vs[j+1] = vs[j]
			j--
		}
		vs[j+1] = v
	}
}
