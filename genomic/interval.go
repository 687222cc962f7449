// Package genomic adapts the teacher pack's interval-union machinery
// (github.com/grailbio/bio's interval.BEDUnion/UnionScanner) to the three
// mask concerns this simulator needs: target regions, discard regions, and
// per-region mutation-rate multipliers. All three reduce to "is position p
// inside an interval, and if so what's the payload". BEDUnion (target and
// discard masks) answers in O(log n) via a sorted endpoint array; RateMask
// scans its interval list linearly.
package genomic

import (
	"sort"
	"strings"
)

// PosType is this package's coordinate type, matching the teacher's choice
// of int32 (bounded by BAM's own 31-bit position field). It is an alias of
// int32, so it mixes freely with any other int32 value.
type PosType = int32

// Interval is a single half-open [Start, End) span.
type Interval struct {
	Start, End PosType
}

// BEDUnion is a set of disjoint, merged half-open intervals for one contig,
// represented as a sorted sequence of endpoints: even-indexed entries open
// an interval, odd-indexed entries close it. This is the same
// representation as the teacher's interval.BEDUnion.
type BEDUnion struct {
	endpoints []PosType
}

// NewBEDUnion merges the supplied intervals (which may overlap or be
// unsorted) into a canonical BEDUnion.
func NewBEDUnion(intervals []Interval) *BEDUnion {
	if len(intervals) == 0 {
		return &BEDUnion{}
	}
	sorted := append([]Interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var merged []Interval
	cur := sorted[0]
	for _, iv := range sorted[1:] {
		if iv.Start <= cur.End {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = iv
	}
	merged = append(merged, cur)

	endpoints := make([]PosType, 0, 2*len(merged))
	for _, iv := range merged {
		endpoints = append(endpoints, iv.Start, iv.End)
	}
	return &BEDUnion{endpoints: endpoints}
}

// Contains reports whether pos lies within any interval of the union.
// Equivalent to the original simulator's `bisect.bisect(regions, pos) % 2`.
func (u *BEDUnion) Contains(pos PosType) bool {
	if u == nil || len(u.endpoints) == 0 {
		return false
	}
	idx := sort.Search(len(u.endpoints), func(i int) bool { return u.endpoints[i] > pos })
	return idx%2 == 1
}

// Empty reports whether the union has no intervals.
func (u *BEDUnion) Empty() bool {
	return u == nil || len(u.endpoints) == 0
}

// CountWithin returns the number of positions in [start, end) contained by
// the union, used by the window scheduler's off-target read rejection.
func (u *BEDUnion) CountWithin(start, end PosType) int {
	if u.Empty() {
		return 0
	}
	count := 0
	for p := start; p < end; p++ {
		if u.Contains(p) {
			count++
		}
	}
	return count
}

// NormalizeContig strips a leading "chr" prefix from name when reference
// uses unprefixed names, or adds it when the reference does use the prefix,
// matching the "chr" auto-normalization rule in the BED input contract.
func NormalizeContig(name string, referenceUsesChrPrefix bool) string {
	hasPrefix := strings.HasPrefix(name, "chr")
	switch {
	case referenceUsesChrPrefix && !hasPrefix:
		return "chr" + name
	case !referenceUsesChrPrefix && hasPrefix:
		return strings.TrimPrefix(name, "chr")
	default:
		return name
	}
}
