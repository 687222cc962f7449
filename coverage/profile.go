// Package coverage computes the per-base coverage density (C5) that the
// SequenceContainer turns into a read-start sampling distribution: a GC-
// bias scalar combined with a target/discard mask.
package coverage

import (
	"github.com/fragmentlab/readsim/genomic"
	"github.com/pkg/errors"
)

// ErrDiscarded is returned by Compute when any position in the window
// falls inside a discard interval; per the contract, such a window is
// skipped entirely rather than partially scored.
var ErrDiscarded = errors.New("coverage: window overlaps a discard interval")

// Profile configures coverage-vector computation for one contig.
type Profile struct {
	GCBias *GCBiasTable
	// Target is nil when no targeting is in effect (every position scores
	// 1.0). When non-nil, positions outside Target score OffTargetScalar.
	Target *genomic.BEDUnion
	// Discard positions cause Compute to fail with ErrDiscarded.
	Discard         *genomic.BEDUnion
	OffTargetScalar float64
}

// Vector is a per-position coverage multiplier over one window.
type Vector struct {
	// Start is the absolute reference coordinate of Values[0].
	Start int
	Values []float64
	// TargetHits counts how many positions in the window fell inside
	// Target; meaningful only when Target != nil.
	TargetHits int
}

// Sum returns the total coverage mass in the vector.
func (v *Vector) Sum() float64 {
	total := 0.0
	for _, x := range v.Values {
		total += x
	}
	return total
}

// Compute derives the CoverageVector for ref[start:end) (ref is the full
// contig sequence; start/end are absolute reference coordinates), centering
// each position's GCBias.WindowSize-wide GC window on that position.
func (p *Profile) Compute(ref []byte, start, end int) (*Vector, error) {
	n := end - start
	v := &Vector{Start: start, Values: make([]float64, n)}

	halfWindow := p.GCBias.WindowSize / 2
	for i := 0; i < n; i++ {
		pos := start + i
		if p.Discard != nil && p.Discard.Contains(genomic.PosType(pos)) {
			return nil, ErrDiscarded
		}

		gc := gcCount(ref, pos-halfWindow, pos-halfWindow+p.GCBias.WindowSize)
		gcScale := p.GCBias.Scale(gc)

		targetScale := 1.0
		if p.Target != nil {
			if p.Target.Contains(genomic.PosType(pos)) {
				v.TargetHits++
			} else {
				targetScale = p.OffTargetScalar
			}
		}
		v.Values[i] = gcScale * targetScale
	}
	return v, nil
}
