// Package distribution implements weighted categorical sampling used
// throughout the read simulator: fragment-length draws, indel-length draws,
// read-start positions, quality scores, and trinucleotide substitution
// choices all reduce to the same weighted-draw-with-binary-search shape.
package distribution

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
)

// Discrete is a weighted categorical sampler over an arbitrary value slice.
// It normalizes the supplied weights into a cumulative table on
// construction so that Sample runs in O(log n) via binary search, the same
// idiom the teacher pack uses for sorted-endpoint interval lookups.
type Discrete struct {
	values []float64
	cum    []float64
	// degenerate holds the fixed return value when the distribution was
	// constructed with a single weight; sampling never touches cum in that
	// case.
	degenerate    bool
	degenerateVal float64
	// representative is values[MeanIndex(weights)], precomputed at
	// construction time so callers needing a single "typical" draw (e.g.
	// sizing a window to a representative fragment length) don't need a
	// live RNG.
	representative float64
}

// New builds a Discrete distribution from parallel values/weights slices.
// Weights must be non-negative and at least one must be strictly positive.
// A length-1 weights vector is the degenerate case: Sample always returns
// values[0].
func New(values, weights []float64) (*Discrete, error) {
	if len(values) != len(weights) {
		return nil, errors.Errorf("distribution: values and weights length mismatch: %d != %d", len(values), len(weights))
	}
	if len(values) == 0 {
		return nil, errors.New("distribution: empty distribution")
	}
	if len(values) == 1 {
		return &Discrete{degenerate: true, degenerateVal: values[0], representative: values[0]}, nil
	}

	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, errors.Errorf("distribution: negative weight %v", w)
		}
		total += w
	}
	if total <= 0 {
		return nil, errors.New("distribution: all weights are zero")
	}

	d := &Discrete{
		values: append([]float64(nil), values...),
		cum:    make([]float64, len(weights)),
	}
	running := 0.0
	for i, w := range weights {
		running += w / total
		d.cum[i] = running
	}
	// Guard against floating point drift so the final bin always contains 1.0.
	d.cum[len(d.cum)-1] = 1.0
	d.representative = values[MeanIndex(weights)]
	return d, nil
}

// Representative returns the precomputed "typical" value of the
// distribution (the value at MeanIndex of the original weights), useful
// when a caller needs one deterministic representative draw rather than a
// live sample.
func (d *Discrete) Representative() float64 {
	return d.representative
}

// MaxValue returns the largest value the distribution can draw, used by the
// window scheduler to size the minimum window span against the worst-case
// fragment length rather than just its representative value.
func (d *Discrete) MaxValue() float64 {
	if d.degenerate {
		return d.degenerateVal
	}
	max := d.values[0]
	for _, v := range d.values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Sample draws a uniform variate in [0,1) from rng and returns the value
// whose cumulative bin contains it.
func (d *Discrete) Sample(rng *rand.Rand) float64 {
	if d.degenerate {
		return d.degenerateVal
	}
	u := rng.Float64()
	idx := sort.Search(len(d.cum), func(i int) bool { return d.cum[i] > u })
	if idx == len(d.cum) {
		idx = len(d.cum) - 1
	}
	return d.values[idx]
}

// SampleIndex is like Sample but returns the index into the original
// values/weights slices rather than the value itself, useful when the
// caller associates out-of-band data (e.g. a trinucleotide context) with
// each weight.
func (d *Discrete) SampleIndex(rng *rand.Rand) int {
	if d.degenerate {
		return 0
	}
	u := rng.Float64()
	idx := sort.Search(len(d.cum), func(i int) bool { return d.cum[i] > u })
	if idx == len(d.cum) {
		idx = len(d.cum) - 1
	}
	return idx
}

// MeanIndex returns the index i minimizing |sum_{<=i} w - 0.5|, used to pick
// a single "representative" value out of a weighted distribution (e.g. the
// representative fragment length for sizing windows).
func MeanIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}
	best := 0
	bestDelta := 2.0
	running := 0.0
	for i, w := range weights {
		running += w / total
		delta := running - 0.5
		if delta < 0 {
			delta = -delta
		}
		if delta < bestDelta {
			bestDelta = delta
			best = i
		}
	}
	return best
}
