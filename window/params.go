// Package window implements the WindowScheduler (C7): the state machine
// that drives overlapping windows across each contig's non-N spans,
// carrying variant state across window boundaries and coordinating the
// mutation, coverage, and read-sampling stages described by the design for
// every window it opens.
package window

import (
	"github.com/fragmentlab/readsim/distribution"
	"github.com/fragmentlab/readsim/errmodel"
	"github.com/fragmentlab/readsim/mutation"
)

// NHandling selects how the scheduler treats the sparse N bases that a
// short N run (below the minimum reportable run length) folds into a non-N
// span, per the N-region data model.
type NHandling int

const (
	// NIgnore discards any read that touches an N base.
	NIgnore NHandling = iota
	// NRandom replaces N bases with a uniformly random base before a window
	// is sampled, keeping paired-end fragment lengths valid.
	NRandom
)

// defaultLowCovThreshold is the window-sum coverage floor below which a
// window is skipped entirely, per the CoverageProfile contract.
const defaultLowCovThreshold = 50.0

// Params configures a Scheduler run across every contig of a reference.
// One Params value is shared by all contigs; per-contig masks travel
// separately as a *coverage.Profile (§4.5/§4.10).
type Params struct {
	Ploidy    int
	ReadLen   int
	PairedEnd bool
	// FragDist is the fragment-length distribution for paired-end mode,
	// built from --pe mean/std or supplied as an empirical model. Nil for
	// single-end runs.
	FragDist *distribution.Discrete

	Coverage      float64
	ForceCoverage bool

	MutModel *mutation.Model
	ErrModel *errmodel.Model

	NHandling      NHandling
	NQualThreshold int

	DiscardOffTarget bool
	// OffTargetHitThreshold defaults to ReadLen when zero, per the Open
	// Question decision to keep the original's base-count threshold but
	// expose it as a tunable.
	OffTargetHitThreshold int

	// LowCovThreshold defaults to defaultLowCovThreshold when zero.
	LowCovThreshold float64
}

// overlap is the fixed inter-window overlap: the representative fragment
// length in paired-end mode, or the read length in single-end mode, per the
// Window data-model definition.
func (p Params) overlap() int {
	if p.PairedEnd && p.FragDist != nil {
		return int(p.FragDist.Representative())
	}
	return p.ReadLen
}

// fragmentSize returns the representative fragment length, 0 in
// single-end mode.
func (p Params) fragmentSize() int {
	if p.PairedEnd && p.FragDist != nil {
		return int(p.FragDist.Representative())
	}
	return 0
}

// maxFragmentLen returns the worst-case fragment length used to size
// overlapMinWindowSize: FragDist's largest value in paired-end mode, 0 in
// single-end mode or when FragDist is nil.
func (p Params) maxFragmentLen() int {
	if p.PairedEnd && p.FragDist != nil {
		return int(p.FragDist.MaxValue())
	}
	return 0
}

// overlapMinWindowSize is the minimum span a window (or a span considered
// for windowing) must accommodate.
func (p Params) overlapMinWindowSize() int {
	if p.PairedEnd {
		return p.maxFragmentLen() + 10
	}
	return p.ReadLen + 10
}

// nRunMergeThreshold is the minimum N-run length reported as its own N
// span; shorter runs fold into their neighboring non-N span, per §4.4.
func (p Params) nRunMergeThreshold() int {
	if f := p.fragmentSize(); f > p.ReadLen {
		return f
	}
	return p.ReadLen
}

// kFactor is the read-budget divisor: 2 for paired-end (each fragment
// yields two reads), 1 for single-end.
func (p Params) kFactor() int {
	if p.PairedEnd {
		return 2
	}
	return 1
}

func (p Params) lowCovThreshold() float64 {
	if p.LowCovThreshold > 0 {
		return p.LowCovThreshold
	}
	return defaultLowCovThreshold
}

func (p Params) offTargetThreshold() int {
	if p.OffTargetHitThreshold > 0 {
		return p.OffTargetHitThreshold
	}
	return p.ReadLen
}
