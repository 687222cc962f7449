// Package engine is the top-level orchestration layer (C11): a validated
// Config, VCF-variant ingest with skip-count bookkeeping, and Run, the
// single entry point that drives the windowed sampling engine over every
// contig of a reference and writes reads and ground-truth variants to an
// OutputSink.
package engine

import (
	"strings"

	"github.com/fragmentlab/readsim/coverage"
	"github.com/fragmentlab/readsim/distribution"
	"github.com/fragmentlab/readsim/errmodel"
	"github.com/fragmentlab/readsim/genomic"
	"github.com/fragmentlab/readsim/mutation"
	"github.com/fragmentlab/readsim/refindex"
	"github.com/fragmentlab/readsim/sink"
	"github.com/fragmentlab/readsim/variant"
	"github.com/fragmentlab/readsim/window"
	"github.com/pkg/errors"
)

// Config carries every option in the configuration-surface table: reference
// access is through refindex.Reference rather than a path, since reading a
// FASTA file is out of scope for this repository.
type Config struct {
	Reference refindex.Reference
	Sink      sink.OutputSink
	// Contigs restricts the run to a subset of Reference.Names(), in the
	// given order. Empty means every contig, in the reference's own order.
	Contigs []string
	Seed    int64

	Ploidy    int
	ReadLen   int
	PairedEnd bool
	// FragMean/FragStd build a Gaussian fragment-length model when FragDist
	// is nil, matching the original's --pe mean/std flags.
	FragMean, FragStd float64
	// FragDist overrides FragMean/FragStd with an empirical model.
	FragDist *distribution.Discrete

	Coverage      float64
	ForceCoverage bool

	// MutModel overrides the default mutation model. DisableMutations takes
	// precedence over a non-nil MutModel.
	MutModel         *mutation.Model
	DisableMutations bool

	ErrorRate   float64
	RescaleQual bool
	// ErrModel overrides the default error model built from ErrorRate.
	ErrModel *errmodel.Model

	NHandling      window.NHandling
	NQualThreshold int

	// GCBias overrides the default flat (no-bias) table.
	GCBias *coverage.GCBiasTable

	TargetByContig        map[string]*genomic.BEDUnion
	DiscardByContig       map[string]*genomic.BEDUnion
	OffTargetScalar       float64
	DiscardOffTarget      bool
	OffTargetHitThreshold int

	LowCovThreshold float64

	// VcfVariants supplies already-parsed, per-contig candidate variants;
	// IngestVariants validates each against the reference before it reaches
	// the scheduler.
	VcfVariants map[string][]variant.Variant
}

// Validate performs required-field and range checks on the configuration
// and returns every violation found, joined into one error, so a CLI can
// report them all at once rather than one flag at a time. It makes no
// mutual-exclusion checks between options (for example, FragMean and
// FragStd are not required to be set together).
func (c Config) Validate() error {
	var problems []string
	note := func(format string, args ...interface{}) {
		problems = append(problems, errors.Errorf(format, args...).Error())
	}

	if c.Reference == nil {
		note("Reference is required")
	}
	if c.Sink == nil {
		note("Sink is required")
	}
	if c.Ploidy < 1 {
		note("Ploidy must be >= 1, got %d", c.Ploidy)
	}
	if c.ReadLen < 1 {
		note("ReadLen must be >= 1, got %d", c.ReadLen)
	}
	if c.Coverage <= 0 {
		note("Coverage must be > 0, got %v", c.Coverage)
	}
	if c.PairedEnd {
		if c.FragDist == nil {
			if c.FragMean <= float64(c.ReadLen) {
				note("FragMean (%v) must exceed ReadLen (%d) in paired-end mode", c.FragMean, c.ReadLen)
			}
			if c.FragStd < 0 {
				note("FragStd must be >= 0, got %v", c.FragStd)
			}
		}
	}
	if c.ErrorRate < 0 || c.ErrorRate >= 1 {
		note("ErrorRate must be in [0,1), got %v", c.ErrorRate)
	}
	if c.RescaleQual && c.ErrorRate <= 0 {
		note("RescaleQual requires a positive ErrorRate")
	}
	if !c.DisableMutations && c.MutModel != nil {
		if c.MutModel.Rate < 0 || c.MutModel.Rate > 1 {
			note("MutModel.Rate must be in [0,1], got %v", c.MutModel.Rate)
		}
		if c.MutModel.IndelFraction < 0 || c.MutModel.IndelFraction > 1 {
			note("MutModel.IndelFraction must be in [0,1], got %v", c.MutModel.IndelFraction)
		}
		if c.MutModel.InsertionFraction < 0 || c.MutModel.InsertionFraction > 1 {
			note("MutModel.InsertionFraction must be in [0,1], got %v", c.MutModel.InsertionFraction)
		}
	}
	if c.NQualThreshold < 0 {
		note("NQualThreshold must be >= 0, got %d", c.NQualThreshold)
	}
	if c.OffTargetHitThreshold < 0 {
		note("OffTargetHitThreshold must be >= 0, got %d", c.OffTargetHitThreshold)
	}
	if c.LowCovThreshold < 0 {
		note("LowCovThreshold must be >= 0, got %v", c.LowCovThreshold)
	}
	if (c.DiscardOffTarget || len(c.TargetByContig) > 0) && (c.OffTargetScalar < 0 || c.OffTargetScalar > 1) {
		note("OffTargetScalar must be in [0,1], got %v", c.OffTargetScalar)
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("engine: invalid configuration: " + strings.Join(problems, "; "))
}
