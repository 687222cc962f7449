package engine

import (
	"math/rand"

	"github.com/fragmentlab/readsim/coverage"
	"github.com/fragmentlab/readsim/distribution"
	"github.com/fragmentlab/readsim/errmodel"
	"github.com/fragmentlab/readsim/mutation"
	"github.com/fragmentlab/readsim/sink"
	"github.com/fragmentlab/readsim/variant"
	"github.com/fragmentlab/readsim/window"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// defaultGCWindow is the GC-bias window size used when a caller supplies no
// GC-bias table, wide enough to smooth per-base noise without washing out
// local composition.
const defaultGCWindow = 100

// Run drives the windowed sampling engine over every configured contig,
// writing reads to cfg.Sink and, once each contig's variants are known,
// its ground-truth variant records. It is the single public entry point a
// CLI or test calls; any invariant violation surfaced as a panic deeper in
// the stack (CIGAR length mismatches, in particular) is recovered here into
// a returned error so a library caller never observes a raw panic.
func Run(cfg Config) (err error) {
	if verr := cfg.Validate(); verr != nil {
		return verr
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("engine: run aborted: %v", r)
		}
	}()

	rng := rand.New(rand.NewSource(cfg.Seed))

	fragDist := cfg.FragDist
	if cfg.PairedEnd && fragDist == nil {
		fragDist, err = distribution.NewGaussianFragmentModel(cfg.FragMean, cfg.FragStd, cfg.ReadLen)
		if err != nil {
			return errors.Wrap(err, "engine: building fragment-length model")
		}
	}

	mutModel := cfg.MutModel
	if cfg.DisableMutations {
		mutModel = nil
	} else if mutModel == nil {
		mutModel, err = mutation.DefaultModel()
		if err != nil {
			return errors.Wrap(err, "engine: building default mutation model")
		}
	}

	errModel := cfg.ErrModel
	if errModel == nil {
		errModel, err = errmodel.DefaultModel(cfg.ReadLen, cfg.ErrorRate, cfg.RescaleQual, rng)
		if err != nil {
			return errors.Wrap(err, "engine: building default error model")
		}
	}

	gcBias := cfg.GCBias
	if gcBias == nil {
		gcBias, err = coverage.DefaultGCBiasTable(defaultGCWindow)
		if err != nil {
			return errors.Wrap(err, "engine: building default GC-bias table")
		}
	}

	params := window.Params{
		Ploidy:                cfg.Ploidy,
		ReadLen:               cfg.ReadLen,
		PairedEnd:             cfg.PairedEnd,
		FragDist:              fragDist,
		Coverage:              cfg.Coverage,
		ForceCoverage:         cfg.ForceCoverage,
		MutModel:              mutModel,
		ErrModel:              errModel,
		NHandling:             cfg.NHandling,
		NQualThreshold:        cfg.NQualThreshold,
		DiscardOffTarget:      cfg.DiscardOffTarget,
		OffTargetHitThreshold: cfg.OffTargetHitThreshold,
		LowCovThreshold:       cfg.LowCovThreshold,
	}

	contigs := cfg.Contigs
	if len(contigs) == 0 {
		contigs = cfg.Reference.Names()
	}

	// One Scheduler for the whole run: its RNG, read-name counter, and
	// deferred unmapped-read list are run-wide, not per-contig.
	sched := window.New(params, cfg.Sink, rng, nil)

	for idx, contig := range contigs {
		if err := runContig(sched, cfg, contig, idx, gcBias); err != nil {
			return err
		}
	}

	if err := sched.FlushUnmapped(); err != nil {
		return errors.Wrap(err, "engine: flushing deferred unmapped records")
	}
	if err := cfg.Sink.Close(); err != nil {
		return errors.Wrap(err, "engine: closing sink")
	}
	return nil
}

func runContig(sched *window.Scheduler, cfg Config, contig string, idx int, gcBias *coverage.GCBiasTable) error {
	length, err := cfg.Reference.Len(contig)
	if err != nil {
		return errors.Wrapf(err, "engine: contig %s", contig)
	}
	ref, err := cfg.Reference.Get(contig, 0, length)
	if err != nil {
		return errors.Wrapf(err, "engine: contig %s", contig)
	}

	target := cfg.TargetByContig[contig]
	discard := cfg.DiscardByContig[contig]
	sched.SetTarget(target)

	profile := &coverage.Profile{
		GCBias:          gcBias,
		Target:          target,
		Discard:         discard,
		OffTargetScalar: cfg.OffTargetScalar,
	}

	accepted, counts := IngestVariants(ref, cfg.VcfVariants[contig])
	if counts.Total() > 0 {
		log.Printf("engine: contig %s: skipped %d input variants (ref-mismatch=%d n-overlap=%d non-acgt-alt=%d)",
			contig, counts.Total(), counts.RefMismatch, counts.NOverlap, counts.NonACGTAlt)
	}

	ledger, err := sched.RunContig(contig, idx, ref, accepted, profile)
	if err != nil {
		return errors.Wrapf(err, "engine: contig %s", contig)
	}

	for _, v := range ledger.Sorted() {
		if err := cfg.Sink.WriteVcf(toVcfRecord(contig, v)); err != nil {
			return errors.Wrapf(err, "engine: writing variant record for contig %s", contig)
		}
	}
	return nil
}

func toVcfRecord(contig string, v variant.Variant) sink.VcfRecord {
	gt := make([]byte, len(v.Genotype))
	for i, carries := range v.Genotype {
		if carries {
			gt[i] = '1'
		} else {
			gt[i] = '0'
		}
	}
	return sink.VcfRecord{
		Contig:   contig,
		Pos1:     v.Pos + 1,
		ID:       ".",
		Ref:      v.Ref,
		Alts:     []string{v.Alt},
		Qual:     0,
		Filter:   "PASS",
		Genotype: string(gt),
	}
}
