// Package sequence implements the SequenceContainer (C6): the per-ploidy
// mutated-haplotype model with CIGAR-accurate coordinate mapping, random
// mutation injection, coverage-weighted read-start sampling, and the
// read/read-pair sampler itself. It is the heart of the windowed sampling
// engine described in the design.
package sequence

import (
	"math/rand"
	"sort"

	"github.com/biogo/hts/sam"
	"github.com/fragmentlab/readsim/coverage"
	"github.com/fragmentlab/readsim/distribution"
	"github.com/fragmentlab/readsim/errmodel"
	"github.com/fragmentlab/readsim/mutation"
	"github.com/fragmentlab/readsim/variant"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// maxSampleRetries bounds how many times SampleRead will retry drawing a
// start position before giving up on a read.
const maxSampleRetries = 100

// Read is one emitted, error-decorated read. RefPos is nil when the read
// falls entirely inside an insertion and has no reference anchor (it still
// pairs with its mate).
type Read struct {
	RefPos  *int
	Cigar   sam.Cigar
	Bases   []byte
	Quals   []byte
	IsMate2 bool
}

// Container is the mutated-haplotype model for one window, across all
// ploids. It is created once per contig and then Update-d in place for
// each subsequent window. The Container value itself is reused; its
// haplotype, applied-variant and position buffers are allocated afresh on
// every Update, not preserved across windows.
type Container struct {
	ploidy  int
	readLen int
	overlap int

	refStart int
	ref      []byte

	haplotypes []*haplotype
	applied    []variant.Variant // all variants applied to the current window, across ploids
	appliedPos map[int]bool

	mutModel *mutation.Model

	startDist       *distribution.Discrete
	avgCoverageMult float64
}

// NewContainer builds a fresh SequenceContainer for the first usable
// window of a contig.
func NewContainer(refStart int, ref []byte, ploidy, overlap, readLen int, mutModel *mutation.Model) *Container {
	c := &Container{
		ploidy:   ploidy,
		readLen:  readLen,
		overlap:  overlap,
		mutModel: mutModel,
	}
	c.reset(refStart, ref)
	return c
}

// Update rebinds the container to a new window, rebuilding haplotypes and
// CIGAR maps and reusing the Container struct itself; its internal slices
// and maps are replaced with new ones rather than reused.
func (c *Container) Update(refStart int, ref []byte) {
	c.reset(refStart, ref)
}

func (c *Container) reset(refStart int, ref []byte) {
	c.refStart = refStart
	c.ref = ref
	c.applied = nil
	c.appliedPos = make(map[int]bool)
	c.haplotypes = make([]*haplotype, c.ploidy)
	for p := 0; p < c.ploidy; p++ {
		h := buildHaplotype(ref, nil)
		h.buildCigarMap(len(ref), c.readLen)
		c.haplotypes[p] = h
	}
	c.startDist = nil
	c.avgCoverageMult = 0
}

// AppliedVariants returns every variant currently applied to this window
// (both user-supplied and randomly generated), with Pos translated back to
// absolute reference coordinates.
func (c *Container) AppliedVariants() []variant.Variant {
	out := make([]variant.Variant, len(c.applied))
	for i, v := range c.applied {
		v.Pos += c.refStart
		out[i] = v
	}
	return out
}

// WindowBounds returns the absolute reference coordinates of the current
// window.
func (c *Container) WindowBounds() (start, end int) {
	return c.refStart, c.refStart + len(c.ref)
}

// InsertVariants applies vars (already translated to window-relative
// coordinates internally) to the haplotypes of whichever ploids their
// genotype selects, then rebuilds the affected haplotypes' CIGAR maps.
// Variants whose Pos is already occupied by a previously applied variant
// are rejected; ties are resolved in favor of whichever variant was
// already present (the mutation-model contract's tie-break rule, enforced
// by the caller ordering user variants before random ones). A variant
// carried in from the previous window that now falls before refStart is
// skipped rather than rejected, same as buildHaplotype's own tolerance for
// a variant below refPos: the carry-across-windows boundary is a routine
// coordinate edge, not a corrupt variant.
func (c *Container) InsertVariants(vars []variant.Variant) error {
	touched := make(map[int]bool)
	for _, v := range vars {
		rel := v.Pos - c.refStart
		if rel < 0 {
			continue
		}
		if rel >= len(c.ref) {
			return errors.Errorf("sequence: variant at %d falls outside window [%d,%d)", v.Pos, c.refStart, c.refStart+len(c.ref))
		}
		if c.appliedPos[v.Pos] {
			continue
		}
		if err := validateAgainstRef(c.ref, rel, v); err != nil {
			return err
		}
		c.appliedPos[v.Pos] = true
		local := v
		local.Pos = rel
		c.applied = append(c.applied, local)
		for p, has := range v.Genotype {
			if has {
				touched[p] = true
			}
		}
	}
	c.rebuild(touched)
	return nil
}

func validateAgainstRef(ref []byte, rel int, v variant.Variant) error {
	switch v.Kind {
	case variant.Snp:
		if string(ref[rel]) != v.Ref {
			return errors.Errorf("sequence: snp ref mismatch at %d: have %c, want %s", v.Pos, ref[rel], v.Ref)
		}
	case variant.Del:
		end := rel + len(v.Ref)
		if end > len(ref) {
			return errors.Errorf("sequence: deletion at %d runs past window end", v.Pos)
		}
		if string(ref[rel:end]) != v.Ref {
			return errors.Errorf("sequence: deletion ref mismatch at %d", v.Pos)
		}
	}
	return nil
}

// rebuild reconstructs the haplotypes for the given ploid indices (or all
// ploids, if touched is empty) from c.applied.
func (c *Container) rebuild(touched map[int]bool) {
	all := len(touched) == 0
	sort.Slice(c.applied, func(i, j int) bool { return c.applied[i].Pos < c.applied[j].Pos })
	for p := 0; p < c.ploidy; p++ {
		if !all && !touched[p] {
			continue
		}
		var vs []variant.Variant
		for _, v := range c.applied {
			if p < len(v.Genotype) && v.Genotype[p] {
				vs = append(vs, v)
			}
		}
		h := buildHaplotype(c.ref, vs)
		h.buildCigarMap(len(c.ref), c.readLen)
		c.haplotypes[p] = h
	}
}

// RandomMutations draws new variants from the mutation model within
// [start+overlap, end-overlap), rejects collisions with already-applied
// variants, and applies the survivors. It returns the newly applied
// variants (in absolute reference coordinates) for the caller to add to
// the contig-wide ledger.
func (c *Container) RandomMutations(rng *rand.Rand) ([]variant.Variant, error) {
	if c.mutModel == nil {
		return nil, nil
	}
	drawn, err := c.mutModel.Generate(c.ref, c.refStart, c.overlap, c.ploidy, c.appliedPos, rng)
	if err != nil {
		return nil, errors.Wrap(err, "sequence: generating random mutations")
	}
	if len(drawn) == 0 {
		return nil, nil
	}
	if err := c.InsertVariants(drawn); err != nil {
		return nil, err
	}
	return drawn, nil
}

// InitCoverage builds the read-start sampling distribution from vec (a
// CoverageVector over the current window) and, for paired-end mode, a
// fragment-length distribution. It returns the window-average coverage
// multiplier used to size the read budget.
func (c *Container) InitCoverage(vec *coverage.Vector, fragDist *distribution.Discrete) (float64, error) {
	if vec.Start != c.refStart || len(vec.Values) != len(c.ref) {
		return 0, errors.New("sequence: coverage vector does not match current window")
	}

	span := c.readLen
	if fragDist != nil {
		span = int(fragDist.Representative())
	}

	n := len(c.ref) - span
	if n <= 0 {
		return 0, errors.New("sequence: window too small for read/fragment length")
	}

	prefix := make([]float64, len(vec.Values)+1)
	for i, v := range vec.Values {
		prefix[i+1] = prefix[i] + v
	}

	values := make([]float64, n)
	weights := make([]float64, n)
	for s := 0; s < n; s++ {
		values[s] = float64(s)
		weights[s] = prefix[s+span] - prefix[s]
	}
	dist, err := distribution.New(values, weights)
	if err != nil {
		return 0, errors.Wrap(err, "sequence: building read-start distribution")
	}
	c.startDist = dist
	c.avgCoverageMult = vec.Sum() / float64(len(vec.Values))
	return c.avgCoverageMult, nil
}

// SampleRead draws one (single-end) or two (paired-end, when fragLen > 0)
// reads from the container. It returns (nil, false) if no valid start
// position could be found within maxSampleRetries attempts, matching the
// "sampling failure per read is recovered locally" error-handling policy.
func (c *Container) SampleRead(em *errmodel.Model, fragLen int, rng *rand.Rand) ([]Read, bool) {
	if c.startDist == nil {
		log.Panicf("sequence: SampleRead called before InitCoverage")
	}

	for attempt := 0; attempt < maxSampleRetries; attempt++ {
		ploid := rng.Intn(c.ploidy)
		start := int(c.startDist.Sample(rng))
		h := c.haplotypes[ploid]

		if fragLen <= 0 {
			entry, ok := h.cigarMap[start]
			if !ok {
				continue
			}
			bases, quals := em.Apply(h.bases[entry.hapPos:entry.hapPos+entry.hapLen], false, rng)
			pos := c.refStart + start
			return []Read{{RefPos: &pos, Cigar: entry.cigar, Bases: bases, Quals: quals}}, true
		}

		mate1, ok1 := h.cigarMap[start]
		mate2Start := start + fragLen - c.readLen
		mate2, ok2 := h.cigarMap[mate2Start]
		if !ok1 && !ok2 {
			continue
		}

		var reads []Read
		if ok1 {
			bases, quals := em.Apply(h.bases[mate1.hapPos:mate1.hapPos+mate1.hapLen], false, rng)
			pos := c.refStart + start
			reads = append(reads, Read{RefPos: &pos, Cigar: mate1.cigar, Bases: bases, Quals: quals})
		} else {
			reads = append(reads, Read{RefPos: nil})
		}
		if ok2 {
			bases, quals := em.Apply(h.bases[mate2.hapPos:mate2.hapPos+mate2.hapLen], true, rng)
			pos := c.refStart + mate2Start
			reads = append(reads, Read{RefPos: &pos, Cigar: mate2.cigar, Bases: bases, Quals: quals, IsMate2: true})
		} else {
			reads = append(reads, Read{RefPos: nil, IsMate2: true})
		}
		return reads, true
	}
	return nil, false
}
