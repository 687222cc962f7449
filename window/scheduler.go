package window

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/biogo/hts/sam"
	"github.com/fragmentlab/readsim/coverage"
	"github.com/fragmentlab/readsim/errmodel"
	"github.com/fragmentlab/readsim/genomic"
	"github.com/fragmentlab/readsim/nregion"
	"github.com/fragmentlab/readsim/sequence"
	"github.com/fragmentlab/readsim/sink"
	"github.com/fragmentlab/readsim/variant"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Scheduler drives the windowed sampling engine across every contig handed
// to RunContig, owning the RNG, the read-name counter, the deferred
// unmapped-read list, and (transiently) the current contig's variant
// ledger and SequenceContainer, per the concurrency model's "exclusively
// owned by the scheduler" resource list.
type Scheduler struct {
	params Params
	sink   sink.OutputSink
	rng    *rand.Rand
	target *genomic.BEDUnion // only consulted when DiscardOffTarget is set

	readCounter uint64
	unmapped    []sink.BamRecord
}

// New builds a Scheduler. target is the BEDUnion consulted for the
// discard-offtarget boundary rejection; pass nil when params.DiscardOffTarget
// is false. A Scheduler is reused across every contig of a run so its RNG,
// read-name counter, and deferred unmapped-read list stay run-wide; call
// SetTarget between contigs when each carries its own target mask.
func New(params Params, s sink.OutputSink, rng *rand.Rand, target *genomic.BEDUnion) *Scheduler {
	return &Scheduler{params: params, sink: s, rng: rng, target: target}
}

// SetTarget swaps the target mask consulted by the discard-offtarget
// boundary rejection, used between contigs when targeting is per-contig.
func (s *Scheduler) SetTarget(target *genomic.BEDUnion) {
	s.target = target
}

// FlushUnmapped writes every deferred unmapped BAM record accumulated
// across the whole run, in the order they were produced. Call once, after
// every contig has been processed by RunContig, per §5's "unmapped reads
// are deferred and appended after the last mapped read of the run".
func (s *Scheduler) FlushUnmapped() error {
	for _, rec := range s.unmapped {
		if err := s.sink.WriteBam(rec); err != nil {
			return errors.Wrap(err, "window: writing deferred unmapped record")
		}
	}
	s.unmapped = nil
	return nil
}

// RunContig drives the state machine over one contig's non-N spans,
// inserting vcfVars (already validated and sorted by position) as it goes,
// and returns the contig's variant ledger for VCF emission. profile carries
// this contig's GC-bias table and target/discard masks (§4.5).
func (s *Scheduler) RunContig(contig string, contigIdx int, ref []byte, vcfVars []variant.Variant, profile *coverage.Profile) (*variant.Ledger, error) {
	ledger := variant.NewLedger()
	nmap := nregion.Find(ref, s.params.nRunMergeThreshold())

	var cont *sequence.Container
	for _, span := range nmap.NonN {
		if err := s.processSpan(contig, contigIdx, ref, span, vcfVars, profile, ledger, &cont); err != nil {
			return nil, errors.Wrapf(err, "window: contig %s span [%d,%d)", contig, span.Start, span.End)
		}
	}
	log.Debugf("window: contig %s done, %d variants", contig, ledger.Len())
	return ledger, nil
}

// processSpan implements §4.7 steps 1-3 for one non-N span: sizing the
// window pitch, walking windows left to right, and flushing the sink after
// each window closes.
func (s *Scheduler) processSpan(contig string, contigIdx int, ref []byte, span nregion.Span, vcfVars []variant.Variant, profile *coverage.Profile, ledger *variant.Ledger, cont **sequence.Container) error {
	spanLen := span.Len()
	if spanLen < s.params.overlapMinWindowSize() {
		return nil
	}

	fragOrRead := s.params.ReadLen
	if s.params.PairedEnd {
		fragOrRead = s.params.fragmentSize()
	}
	targetSize := 100 * fragOrRead
	numWindows := 1
	if targetSize > 0 && spanLen/targetSize > 1 {
		numWindows = spanLen / targetSize
	}
	pitch := float64(spanLen) / float64(numWindows)
	overlap := s.params.overlap()

	var carry []variant.Variant
	start := span.Start
	for {
		end := start + int(math.Round(pitch))
		if end > span.End {
			end = span.End
		}
		end = s.extendForVariants(vcfVars, start, end, overlap, span.End)

		nextStart := end - overlap
		nextEnd := nextStart + int(pitch)
		last := false
		if nextEnd >= span.End || float64(nextEnd-nextStart) < pitch {
			last = true
			nextEnd = span.End
			end = span.End
		}

		bamMax := nextStart
		if last {
			bamMax = end + 1
		}

		newCarry, err := s.processWindow(contig, contigIdx, ref, start, end, overlap, carry, vcfVars, profile, ledger, cont)
		if err != nil {
			return err
		}
		carry = newCarry

		if err := s.sink.Flush(bamMax); err != nil {
			return errors.Wrap(err, "window: flush")
		}

		if last {
			return nil
		}
		start = nextStart
	}
}

// extendForVariants grows end to a fixed point so that no VCF variant
// strictly inside (start,end) sits within its own buffer of the window
// edge, per §4.7 step 2.b. It never grows past spanEnd.
func (s *Scheduler) extendForVariants(vcfVars []variant.Variant, start, end, overlap, spanEnd int) int {
	for {
		inWindow := variantsStrictlyBetween(vcfVars, start, end)
		grew := false
		for _, v := range inWindow {
			need := v.Pos + v.Buffer() + overlap + 2
			if need > spanEnd {
				need = spanEnd
			}
			if need > end {
				end = need
				grew = true
			}
		}
		if !grew {
			return end
		}
	}
}

// processWindow implements §4.7 step 2.d-f: coverage scoring and window
// skip tests, container update, variant insertion, random mutation,
// coverage-distribution initialization, and the read-sampling loop. It
// returns the variants to carry into the next window.
func (s *Scheduler) processWindow(contig string, contigIdx int, ref []byte, start, end, overlap int, carry []variant.Variant, vcfVars []variant.Variant, profile *coverage.Profile, ledger *variant.Ledger, cont **sequence.Container) ([]variant.Variant, error) {
	if end-start < s.params.overlapMinWindowSize() {
		return carry, nil
	}

	vec, err := profile.Compute(ref, start, end)
	if err != nil {
		if err == coverage.ErrDiscarded {
			return carry, nil
		}
		return carry, err
	}
	if vec.Sum() < s.params.lowCovThreshold() {
		return carry, nil
	}
	if s.params.DiscardOffTarget && vec.TargetHits <= s.params.offTargetThreshold() {
		return carry, nil
	}

	original := append([]byte(nil), ref[start:end]...)
	windowRef := original
	if s.params.NHandling == NRandom {
		windowRef = replaceN(original, s.rng)
	}

	if *cont == nil {
		*cont = sequence.NewContainer(start, windowRef, s.params.Ploidy, overlap, s.params.ReadLen, s.params.MutModel)
	} else {
		(*cont).Update(start, windowRef)
	}
	c := *cont

	inWindow := variantsStrictlyBetween(vcfVars, start, end)
	toInsert := make([]variant.Variant, 0, len(carry)+len(inWindow))
	toInsert = append(toInsert, carry...)
	toInsert = append(toInsert, inWindow...)
	if err := c.InsertVariants(toInsert); err != nil {
		return carry, err
	}
	if _, err := c.RandomMutations(s.rng); err != nil {
		return carry, err
	}
	for _, v := range c.AppliedVariants() {
		ledger.Add(v)
	}

	mult, err := c.InitCoverage(vec, s.params.FragDist)
	if err != nil {
		return carry, err
	}
	if s.params.ForceCoverage {
		mult = 1.0
	}

	s.sampleWindow(contig, contigIdx, c, original, start, end, mult)

	var newCarry []variant.Variant
	for _, v := range c.AppliedVariants() {
		if v.Pos >= end-overlap-1 {
			newCarry = append(newCarry, v)
		}
	}
	return newCarry, nil
}

// windowBuffer accumulates one window's mapped-read BAM records so they can
// be sorted by position before being handed to the sink, satisfying the
// monotonic-position invariant despite reads being sampled at random
// positions within the window.
type windowBuffer struct {
	fastq  []sink.FastqRecord
	mapped []sink.BamRecord
}

// sampleWindow implements the read budget formula and the per-read sampling
// loop of §4.6 bullet 5, buffering output so it can be flushed in
// position-sorted order.
func (s *Scheduler) sampleWindow(contig string, contigIdx int, c *sequence.Container, original []byte, start, end int, mult float64) {
	windowSpan := end - start
	k := s.params.kFactor()
	budget := int(math.Ceil(float64(windowSpan)*s.params.Coverage*mult/float64(k*s.params.ReadLen))) + 1

	buf := &windowBuffer{}
	for i := 0; i < budget; i++ {
		fragLen := 0
		if s.params.PairedEnd {
			fragLen = int(s.params.FragDist.Sample(s.rng))
		}
		reads, ok := c.SampleRead(s.params.ErrModel, fragLen, s.rng)
		if !ok {
			continue
		}
		s.collect(buf, contig, contigIdx, original, start, reads)
	}

	sort.SliceStable(buf.mapped, func(i, j int) bool {
		return *buf.mapped[i].Pos < *buf.mapped[j].Pos
	})
	for _, rec := range buf.fastq {
		if err := s.sink.WriteFastq(rec); err != nil {
			log.Panicf("window: sink rejected fastq record: %v", err)
		}
	}
	for _, rec := range buf.mapped {
		if err := s.sink.WriteBam(rec); err != nil {
			log.Panicf("window: sink rejected bam record: %v", err)
		}
	}
}

// collect turns one sampled (single or paired) read into FASTQ/BAM records,
// applying the scheduler-level post-filters (N-touch rejection,
// low-quality-to-N masking, off-target boundary rejection) that the design
// places outside the SequenceContainer, then routes mapped records into buf
// and unmapped mates into the run-wide deferred list.
func (s *Scheduler) collect(buf *windowBuffer, contig string, contigIdx int, original []byte, windowStart int, reads []sequence.Read) {
	if s.params.NHandling == NIgnore && s.touchesN(original, windowStart, reads) {
		return
	}
	if s.params.DiscardOffTarget && s.outsideTarget(reads) {
		return
	}
	for _, r := range reads {
		if s.params.NQualThreshold > 0 && len(r.Quals) > 0 {
			errmodel.MaskLowQuality(r.Bases, r.Quals, s.params.ErrModel.OffQ, s.params.NQualThreshold)
		}
	}

	name := fmt.Sprintf("%s_%d", contig, s.readCounter)
	s.readCounter++
	isForward := s.rng.Intn(2) == 0

	if len(reads) == 1 {
		r := reads[0]
		// BAM SEQ stays forward-strand per the SAM convention; the FASTQ
		// record, like the original simulator, reports the strand the read
		// was actually sequenced from, so the reverse half of the coin flip
		// needs its bases reverse-complemented and quals reversed to match.
		fastqBases, fastqQuals := r.Bases, r.Quals
		if !isForward {
			fastqBases = errmodel.ReverseComplement(r.Bases)
			fastqQuals = reverseBytes(r.Quals)
		}
		buf.fastq = append(buf.fastq, sink.FastqRecord{Name: name, Bases: fastqBases, Quals: fastqQuals})
		s.queueBam(buf, contigIdx, name, r, nil, isForward, true)
		return
	}

	mate1, mate2 := reads[0], reads[1]
	orientation := "FR"
	if !isForward {
		orientation = "RF"
	}
	buf.fastq = append(buf.fastq, sink.FastqRecord{
		Name: name, Bases: mate1.Bases, Quals: mate1.Quals,
		MateBases: mate2.Bases, MateQuals: mate2.Quals, Orientation: orientation,
	})
	s.queueBam(buf, contigIdx, name, mate1, mate2.RefPos, isForward, mate2.RefPos != nil)
	s.queueBam(buf, contigIdx, name, mate2, mate1.RefPos, isForward, mate1.RefPos != nil)
}

// SAM flag bits used by queueBam, named per the BAM spec rather than
// imported since this repository only ever produces them, never parses
// them.
const (
	flagPaired       = 0x1
	flagUnmapped     = 0x4
	flagMateUnmapped = 0x8
	flagReverse      = 0x10
	flagMateReverse  = 0x20
	flagFirst        = 0x40
	flagSecond       = 0x80
)

// queueBam builds the BamRecord for one mate. Mapped mates (RefPos != nil)
// go into buf for position-sorted emission; unmapped mates are appended to
// the run-wide deferred list instead, per the unmapped-record handling in
// §4.6/§4.7. coinForward is the strand coin flipped once per pair: true
// means mate 1 is forward and mate 2 its reverse complement (FR), false
// means the reverse (RF) — the two mates are always opposite strands.
func (s *Scheduler) queueBam(buf *windowBuffer, contigIdx int, name string, r sequence.Read, matePos *int, coinForward, mateMapped bool) {
	var flag uint16
	paired := matePos != nil || r.IsMate2
	if paired {
		flag |= flagPaired
	}
	if r.IsMate2 {
		flag |= flagSecond
	} else {
		flag |= flagFirst
	}
	reverse := r.IsMate2 == coinForward
	if reverse {
		flag |= flagReverse
	}
	if paired {
		if !mateMapped {
			flag |= flagMateUnmapped
		} else if !reverse {
			flag |= flagMateReverse
		}
	}

	rec := sink.BamRecord{
		ContigIdx: contigIdx,
		Name:      name,
		Pos:       r.RefPos,
		Bases:     r.Bases,
		Quals:     r.Quals,
		MatePos:   matePos,
	}
	if r.Cigar != nil {
		rec.Cigar = r.Cigar.String()
	}
	if r.RefPos == nil {
		flag |= flagUnmapped
		rec.Flag = flag
		s.unmapped = append(s.unmapped, rec)
		return
	}
	rec.Flag = flag
	buf.mapped = append(buf.mapped, rec)
}

// touchesN reports whether any mapped mate's reference span overlaps an N
// base in the window's unmodified reference slice.
func (s *Scheduler) touchesN(original []byte, windowStart int, reads []sequence.Read) bool {
	for _, r := range reads {
		if r.RefPos == nil {
			continue
		}
		refSpan := cigarRefSpan(r.Cigar)
		rel := *r.RefPos - windowStart
		end := rel + refSpan
		if end > len(original) {
			end = len(original)
		}
		for i := rel; i < end; i++ {
			if i >= 0 && i < len(original) && original[i] == 'N' {
				return true
			}
		}
	}
	return false
}

// outsideTarget reports whether every mapped mate's span falls entirely
// outside the target region; a read must overlap the target by at least
// one base to survive, per the discard-offtarget boundary rule.
func (s *Scheduler) outsideTarget(reads []sequence.Read) bool {
	if s.target == nil || s.target.Empty() {
		return false
	}
	for _, r := range reads {
		if r.RefPos == nil {
			continue
		}
		refSpan := cigarRefSpan(r.Cigar)
		lo := genomic.PosType(*r.RefPos)
		hi := genomic.PosType(*r.RefPos + refSpan)
		if s.target.CountWithin(lo, hi) > 0 {
			return false
		}
	}
	return true
}

// cigarRefSpan returns the number of reference bases (M+D ops) a CIGAR
// consumes.
func cigarRefSpan(c sam.Cigar) int {
	span := 0
	for _, op := range c {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarDeletion:
			span += op.Len()
		}
	}
	return span
}

// variantsStrictlyBetween returns the sorted vars with start < Pos < end.
func variantsStrictlyBetween(vars []variant.Variant, start, end int) []variant.Variant {
	lo := sort.Search(len(vars), func(i int) bool { return vars[i].Pos > start })
	hi := sort.Search(len(vars), func(i int) bool { return vars[i].Pos >= end })
	if lo >= hi {
		return nil
	}
	return append([]variant.Variant(nil), vars[lo:hi]...)
}

// reverseBytes returns a reversed copy of b.
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// replaceN returns a copy of seq with every 'N' byte replaced by a
// uniformly random base, used by NRandom N-handling.
func replaceN(seq []byte, rng *rand.Rand) []byte {
	out := append([]byte(nil), seq...)
	bases := [4]byte{'A', 'C', 'G', 'T'}
	for i, b := range out {
		if b == 'N' {
			out[i] = bases[rng.Intn(4)]
		}
	}
	return out
}
