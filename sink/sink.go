// Package sink defines the OutputSink contract (C8): the boundary across
// which the windowed sampling engine emits reads and ground-truth variants.
// Production FASTQ/BAM/VCF writers are out of scope for this repository;
// Recorder is the in-memory, test-oriented implementation used throughout,
// and it doubles as a conformance check for any other OutputSink since it
// enforces the monotonic-BAM-position invariant itself.
package sink

import "github.com/pkg/errors"

// FastqRecord is one (optionally paired) FASTQ record.
type FastqRecord struct {
	Name         string
	Bases, Quals []byte
	MateBases    []byte
	MateQuals    []byte
	Orientation  string // "FR", "RF", "" for single-end
}

// BamRecord is one alignment record. Pos is 0-based; a nil Pos means the
// read is unmapped but still pairs with MatePos when set.
type BamRecord struct {
	ContigIdx int
	Name      string
	Pos       *int
	Cigar     string
	Bases     []byte
	Quals     []byte
	Flag      uint16
	MatePos   *int
	Mapq      *int
}

// VcfRecord is one ground-truth variant record, 1-based per VCF convention.
type VcfRecord struct {
	Contig   string
	Pos1     int
	ID       string
	Ref      string
	Alts     []string
	Qual     float64
	Filter   string
	Genotype string
}

// OutputSink is the abstract contract a host's writers implement. The
// engine calls WriteBam with calls within a contig arriving in
// non-decreasing Pos up to the most recent Flush(bamMax) call; Flush
// advances that watermark, and Close is idempotent.
type OutputSink interface {
	WriteFastq(rec FastqRecord) error
	WriteBam(rec BamRecord) error
	WriteVcf(rec VcfRecord) error
	Flush(bamMaxPos int) error
	Close() error
}

// Recorder is an in-memory OutputSink that buffers everything written to it
// and enforces the monotonic-BAM-position invariant as records arrive,
// turning a contract violation into an immediate error rather than a silent
// corrupt output file.
type Recorder struct {
	Fastq []FastqRecord
	Bam   []BamRecord
	Vcf   []VcfRecord

	closed        bool
	bamWatermark  int
	haveWatermark bool
	haveContig    bool
	currentContig int
	lastFlushed   int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) WriteFastq(rec FastqRecord) error {
	if r.closed {
		return errors.New("sink: write after close")
	}
	r.Fastq = append(r.Fastq, rec)
	return nil
}

// WriteBam enforces non-decreasing Pos within a contig and non-decreasing
// ContigIdx across contigs, matching BAM's (refID, pos) sort order: moving
// to a new contig resets the position watermark since coordinates start
// over at 0 there.
func (r *Recorder) WriteBam(rec BamRecord) error {
	if r.closed {
		return errors.New("sink: write after close")
	}
	if r.haveContig && rec.ContigIdx < r.currentContig {
		return errors.Errorf("sink: bam record %q on contig %d arrived after contig %d", rec.Name, rec.ContigIdx, r.currentContig)
	}
	if !r.haveContig || rec.ContigIdx != r.currentContig {
		r.currentContig = rec.ContigIdx
		r.haveContig = true
		r.haveWatermark = false
		r.lastFlushed = 0
	}
	if rec.Pos != nil {
		if *rec.Pos < r.lastFlushed {
			return errors.Errorf("sink: bam record %q at %d is below flushed position %d", rec.Name, *rec.Pos, r.lastFlushed)
		}
		if r.haveWatermark && *rec.Pos < r.bamWatermark {
			return errors.Errorf("sink: bam record %q at %d violates monotonic-position invariant (watermark %d)", rec.Name, *rec.Pos, r.bamWatermark)
		}
		r.bamWatermark = *rec.Pos
		r.haveWatermark = true
	}
	r.Bam = append(r.Bam, rec)
	return nil
}

func (r *Recorder) WriteVcf(rec VcfRecord) error {
	if r.closed {
		return errors.New("sink: write after close")
	}
	r.Vcf = append(r.Vcf, rec)
	return nil
}

// Flush records the new bam_max watermark. A later WriteBam with a Pos
// below a value already flushed indicates the caller violated the ordering
// guarantee; Recorder tracks the high-water mark across flushes so that
// check still holds even if the engine interleaves flushes with writes.
func (r *Recorder) Flush(bamMaxPos int) error {
	if r.closed {
		return errors.New("sink: flush after close")
	}
	if bamMaxPos < r.lastFlushed {
		return errors.Errorf("sink: flush(%d) is behind previous flush(%d)", bamMaxPos, r.lastFlushed)
	}
	r.lastFlushed = bamMaxPos
	return nil
}

// Close is idempotent, per the sink contract.
func (r *Recorder) Close() error {
	r.closed = true
	return nil
}
