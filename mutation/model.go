// Package mutation implements the per-site substitution/indel kernels that
// the windowed sampling engine uses to inject random variants: an overall
// per-bp rate, an indel-vs-substitution split, a trinucleotide-biased alt
// choice for substitutions, and an indel-length distribution, all
// modulated by a sparse per-region rate multiplier (§4.2 of the design).
package mutation

import (
	"math/rand"

	"github.com/fragmentlab/readsim/distribution"
	"github.com/fragmentlab/readsim/genomic"
	"github.com/fragmentlab/readsim/variant"
	"github.com/pkg/errors"
)

// Model configures the random-mutation kernel.
type Model struct {
	// Rate is the overall per-bp mutation probability before any
	// region-specific multiplier is applied.
	Rate float64
	// IndelFraction is the fraction of mutations that are indels rather
	// than substitutions.
	IndelFraction float64
	// InsertionFraction is, among indels, the fraction that are
	// insertions rather than deletions.
	InsertionFraction float64
	// IndelLengths is the length distribution for indel events.
	IndelLengths *distribution.Discrete
	// Trinuc biases substitution alt-base choice by local context.
	Trinuc *TrinucleotideModel
	// RegionRates is a sparse per-region multiplier on Rate; positions
	// not covered default to 1.0x.
	RegionRates *genomic.RateMask
}

// DefaultModel returns the uniform fallback model used when the caller
// supplies no external mutation-model file: a modest overall rate, a
// 1-in-10 indel fraction split evenly between insertions and deletions,
// geometric-ish short indel lengths, and an unbiased trinucleotide table.
func DefaultModel() (*Model, error) {
	lengths, err := distribution.New([]float64{1, 2, 3, 4, 5}, []float64{40, 20, 15, 10, 5})
	if err != nil {
		return nil, errors.Wrap(err, "mutation: building default indel length distribution")
	}
	return &Model{
		Rate:              0.001,
		IndelFraction:     0.1,
		InsertionFraction: 0.5,
		IndelLengths:      lengths,
		Trinuc:            NewUniformTrinucleotideModel(),
	}, nil
}

// maxIndelRetries bounds how many times Generate will re-roll an indel that
// would land within the edge buffer before giving up on that position.
const maxIndelRetries = 10

// Generate draws random variants across ref, a window slice whose first
// byte corresponds to reference coordinate refStart. Positions within
// overlap bases of either edge are excluded from sampling so that a random
// variant near a boundary never straddles the next/previous window, per
// the SequenceContainer contract (random mutations are drawn only from
// [start+overlap, end-overlap)). existing lists already-applied variant
// positions (both user-supplied and previously drawn) so collisions can be
// rejected in favor of the existing variant, per the tie-break rule.
func (m *Model) Generate(ref []byte, refStart, overlap, ploidy int, existing map[int]bool, rng *rand.Rand) ([]variant.Variant, error) {
	lo := overlap
	hi := len(ref) - overlap
	if hi <= lo {
		return nil, nil
	}

	var out []variant.Variant
	for i := lo; i < hi; i++ {
		pos := refStart + i
		mult := 1.0
		if m.RegionRates != nil {
			mult = m.RegionRates.Multiplier(genomic.PosType(pos))
		}
		if rng.Float64() >= m.Rate*mult {
			continue
		}
		if existing[pos] {
			// A user variant already occupies this position; the random
			// variant is discarded per the tie-break rule.
			continue
		}
		if ref[i] == 'N' {
			continue
		}

		gt := randomGenotype(ploidy, rng)
		if rng.Float64() >= m.IndelFraction {
			v, ok := m.substitution(ref, i, pos, gt, rng)
			if ok {
				out = append(out, v)
			}
			continue
		}

		v, ok := m.indel(ref, i, pos, lo, hi, gt, rng)
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// substitution draws an alt base for the SNP at ref[i] (absolute position
// pos), biased by the surrounding trinucleotide context.
func (m *Model) substitution(ref []byte, i, pos int, gt []bool, rng *rand.Rand) (variant.Variant, bool) {
	weights := m.Trinuc.AltWeights(ref, i)
	var values, ws []float64
	for alt := 0; alt < 4; alt++ {
		if weights[alt] <= 0 {
			continue
		}
		values = append(values, float64(alt))
		ws = append(ws, weights[alt])
	}
	if len(values) == 0 {
		return variant.Variant{}, false
	}
	d, err := distribution.New(values, ws)
	if err != nil {
		return variant.Variant{}, false
	}
	alt := bases[int(d.Sample(rng))]
	return variant.Variant{
		Kind:     variant.Snp,
		Pos:      pos,
		Ref:      string(ref[i]),
		Alt:      string(alt),
		Genotype: gt,
	}, true
}

// indel draws an insertion or deletion anchored at ref[i], rejecting draws
// whose buffer would straddle the window's non-samplable edge region
// [0, lo) or [hi, len(ref)).
func (m *Model) indel(ref []byte, i, pos, lo, hi int, gt []bool, rng *rand.Rand) (variant.Variant, bool) {
	isInsertion := rng.Float64() < m.InsertionFraction

	for attempt := 0; attempt < maxIndelRetries; attempt++ {
		length := int(m.IndelLengths.Sample(rng))
		if length < 1 {
			length = 1
		}
		if isInsertion {
			seq := randomSeq(length, rng)
			return variant.Variant{
				Kind:     variant.Ins,
				Pos:      pos,
				Ref:      "",
				Alt:      seq,
				Genotype: gt,
			}, true
		}

		if i+length > hi || i+length >= len(ref) {
			continue
		}
		return variant.Variant{
			Kind:     variant.Del,
			Pos:      pos,
			Ref:      string(ref[i : i+length]),
			Alt:      "",
			Genotype: gt,
		}, true
	}
	return variant.Variant{}, false
}

func randomSeq(length int, rng *rand.Rand) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = bases[rng.Intn(4)]
	}
	return string(buf)
}

func randomGenotype(ploidy int, rng *rand.Rand) []bool {
	gt := make([]bool, ploidy)
	gt[rng.Intn(ploidy)] = true
	return gt
}
