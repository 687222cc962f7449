// Package errmodel implements the per-cycle quality-score Markov chain and
// mismatch kernel (the "ReadContainer" of the design, C3): given a run of
// haplotype bases, it produces realistic per-cycle quality scores and
// injects base substitutions with a probability derived from each drawn
// quality score.
package errmodel

import (
	"math"
	"math/rand"

	"github.com/fragmentlab/readsim/distribution"
	"github.com/pkg/errors"
)

// SubstitutionMatrix maps a true base to a weight vector over the four
// possible observed bases for one sequencing cycle.
type SubstitutionMatrix map[byte][4]float64

// Model is the per-cycle error model. Substitution is indexed by 0-based
// read cycle; Transition by read cycle minus one.
type Model struct {
	ReadLen int
	// InitialQuality is the quality distribution for cycle 0. The
	// reference implementation leaves the cycle-0 Markov prior implicit;
	// here it is an explicit model parameter per the Open Question
	// decision.
	InitialQuality *distribution.Discrete
	// Transition[cycle-1][prevQuality] gives the quality distribution for
	// cycle given the previous cycle's drawn quality, for cycle in
	// [1, ReadLen); the slice therefore holds ReadLen-1 entries.
	Transition []map[int]*distribution.Discrete
	// Substitution[cycle] gives the mismatch-base kernel for this cycle.
	Substitution []SubstitutionMatrix
	// ErrorRate is the target average per-base error rate. It is used only
	// when RescaleQual is set: each drawn quality's implied error
	// probability is then multiplied by a fixed factor so the realized
	// mismatch rate matches this value. The emitted quality scores are the
	// unscaled draws; they are not rewritten to reflect the scaling.
	ErrorRate float64
	// RescaleQual enables the error-probability scaling described above.
	RescaleQual bool
	// OffQ is the Phred offset used to render quality scores as
	// characters (default 33, i.e. Phred+33/Sanger).
	OffQ byte
	// scaleFactor is precomputed by NewModel when RescaleQual is set: the
	// ratio of the requested error rate to this model's unscaled average
	// error rate, applied multiplicatively to each drawn quality's
	// implied error probability.
	scaleFactor float64
}

// phredToProb converts a Phred-scaled quality score to a mismatch
// probability: 10^(-q/10).
func phredToProb(q int) float64 {
	return math.Pow(10, -float64(q)/10)
}

// NewModel validates cfg and, if RescaleQual is set, precomputes the
// rescaling factor from cfg.ErrorRate and the model's own unscaled average
// error rate (estimated by sampling the Markov chain).
func NewModel(cfg Model, rng *rand.Rand) (*Model, error) {
	if cfg.ReadLen < 1 {
		return nil, errors.New("errmodel: ReadLen must be >= 1")
	}
	if cfg.InitialQuality == nil {
		return nil, errors.New("errmodel: InitialQuality is required")
	}
	if cfg.OffQ == 0 {
		cfg.OffQ = 33
	}
	m := cfg
	if m.RescaleQual {
		if m.ErrorRate <= 0 {
			return nil, errors.New("errmodel: RescaleQual requires a positive ErrorRate")
		}
		avg := m.estimateAverageErrorRate(rng, 2000)
		if avg <= 0 {
			return nil, errors.New("errmodel: cannot rescale, estimated average error rate is zero")
		}
		m.scaleFactor = m.ErrorRate / avg
	} else {
		m.scaleFactor = 1.0
	}
	return &m, nil
}

// estimateAverageErrorRate draws n synthetic reads through the unscaled
// quality chain and averages the implied per-base mismatch probability.
func (m *Model) estimateAverageErrorRate(rng *rand.Rand, n int) float64 {
	total := 0.0
	count := 0
	for i := 0; i < n; i++ {
		prevQ := -1
		for cycle := 0; cycle < m.ReadLen; cycle++ {
			q := m.drawQuality(cycle, prevQ, rng)
			total += phredToProb(q)
			count++
			prevQ = q
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func (m *Model) drawQuality(cycle, prevQuality int, rng *rand.Rand) int {
	if cycle == 0 || prevQuality < 0 {
		return int(m.InitialQuality.Sample(rng))
	}
	idx := cycle - 1
	if idx >= len(m.Transition) {
		return int(m.InitialQuality.Sample(rng))
	}
	d, ok := m.Transition[idx][prevQuality]
	if !ok || d == nil {
		return int(m.InitialQuality.Sample(rng))
	}
	return int(d.Sample(rng))
}

// Apply walks readBases left to right (reverse-complementing first if
// isReverse), drawing a quality per cycle from the Markov chain and
// emitting a mismatch with probability derived from that quality. It
// returns the (possibly mismatched) bases and their Phred+OffQ quality
// string. The caller is responsible for any downstream low-quality-to-N
// masking via MaskLowQuality.
func (m *Model) Apply(readBases []byte, isReverse bool, rng *rand.Rand) (bases, quals []byte) {
	src := readBases
	if isReverse {
		src = ReverseComplement(readBases)
	}

	n := len(src)
	bases = make([]byte, n)
	quals = make([]byte, n)
	prevQ := -1
	for cycle := 0; cycle < n; cycle++ {
		q := m.drawQuality(cycle, prevQ, rng)
		prevQ = q

		errProb := phredToProb(q) * m.scaleFactor
		base := src[cycle]
		if rng.Float64() < errProb {
			base = m.mismatchBase(cycle, base, rng)
		}
		bases[cycle] = base
		quals[cycle] = byte(q) + m.OffQ
	}
	return bases, quals
}

func (m *Model) mismatchBase(cycle int, ref byte, rng *rand.Rand) byte {
	if cycle >= len(m.Substitution) {
		return uniformMismatch(ref, rng)
	}
	weights, ok := m.Substitution[cycle][ref]
	if !ok {
		return uniformMismatch(ref, rng)
	}
	var values, ws []float64
	order := [4]byte{'A', 'C', 'G', 'T'}
	for i, b := range order {
		if b == ref || weights[i] <= 0 {
			continue
		}
		values = append(values, float64(b))
		ws = append(ws, weights[i])
	}
	if len(values) == 0 {
		return uniformMismatch(ref, rng)
	}
	d, err := distribution.New(values, ws)
	if err != nil {
		return uniformMismatch(ref, rng)
	}
	return byte(d.Sample(rng))
}

func uniformMismatch(ref byte, rng *rand.Rand) byte {
	order := [3]byte{}
	j := 0
	for _, b := range [4]byte{'A', 'C', 'G', 'T'} {
		if b != ref {
			order[j] = b
			j++
		}
	}
	return order[rng.Intn(3)]
}

// ReverseComplement returns the reverse complement of seq, folding any
// non-ACGT byte (e.g. N) to itself.
func ReverseComplement(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complement(b)
	}
	return out
}

func complement(b byte) byte {
	switch b {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'C':
		return 'G'
	case 'G':
		return 'C'
	default:
		return b
	}
}

// MaskLowQuality replaces bases whose quality is at or below threshold
// (measured after removing OffQ) with 'N', matching the N-quality
// threshold option (§6 configuration surface). It is applied by the
// caller after Apply, not internally, so a caller uninterested in the
// masking can skip it entirely.
func MaskLowQuality(bases, quals []byte, offQ byte, threshold int) {
	for i, q := range quals {
		if int(q)-int(offQ) <= threshold {
			bases[i] = 'N'
		}
	}
}
