package mutation

import "github.com/pkg/errors"

var bases = [4]byte{'A', 'C', 'G', 'T'}

func baseIndex(b byte) (int, bool) {
	switch b {
	case 'A':
		return 0, true
	case 'C':
		return 1, true
	case 'G':
		return 2, true
	case 'T':
		return 3, true
	default:
		return 0, false
	}
}

// TrinucleotideModel is a 64-context (4^3) table mapping the trinucleotide
// (prev base, reference base, next base) surrounding a candidate mutation
// site to weights over the four possible alt bases, giving substitutions
// their well-known context-dependent bias (e.g. CpG transitions).
type TrinucleotideModel struct {
	// weights[contextIndex][altBaseIndex]
	weights [64][4]float64
}

func contextIndex(prev, cur, next byte) (int, bool) {
	p, ok := baseIndex(prev)
	if !ok {
		return 0, false
	}
	c, ok := baseIndex(cur)
	if !ok {
		return 0, false
	}
	n, ok := baseIndex(next)
	if !ok {
		return 0, false
	}
	return p*16 + c*4 + n, true
}

// NewUniformTrinucleotideModel builds the default fallback model: every
// context has equal weight across the three non-reference bases and zero
// weight on the reference base itself.
func NewUniformTrinucleotideModel() *TrinucleotideModel {
	m := &TrinucleotideModel{}
	for p := 0; p < 4; p++ {
		for c := 0; c < 4; c++ {
			for n := 0; n < 4; n++ {
				idx := p*16 + c*4 + n
				for alt := 0; alt < 4; alt++ {
					if alt == c {
						continue
					}
					m.weights[idx][alt] = 1.0
				}
			}
		}
	}
	return m
}

// SetContext overrides the alt-base weights for one trinucleotide context,
// addressed by its three literal bases.
func (m *TrinucleotideModel) SetContext(prev, cur, next byte, altWeights [4]float64) error {
	idx, ok := contextIndex(prev, cur, next)
	if !ok {
		return errors.Errorf("mutation: invalid trinucleotide context %c%c%c", prev, cur, next)
	}
	m.weights[idx] = altWeights
	return nil
}

// AltWeights returns the alt-base weight vector for the context
// surrounding position i in seq (1 <= i <= len(seq)-2). At sequence edges
// where a full trinucleotide isn't available, the uniform fallback is used.
func (m *TrinucleotideModel) AltWeights(seq []byte, i int) [4]float64 {
	if i <= 0 || i >= len(seq)-1 {
		return uniformExcluding(seq[i])
	}
	idx, ok := contextIndex(seq[i-1], seq[i], seq[i+1])
	if !ok {
		return uniformExcluding(seq[i])
	}
	return m.weights[idx]
}

func uniformExcluding(ref byte) [4]float64 {
	var w [4]float64
	c, ok := baseIndex(ref)
	for alt := 0; alt < 4; alt++ {
		if ok && alt == c {
			continue
		}
		w[alt] = 1.0
	}
	return w
}
