package errmodel

import (
	"math/rand"

	"github.com/fragmentlab/readsim/distribution"
	"github.com/pkg/errors"
)

// DefaultConfig builds the built-in fallback error model used when the
// caller supplies no external model file: a tight quality distribution
// centered around Q30 with a simple "stay near previous quality" Markov
// chain, and a uniform per-cycle substitution matrix.
func DefaultConfig(readLen int) (Model, error) {
	initial, err := distribution.New(
		[]float64{20, 25, 30, 35, 38},
		[]float64{5, 15, 50, 25, 5},
	)
	if err != nil {
		return Model{}, errors.Wrap(err, "errmodel: building default initial-quality distribution")
	}

	transition := make([]map[int]*distribution.Discrete, readLen-1)
	for cycle := range transition {
		table := make(map[int]*distribution.Discrete)
		for _, prevQ := range []int{20, 25, 30, 35, 38} {
			values := []float64{}
			weights := []float64{}
			for _, q := range []int{20, 25, 30, 35, 38} {
				values = append(values, float64(q))
				delta := q - prevQ
				if delta < 0 {
					delta = -delta
				}
				// Weight decays with distance from the previous quality,
				// giving the chain inertia.
				weights = append(weights, 1.0/float64(1+delta))
			}
			d, derr := distribution.New(values, weights)
			if derr != nil {
				return Model{}, errors.Wrap(derr, "errmodel: building default transition distribution")
			}
			table[prevQ] = d
		}
		transition[cycle] = table
	}

	substitution := make([]SubstitutionMatrix, readLen)
	for i := range substitution {
		substitution[i] = SubstitutionMatrix{
			'A': {0, 1, 1, 1},
			'C': {1, 0, 1, 1},
			'G': {1, 1, 0, 1},
			'T': {1, 1, 1, 0},
		}
	}

	return Model{
		ReadLen:        readLen,
		InitialQuality: initial,
		Transition:     transition,
		Substitution:   substitution,
		OffQ:           33,
	}, nil
}

// DefaultModel constructs the built-in error model and finalizes it with
// NewModel, using rng only to estimate the rescale factor when requested.
func DefaultModel(readLen int, errorRate float64, rescale bool, rng *rand.Rand) (*Model, error) {
	cfg, err := DefaultConfig(readLen)
	if err != nil {
		return nil, err
	}
	cfg.ErrorRate = errorRate
	cfg.RescaleQual = rescale
	return NewModel(cfg, rng)
}
