package distribution

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// NewGaussianFragmentModel builds a fragment-length distribution truncated
// to values strictly greater than minLength (the read length, so a fragment
// can never be shorter than a single read), spanning +/- 6 standard
// deviations around mean, matching the artificial fragment-length
// distribution the original simulator builds when given --pe mean/std
// instead of an empirical model file.
//
// Values are weighted by the Normal density rather than a hand-rolled
// exp(-(x-mean)^2/(2*std^2)) term.
func NewGaussianFragmentModel(mean, std float64, minLength int) (*Discrete, error) {
	if std == 0 {
		return New([]float64{mean}, []float64{1})
	}
	norm := distuv.Normal{Mu: mean, Sigma: std}

	lo := int(mean - 6*std)
	hi := int(mean + 6*std)
	var values, weights []float64
	for v := lo; v <= hi; v++ {
		if v <= minLength {
			continue
		}
		values = append(values, float64(v))
		weights = append(weights, norm.Prob(float64(v)))
	}
	return New(values, weights)
}
