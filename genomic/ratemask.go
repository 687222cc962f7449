package genomic

// RateMask carries a float payload per interval, used for per-region
// mutation-rate multipliers parsed from a BED file's optional fourth
// column. Regions absent from the mask use the 1.0x default multiplier.
type RateMask struct {
	starts []PosType
	ends   []PosType
	values []float64
}

// RateInterval pairs an Interval with its multiplier.
type RateInterval struct {
	Interval
	Value float64
}

// NewRateMask builds a RateMask from possibly-overlapping rate intervals.
// Overlaps are resolved by keeping whichever interval was supplied last,
// consistent with a BED file's later lines taking precedence.
func NewRateMask(intervals []RateInterval) *RateMask {
	m := &RateMask{}
	for _, iv := range intervals {
		m.starts = append(m.starts, iv.Start)
		m.ends = append(m.ends, iv.End)
		m.values = append(m.values, iv.Value)
	}
	return m
}

// Multiplier returns the rate multiplier at pos, defaulting to 1.0 when no
// region covers it. If multiple (overlapping) regions cover pos, the last
// one supplied to NewRateMask wins.
func (m *RateMask) Multiplier(pos PosType) float64 {
	if m == nil {
		return 1.0
	}
	result := 1.0
	for i := range m.starts {
		if pos >= m.starts[i] && pos < m.ends[i] {
			result = m.values[i]
		}
	}
	return result
}
