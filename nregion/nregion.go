// Package nregion partitions a contig into runs of N and non-N bases,
// folding short N runs into the surrounding non-N span so tiny ambiguous
// stretches don't fragment the windowed scan into useless slivers.
package nregion

// Span is a half-open [Start, End) interval over a contig.
type Span struct {
	Start, End int
}

// Len returns the span's length.
func (s Span) Len() int { return s.End - s.Start }

// Map holds the two disjoint, ordered span lists covering [0, len(seq)):
// N runs at least Find's minRunLength long, and everything else.
type Map struct {
	N    []Span
	NonN []Span
}

// Find scans seq (expected to already have ambiguous non-N IUPAC codes
// folded to 'N' during reference ingest) and classifies it into N and
// non-N spans. minRunLength is the shortest N run that is reported as its
// own N span; anything shorter is merged into its neighboring non-N spans,
// matching the rule that N-handling policy only needs to care about N
// blocks at least max(read_len, fragment_size) long.
func Find(seq []byte, minRunLength int) Map {
	if len(seq) == 0 {
		return Map{}
	}
	if minRunLength < 1 {
		minRunLength = 1
	}

	var rawN []Span
	i := 0
	for i < len(seq) {
		if seq[i] != 'N' {
			i++
			continue
		}
		start := i
		for i < len(seq) && seq[i] == 'N' {
			i++
		}
		rawN = append(rawN, Span{start, i})
	}

	var m Map
	prevEnd := 0
	for _, n := range rawN {
		if n.Len() < minRunLength {
			// Too short to report separately; it gets absorbed into the
			// surrounding non-N span below by simply not being cut out.
			continue
		}
		if n.Start > prevEnd {
			m.NonN = append(m.NonN, Span{prevEnd, n.Start})
		}
		m.N = append(m.N, n)
		prevEnd = n.End
	}
	if prevEnd < len(seq) {
		m.NonN = append(m.NonN, Span{prevEnd, len(seq)})
	}
	return m
}
