// Package refindex defines the reference-sequence access contract the
// windowed sampling engine runs against, adapted from the teacher's
// fasta.Fasta interface in encoding/fasta/fasta.go so callers can swap a
// file-backed FASTA index in without touching engine or window code.
package refindex

import "github.com/pkg/errors"

// Reference is read-only, random-access contig sequence lookup.
type Reference interface {
	// Get returns the bases of contig in [start, end), 0-based half-open.
	Get(contig string, start, end int) ([]byte, error)
	// Len returns the length of contig.
	Len(contig string) (int, error)
	// Names returns every contig name, in the reference's native order.
	Names() []string
}

// InMemory is a map-backed Reference, the implementation this repository's
// tests and example CLI use in place of a FASTA-file index.
type InMemory struct {
	order []string
	seqs  map[string][]byte
}

// NewInMemory builds a Reference from a name-ordered list of contigs.
// Sequence bytes are used as-is; ambiguous IUPAC codes other than N are not
// folded here (ParseFasta does that folding for FASTA input).
func NewInMemory(names []string, seqs map[string][]byte) *InMemory {
	return &InMemory{order: append([]string(nil), names...), seqs: seqs}
}

func (r *InMemory) Get(contig string, start, end int) ([]byte, error) {
	seq, ok := r.seqs[contig]
	if !ok {
		return nil, errors.Errorf("refindex: unknown contig %q", contig)
	}
	if start < 0 || end > len(seq) || start > end {
		return nil, errors.Errorf("refindex: out-of-range slice [%d,%d) of contig %q (len %d)", start, end, contig, len(seq))
	}
	return seq[start:end], nil
}

func (r *InMemory) Len(contig string) (int, error) {
	seq, ok := r.seqs[contig]
	if !ok {
		return 0, errors.Errorf("refindex: unknown contig %q", contig)
	}
	return len(seq), nil
}

func (r *InMemory) Names() []string {
	return append([]string(nil), r.order...)
}
