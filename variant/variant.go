// Package variant defines the tagged variant representation and the
// per-contig ledger used for ground-truth VCF output. The tagged enum
// replaces the tuple shape of the reference implementation, per the
// "variant representation" design note: all the windowed-sampling
// algorithms are expressed against this enum rather than a loose tuple.
package variant

import "fmt"

// Kind tags which of the three variant shapes a Variant carries.
type Kind int

const (
	// Snp is a single-nucleotide substitution.
	Snp Kind = iota
	// Ins is an insertion of Alt immediately after Pos.
	Ins
	// Del is a deletion of the len(Ref) reference bases starting at Pos.
	Del
)

func (k Kind) String() string {
	switch k {
	case Snp:
		return "SNP"
	case Ins:
		return "INS"
	case Del:
		return "DEL"
	default:
		return "UNKNOWN"
	}
}

// Variant is a single mutation event anchored at a 0-based reference
// position, carried with a per-ploid genotype indicating which haplotype
// copies carry it.
type Variant struct {
	Kind Kind
	// Pos is the 0-based reference position of the first affected base.
	Pos int
	// Ref is the reference allele: a single base for Snp, the deleted run
	// for Del, empty for Ins.
	Ref string
	// Alt is the alternate allele: a single base for Snp, the inserted run
	// for Ins, empty for Del.
	Alt string
	// Genotype has one entry per ploid; Genotype[p] is true if ploid p
	// carries Alt at this position.
	Genotype []bool
	// FromVCF marks variants that arrived from user input rather than
	// being randomly generated; ties in position are resolved in favor of
	// FromVCF variants, per the mutation-model contract.
	FromVCF bool
}

// RefLen returns how many reference bases this variant consumes.
func (v Variant) RefLen() int {
	switch v.Kind {
	case Del:
		return len(v.Ref)
	case Snp:
		return 1
	default: // Ins
		return 0
	}
}

// Buffer returns the window-edge buffer this variant requires so that
// structural variants never straddle a window boundary, per the
// WindowScheduler's "per-variant buffer" rule: max(|len(ref)-len(alt)|, 1).
func (v Variant) Buffer() int {
	delta := len(v.Ref) - len(v.Alt)
	if delta < 0 {
		delta = -delta
	}
	if delta < 1 {
		delta = 1
	}
	return delta
}

// AnyGenotype reports whether any ploid carries this variant.
func (v Variant) AnyGenotype() bool {
	for _, g := range v.Genotype {
		if g {
			return true
		}
	}
	return false
}

// key identifies a variant for ledger deduplication: (pos, ref, alt,
// genotype), per the VariantLedger invariant in the data model.
func (v Variant) key() string {
	return fmt.Sprintf("%d|%s|%s|%v", v.Pos, v.Ref, v.Alt, v.Genotype)
}
