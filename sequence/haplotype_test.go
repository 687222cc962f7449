package sequence

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/fragmentlab/readsim/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cigarString(c sam.Cigar) string {
	s := ""
	for _, op := range c {
		s += op.String()
	}
	return s
}

func totalReadOps(c sam.Cigar) int {
	n := 0
	for _, op := range c {
		switch op.Type() {
		case sam.CigarMatch, sam.CigarInsertion:
			n += op.Len()
		}
	}
	return n
}

func TestBuildHaplotypeNoVariants(t *testing.T) {
	ref := []byte("ACGTACGTACGT") // len 12
	h := buildHaplotype(ref, nil)
	h.buildCigarMap(len(ref), 4)

	assert.Equal(t, ref, h.bases)
	for r := 0; r <= len(ref)-4; r++ {
		entry, ok := h.cigarMap[r]
		require.True(t, ok, "missing cigar at %d", r)
		assert.Equal(t, 4, totalReadOps(entry.cigar))
		assert.Equal(t, "4M", cigarString(entry.cigar))
		assert.Equal(t, r, entry.hapPos)
		assert.Equal(t, 4, entry.hapLen)
	}
}

func TestBuildHaplotypeSNP(t *testing.T) {
	ref := []byte("ACGTACGTACGT")
	vars := []variant.Variant{
		{Kind: variant.Snp, Pos: 2, Ref: "G", Alt: "T", Genotype: []bool{true}},
	}
	h := buildHaplotype(ref, vars)
	h.buildCigarMap(len(ref), 4)

	assert.Equal(t, byte('T'), h.bases[2])
	entry, ok := h.cigarMap[0]
	require.True(t, ok)
	assert.Equal(t, "4M", cigarString(entry.cigar))
	assert.Equal(t, 4, totalReadOps(entry.cigar))
}

func TestBuildHaplotypeDeletion(t *testing.T) {
	ref := []byte("AAAACCCGGGTTT") // len 13
	vars := []variant.Variant{
		{Kind: variant.Del, Pos: 4, Ref: "CCC", Alt: "", Genotype: []bool{true}},
	}
	h := buildHaplotype(ref, vars)
	// Haplotype should be ref with the 3 C's removed: "AAAA"+"GGGTTT"
	assert.Equal(t, []byte("AAAAGGGTTT"), h.bases)

	h.buildCigarMap(len(ref), 6)
	entry, ok := h.cigarMap[0]
	require.True(t, ok)
	assert.Equal(t, 6, totalReadOps(entry.cigar))
	assert.Equal(t, "4M3D2M", cigarString(entry.cigar))
}

func TestBuildHaplotypeInsertion(t *testing.T) {
	ref := []byte("AAAACCCCTTTT") // len 12
	vars := []variant.Variant{
		{Kind: variant.Ins, Pos: 3, Ref: "", Alt: "GG", Genotype: []bool{true}},
	}
	h := buildHaplotype(ref, vars)
	// Insert "GG" right after ref[3]: "AAAA" + "GG" + "CCCCTTTT"
	assert.Equal(t, []byte("AAAAGGCCCCTTTT"), h.bases)

	h.buildCigarMap(len(ref), 6)
	entry, ok := h.cigarMap[0]
	require.True(t, ok)
	assert.Equal(t, 6, totalReadOps(entry.cigar))
	assert.Equal(t, "4M2I", cigarString(entry.cigar))
}

func TestCigarMapOmitsPositionsWithoutEnoughHaplotype(t *testing.T) {
	ref := []byte("AAAACCCGGGTTT") // len 13
	vars := []variant.Variant{
		{Kind: variant.Del, Pos: 10, Ref: "TTT", Alt: "", Genotype: []bool{true}},
	}
	h := buildHaplotype(ref, vars)
	h.buildCigarMap(len(ref), 5)
	// A read anchored at 8 needs 5 read bases, but only 2 haplotype bytes
	// (refPos 8,9) remain before the trailing deletion swallows the rest
	// of the window, so this position must be omitted rather than
	// produced with a short read.
	_, ok := h.cigarMap[8]
	assert.False(t, ok)
}
