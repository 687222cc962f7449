package errmodel

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyProducesReadLenBasesAndQuals(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m, err := DefaultModel(100, 0.01, false, rng)
	require.NoError(t, err)

	read := []byte(strings.Repeat("ACGT", 25))
	bases, quals := m.Apply(read, false, rng)
	assert.Len(t, bases, 100)
	assert.Len(t, quals, 100)
	for _, q := range quals {
		assert.GreaterOrEqual(t, q, m.OffQ)
	}
}

func TestApplyReverseKeepsLengthAndAlphabet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m, err := DefaultModel(4, 0, false, rng)
	require.NoError(t, err)
	// Near-zero error rate model still has some random mismatch chance;
	// use a fixed seed and just check length/alphabet invariants instead
	// of exact content.
	bases, _ := m.Apply([]byte("ACGT"), true, rng)
	assert.Len(t, bases, 4)
	for _, b := range bases {
		assert.Contains(t, "ACGT", string(b))
	}
}

func TestRescaleQualMatchesTargetErrorRate(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	target := 0.05
	m, err := DefaultModel(100, target, true, rng)
	require.NoError(t, err)

	mismatches := 0
	total := 0
	read := []byte(strings.Repeat("ACGT", 25))
	for i := 0; i < 2000; i++ {
		bases, _ := m.Apply(read, false, rng)
		for j, b := range bases {
			total++
			if b != read[j] {
				mismatches++
			}
		}
	}
	realized := float64(mismatches) / float64(total)
	assert.InDelta(t, target, realized, 0.03)
}

func TestMaskLowQuality(t *testing.T) {
	bases := []byte("ACGT")
	quals := []byte{33 + 2, 33 + 30, 33 + 1, 33 + 40}
	MaskLowQuality(bases, quals, 33, 5)
	assert.Equal(t, []byte("NCNT"), bases)
}

func TestReverseComplement(t *testing.T) {
	assert.Equal(t, []byte("ACGT"), ReverseComplement([]byte("ACGT")))
	assert.Equal(t, []byte("NNCGT"), ReverseComplement([]byte("ACGNN")))
}
