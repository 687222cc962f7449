package sequence

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/fragmentlab/readsim/coverage"
	"github.com/fragmentlab/readsim/distribution"
	"github.com/fragmentlab/readsim/errmodel"
	"github.com/fragmentlab/readsim/mutation"
	"github.com/fragmentlab/readsim/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatCoverage(refStart, n int, value float64) *coverage.Vector {
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return &coverage.Vector{Start: refStart, Values: values}
}

func TestInsertVariantsRejectsRefMismatch(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 25)) // len 100
	c := NewContainer(1000, ref, 2, 5, 10, nil)

	err := c.InsertVariants([]variant.Variant{
		{Kind: variant.Snp, Pos: 1004, Ref: "T", Alt: "G", Genotype: []bool{true, false}},
	})
	assert.Error(t, err)
}

func TestInsertVariantsRejectsPositionCollision(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 25))
	c := NewContainer(1000, ref, 2, 5, 10, nil)

	require.NoError(t, c.InsertVariants([]variant.Variant{
		{Kind: variant.Snp, Pos: 1004, Ref: "A", Alt: "G", Genotype: []bool{true, false}},
	}))
	// Same position again: silently dropped rather than erroring, since the
	// slot is already occupied by a previously applied variant.
	require.NoError(t, c.InsertVariants([]variant.Variant{
		{Kind: variant.Snp, Pos: 1004, Ref: "A", Alt: "C", Genotype: []bool{false, true}},
	}))
	applied := c.AppliedVariants()
	require.Len(t, applied, 1)
	assert.Equal(t, "G", applied[0].Alt)
}

func TestInsertVariantsPastFarEdgeErrors(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 25))
	c := NewContainer(1000, ref, 2, 5, 10, nil)
	err := c.InsertVariants([]variant.Variant{
		{Kind: variant.Snp, Pos: 2000, Ref: "A", Alt: "G", Genotype: []bool{true, true}},
	})
	assert.Error(t, err)
}

// TestInsertVariantsBeforeWindowIsSkipped covers a variant carried across
// the window boundary from the previous window that now falls just before
// refStart: a routine coordinate edge, not a corrupt variant, so it must
// be dropped silently rather than aborting the run.
func TestInsertVariantsBeforeWindowIsSkipped(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 25))
	c := NewContainer(1000, ref, 2, 5, 10, nil)
	err := c.InsertVariants([]variant.Variant{
		{Kind: variant.Snp, Pos: 999, Ref: "A", Alt: "G", Genotype: []bool{true, true}},
	})
	require.NoError(t, err)
	assert.Empty(t, c.AppliedVariants())
}

func TestAppliedVariantsUsesAbsoluteCoordinates(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 25))
	c := NewContainer(1000, ref, 2, 5, 10, nil)
	require.NoError(t, c.InsertVariants([]variant.Variant{
		{Kind: variant.Snp, Pos: 1010, Ref: string(ref[10:11]), Alt: "G", Genotype: []bool{true, true}},
	}))
	applied := c.AppliedVariants()
	require.Len(t, applied, 1)
	assert.Equal(t, 1010, applied[0].Pos)
}

func TestRandomMutationsRespectsOverlapAndExisting(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 50)) // len 200
	model, err := mutation.DefaultModel()
	require.NoError(t, err)
	model.Rate = 1.0 // force a draw at every eligible position
	c := NewContainer(0, ref, 1, 20, 10, model)

	rng := rand.New(rand.NewSource(7))
	drawn, err := c.RandomMutations(rng)
	require.NoError(t, err)
	for _, v := range drawn {
		assert.GreaterOrEqual(t, v.Pos, 20)
		assert.Less(t, v.Pos, 180)
	}
}

func TestInitCoverageAndSampleReadSingleEnd(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 25)) // len 100
	c := NewContainer(500, ref, 1, 5, 10, nil)

	vec := flatCoverage(500, 100, 1.0)
	mult, err := c.InitCoverage(vec, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, mult)

	em, err := errmodel.DefaultModel(10, 0.01, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(2))
	reads, ok := c.SampleRead(em, 0, rng)
	require.True(t, ok)
	require.Len(t, reads, 1)
	assert.Len(t, reads[0].Bases, 10)
	assert.Len(t, reads[0].Quals, 10)
	require.NotNil(t, reads[0].RefPos)
	assert.GreaterOrEqual(t, *reads[0].RefPos, 500)
}

func TestInitCoverageAndSampleReadPairedEnd(t *testing.T) {
	ref := []byte(strings.Repeat("ACGTACGTAC", 20)) // len 200
	c := NewContainer(0, ref, 2, 5, 10, nil)

	vec := flatCoverage(0, 200, 2.0)
	fragDist, err := distribution.New([]float64{30}, []float64{1})
	require.NoError(t, err)
	_, err = c.InitCoverage(vec, fragDist)
	require.NoError(t, err)

	em, err := errmodel.DefaultModel(10, 0.01, false, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(4))
	reads, ok := c.SampleRead(em, 30, rng)
	require.True(t, ok)
	require.Len(t, reads, 2)
	assert.False(t, reads[0].IsMate2)
	assert.True(t, reads[1].IsMate2)
}

func TestSampleReadFailsWhenNoCoverageInitialized(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 25))
	c := NewContainer(0, ref, 1, 5, 10, nil)
	em, err := errmodel.DefaultModel(10, 0.01, false, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.Panics(t, func() {
		c.SampleRead(em, 0, rand.New(rand.NewSource(1)))
	})
}

func TestUpdateResetsAppliedVariants(t *testing.T) {
	ref := []byte(strings.Repeat("ACGT", 25))
	c := NewContainer(0, ref, 1, 5, 10, nil)
	require.NoError(t, c.InsertVariants([]variant.Variant{
		{Kind: variant.Snp, Pos: 10, Ref: string(ref[10]), Alt: "G", Genotype: []bool{true}},
	}))
	require.Len(t, c.AppliedVariants(), 1)

	c.Update(1000, ref)
	assert.Empty(t, c.AppliedVariants())
	start, end := c.WindowBounds()
	assert.Equal(t, 1000, start)
	assert.Equal(t, 1000+len(ref), end)
}
