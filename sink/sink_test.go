package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(i int) *int { return &i }

func TestRecorderAcceptsNonDecreasingPositions(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.WriteBam(BamRecord{Name: "r1", Pos: ptr(10)}))
	require.NoError(t, r.WriteBam(BamRecord{Name: "r2", Pos: ptr(10)}))
	require.NoError(t, r.WriteBam(BamRecord{Name: "r3", Pos: ptr(20)}))
	assert.Len(t, r.Bam, 3)
}

func TestRecorderRejectsDecreasingPosition(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.WriteBam(BamRecord{Name: "r1", Pos: ptr(20)}))
	err := r.WriteBam(BamRecord{Name: "r2", Pos: ptr(10)})
	assert.Error(t, err)
}

func TestRecorderIgnoresUnmappedForWatermark(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.WriteBam(BamRecord{Name: "r1", Pos: ptr(20)}))
	require.NoError(t, r.WriteBam(BamRecord{Name: "unmapped", Pos: nil}))
	require.NoError(t, r.WriteBam(BamRecord{Name: "r2", Pos: ptr(20)}))
}

func TestRecorderResetsWatermarkOnContigChange(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.WriteBam(BamRecord{Name: "r1", ContigIdx: 0, Pos: ptr(900)}))
	require.NoError(t, r.WriteBam(BamRecord{Name: "r2", ContigIdx: 1, Pos: ptr(5)}))
	assert.Len(t, r.Bam, 2)
}

func TestRecorderRejectsOutOfOrderContig(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.WriteBam(BamRecord{Name: "r1", ContigIdx: 1, Pos: ptr(5)}))
	err := r.WriteBam(BamRecord{Name: "r2", ContigIdx: 0, Pos: ptr(5)})
	assert.Error(t, err)
}

func TestRecorderFlushMustNotRegress(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Flush(100))
	assert.Error(t, r.Flush(50))
}

func TestRecorderCloseIsIdempotentAndRejectsFurtherWrites(t *testing.T) {
	r := NewRecorder()
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Error(t, r.WriteVcf(VcfRecord{}))
}
