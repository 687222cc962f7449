package engine

import (
	"testing"

	"github.com/fragmentlab/readsim/refindex"
	"github.com/fragmentlab/readsim/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalConfig() Config {
	ref := refindex.NewInMemory([]string{"chr1"}, map[string][]byte{"chr1": []byte("ACGTACGTACGT")})
	return Config{
		Reference: ref,
		Sink:      sink.NewRecorder(),
		Ploidy:    1,
		ReadLen:   4,
		Coverage:  1,
	}
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	require.NoError(t, minimalConfig().Validate())
}

func TestValidateRejectsMissingReference(t *testing.T) {
	cfg := minimalConfig()
	cfg.Reference = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Reference is required")
}

func TestValidateRejectsMissingSink(t *testing.T) {
	cfg := minimalConfig()
	cfg.Sink = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sink is required")
}

func TestValidateAggregatesMultipleProblems(t *testing.T) {
	cfg := minimalConfig()
	cfg.Ploidy = 0
	cfg.ReadLen = 0
	cfg.Coverage = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ploidy")
	assert.Contains(t, err.Error(), "ReadLen")
	assert.Contains(t, err.Error(), "Coverage")
}

func TestValidateRejectsPairedEndWithoutFragmentModel(t *testing.T) {
	cfg := minimalConfig()
	cfg.PairedEnd = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FragMean")
}

func TestValidateAcceptsPairedEndWithFragMean(t *testing.T) {
	cfg := minimalConfig()
	cfg.PairedEnd = true
	cfg.FragMean = 300
	cfg.FragStd = 30
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsErrorRateOutOfRange(t *testing.T) {
	cfg := minimalConfig()
	cfg.ErrorRate = 1.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ErrorRate")
}

func TestValidateRejectsOffTargetScalarOutOfRange(t *testing.T) {
	cfg := minimalConfig()
	cfg.DiscardOffTarget = true
	cfg.OffTargetScalar = 2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OffTargetScalar")
}
