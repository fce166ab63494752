package experiment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/linesim/sim/line"
)

func TestSeeds_DeterministicAndInRange(t *testing.T) {
	a := Seeds(424242, 30)
	b := Seeds(424242, 30)
	require.Len(t, a, 30)
	assert.Equal(t, a, b)
	for _, s := range a {
		assert.GreaterOrEqual(t, s, int64(1))
		assert.LessOrEqual(t, s, int64(1_000_000))
	}
	assert.NotEqual(t, a, Seeds(1, 30))
	assert.Equal(t, a[:10], Seeds(424242, 10))
}

func TestPairedTTest_KnownValue(t *testing.T) {
	// GIVEN differences 1, 2, 3, 4, 5
	a := []float64{11, 12, 13, 14, 15}
	b := []float64{10, 10, 10, 10, 10}

	// WHEN tested
	res, err := PairedTTest(a, b)
	require.NoError(t, err)

	// THEN t = 3 / (sqrt(2.5)/sqrt(5)) with 4 degrees of freedom
	assert.Equal(t, 4, res.DF)
	assert.InDelta(t, 3.0, res.MeanDiff, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), res.StdDevDiff, 1e-12)
	assert.InDelta(t, 4.242641, res.T, 1e-6)
	assert.InDelta(t, 0.013236, res.PValue, 1e-4)
}

func TestPairedTTest_SwappingNegatesT(t *testing.T) {
	a := []float64{3.1, 4.7, 2.2, 5.9, 4.4}
	b := []float64{2.9, 4.1, 2.5, 5.0, 3.8}
	ab, err := PairedTTest(a, b)
	require.NoError(t, err)
	ba, err := PairedTTest(b, a)
	require.NoError(t, err)
	assert.InDelta(t, -ab.T, ba.T, 1e-12)
	assert.InDelta(t, ab.PValue, ba.PValue, 1e-12)
	assert.True(t, ab.PValue > 0 && ab.PValue < 1)
}

func TestPairedTTest_DegenerateDifferences(t *testing.T) {
	// identical samples
	same, err := PairedTTest([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, same.T)
	assert.Equal(t, 1.0, same.PValue)

	// constant non-zero shift
	shift, err := PairedTTest([]float64{1, 2, 3}, []float64{0, 1, 2})
	require.NoError(t, err)
	assert.True(t, math.IsInf(shift.T, 1))
	assert.Equal(t, 0.0, shift.PValue)
}

func TestPairedTTest_RejectsBadInput(t *testing.T) {
	_, err := PairedTTest([]float64{1, 2}, []float64{1})
	assert.Error(t, err)

	_, err = PairedTTest([]float64{1}, []float64{2})
	assert.ErrorIs(t, err, ErrTooFewReplications)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"one replication", func(c *Config) { c.Replications = 1 }},
		{"zero alpha", func(c *Config) { c.Alpha = 0 }},
		{"alpha one", func(c *Config) { c.Alpha = 1 }},
		{"empty variant", func(c *Config) { c.Variant.MachinesB = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestRunPaired_ExtraStageBMachineHelps(t *testing.T) {
	// GIVEN 5 short paired replications of the stage-B expansion study
	base := line.DefaultConfig()
	base.Horizon = 3000
	cfg := DefaultConfig()
	cfg.Replications = 5

	// WHEN they run
	out, err := RunPaired(base, cfg)
	require.NoError(t, err)

	// THEN pairs share seeds and arrivals, and the variant is faster on average
	require.Len(t, out.Replications, 5)
	for i, seed := range Seeds(cfg.MasterSeed, 5) {
		rep := out.Replications[i]
		assert.Equal(t, seed, rep.Seed)
		assert.Equal(t, seed, rep.Baseline.Seed)
		assert.Equal(t, seed, rep.Variant.Seed)
		assert.Equal(t, rep.Baseline.Spawned, rep.Variant.Spawned)
		assert.Len(t, rep.Baseline.Machines, 5)
		assert.Len(t, rep.Variant.Machines, 6)
	}
	assert.Less(t, out.VariantMean, out.BaselineMean)
	assert.Greater(t, out.Test.MeanDiff, 0.0)
	assert.Len(t, out.Differences(), 5)
	assert.InDelta(t, out.BaselineMean-out.VariantMean, line.Mean(out.Differences()), 1e-9)
	assert.GreaterOrEqual(t, out.Test.PValue, 0.0)
	assert.LessOrEqual(t, out.Test.PValue, 1.0)
	assert.Equal(t, out.Test.PValue < cfg.Alpha, out.Significant)
}

func TestRunPaired_InvalidLineConfig(t *testing.T) {
	base := line.DefaultConfig()
	base.Horizon = -1
	_, err := RunPaired(base, DefaultConfig())
	assert.ErrorIs(t, err, line.ErrInvalidConfig)
}

func TestRunPaired_TooFewReplications(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Replications = 1
	_, err := RunPaired(line.DefaultConfig(), cfg)
	assert.ErrorIs(t, err, ErrTooFewReplications)
}
