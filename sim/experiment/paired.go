package experiment

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inference-sim/linesim/sim/line"
)

// Seeds derives n replication seeds in [1, 1000000] from master.
// The same master always yields the same list.
func Seeds(master int64, n int) []int64 {
	rng := rand.New(rand.NewSource(master))
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = rng.Int63n(1_000_000) + 1
	}
	return seeds
}

// Replication holds both scenarios run under one shared seed.
type Replication struct {
	Seed     int64
	Baseline *line.Result
	Variant  *line.Result
}

// TTestResult is the outcome of a two-sided paired t-test.
type TTestResult struct {
	T          float64
	DF         int
	PValue     float64
	MeanDiff   float64 // mean of a[i] - b[i]
	StdDevDiff float64
}

// PairedTTest tests whether a and b, paired by index, have equal means.
// Identical differences give T=±Inf and PValue=0, or T=0 and PValue=1 when
// every difference is zero.
func PairedTTest(a, b []float64) (TTestResult, error) {
	if len(a) != len(b) {
		return TTestResult{}, fmt.Errorf("paired samples differ in length: %d vs %d", len(a), len(b))
	}
	n := len(a)
	if n < 2 {
		return TTestResult{}, fmt.Errorf("%w: got %d", ErrTooFewReplications, n)
	}
	diffs := make([]float64, n)
	for i := range a {
		diffs[i] = a[i] - b[i]
	}
	mean, sd := stat.MeanStdDev(diffs, nil)
	res := TTestResult{DF: n - 1, MeanDiff: mean, StdDevDiff: sd}

	switch {
	case sd == 0 && mean == 0:
		res.T, res.PValue = 0, 1
	case sd == 0:
		res.T, res.PValue = math.Copysign(math.Inf(1), mean), 0
	default:
		res.T = mean / (sd / math.Sqrt(float64(n)))
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(res.DF)}
		res.PValue = 2 * dist.Survival(math.Abs(res.T))
	}
	return res, nil
}

// PairedResult summarizes a baseline/variant comparison.
type PairedResult struct {
	Config       Config
	Replications []Replication
	BaselineMean float64 // mean of per-replication mean sojourn
	VariantMean  float64
	Test         TTestResult
	// Significant reports PValue < Alpha.
	Significant bool
}

// Differences returns baseline minus variant mean sojourn per replication.
func (r *PairedResult) Differences() []float64 {
	diffs := make([]float64, len(r.Replications))
	for i, rep := range r.Replications {
		diffs[i] = rep.Baseline.MeanSojourn - rep.Variant.MeanSojourn
	}
	return diffs
}

// RunPaired runs every replication seed against both scenarios of cfg using
// base for everything but the machine layout. Sharing a seed gives both
// scenarios the same arrivals and item durations.
func RunPaired(base line.Config, cfg Config) (*PairedResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InterArrival != nil {
		base.InterArrival = *cfg.InterArrival
	}
	seeds := Seeds(cfg.MasterSeed, cfg.Replications)
	out := &PairedResult{Config: cfg, Replications: make([]Replication, 0, len(seeds))}
	baseline := make([]float64, 0, len(seeds))
	variant := make([]float64, 0, len(seeds))

	logrus.Infof("Running %d paired replications: %s vs %s", len(seeds), cfg.Baseline, cfg.Variant)
	for i, seed := range seeds {
		rb, err := line.Simulate(cfg.Baseline.apply(base).WithSeed(seed))
		if err != nil {
			return nil, fmt.Errorf("replication %d (%s, seed %d): %w", i+1, cfg.Baseline, seed, err)
		}
		rv, err := line.Simulate(cfg.Variant.apply(base).WithSeed(seed))
		if err != nil {
			return nil, fmt.Errorf("replication %d (%s, seed %d): %w", i+1, cfg.Variant, seed, err)
		}
		out.Replications = append(out.Replications, Replication{Seed: seed, Baseline: rb, Variant: rv})
		baseline = append(baseline, rb.MeanSojourn)
		variant = append(variant, rv.MeanSojourn)
		if (i+1)%5 == 0 {
			logrus.Infof("Completed replication %d/%d", i+1, len(seeds))
		}
	}

	test, err := PairedTTest(baseline, variant)
	if err != nil {
		return nil, err
	}
	out.BaselineMean = line.Mean(baseline)
	out.VariantMean = line.Mean(variant)
	out.Test = test
	out.Significant = test.PValue < cfg.Alpha
	return out, nil
}
