package experiment

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/linesim/sim/line"
)

// StableCV is the coefficient of variation below which repeated runs are
// considered stable.
const StableCV = 0.1

// CompareHorizon is the horizon used by CompareConfigurations.
const CompareHorizon = 5000

// StabilityReport describes throughput spread across independent runs.
type StabilityReport struct {
	Seeds       []int64
	Throughputs []float64
	Mean        float64
	StdDev      float64
	CV          float64 // StdDev / Mean; +Inf when Mean is 0
	Stable      bool
}

// Stability runs cfg once per seed and measures how much throughput moves.
func Stability(cfg line.Config, seeds []int64) (*StabilityReport, error) {
	if len(seeds) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewReplications, len(seeds))
	}
	rep := &StabilityReport{Seeds: seeds, Throughputs: make([]float64, 0, len(seeds))}
	for _, seed := range seeds {
		res, err := line.Simulate(cfg.WithSeed(seed))
		if err != nil {
			return nil, fmt.Errorf("stability run with seed %d: %w", seed, err)
		}
		rep.Throughputs = append(rep.Throughputs, res.Throughput)
	}
	rep.Mean = line.Mean(rep.Throughputs)
	rep.StdDev = line.StdDev(rep.Throughputs)
	if rep.Mean > 0 {
		rep.CV = rep.StdDev / rep.Mean
	} else {
		rep.CV = math.Inf(1)
	}
	rep.Stable = rep.CV < StableCV
	if !rep.Stable {
		logrus.Warnf("Throughput unstable across %d runs: CV=%.4f", len(seeds), rep.CV)
	}
	return rep, nil
}

// Verification bundles the model checks: a run without breakdowns and the
// stability of repeated runs.
type Verification struct {
	NoFailure *line.Result
	Stability *StabilityReport
}

// Verify runs the no-failure baseline on cfg and a stability check over
// runs seeds derived from cfg's seed.
func Verify(cfg line.Config, runs int) (*Verification, error) {
	noFail, err := line.Simulate(NoFailureConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("no-failure run: %w", err)
	}
	if noFail.TotalFailures() > 0 {
		logrus.Warnf("No-failure run still saw %d breakdowns", noFail.TotalFailures())
	}
	stab, err := Stability(cfg, Seeds(cfg.ResolveSeed(), runs))
	if err != nil {
		return nil, err
	}
	return &Verification{NoFailure: noFail, Stability: stab}, nil
}

// Comparison is one machine layout and how it performed.
type Comparison struct {
	Scenario Scenario
	Result   *line.Result
}

// DefaultLayouts are the layouts CompareConfigurations tries.
func DefaultLayouts() []Scenario {
	return []Scenario{
		{Name: "minimal", MachinesA: 2, MachinesB: 2},
		{Name: "larger stage A", MachinesA: 3, MachinesB: 2},
		{Name: "larger stage B", MachinesA: 2, MachinesB: 3},
		{Name: "balanced", MachinesA: 3, MachinesB: 3},
	}
}

// CompareConfigurations runs cfg under each layout with the same seed.
func CompareConfigurations(cfg line.Config, layouts []Scenario) ([]Comparison, error) {
	seed := cfg.ResolveSeed()
	out := make([]Comparison, 0, len(layouts))
	for _, s := range layouts {
		res, err := line.Simulate(s.apply(cfg).WithSeed(seed))
		if err != nil {
			return nil, fmt.Errorf("layout %s: %w", s, err)
		}
		out = append(out, Comparison{Scenario: s, Result: res})
	}
	return out, nil
}
