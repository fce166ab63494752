package experiment

import (
	"errors"
	"fmt"
	"math"

	"github.com/inference-sim/linesim/sim/line"
)

// ErrTooFewReplications is returned when a paired comparison has fewer than
// two replications and no variance can be estimated.
var ErrTooFewReplications = errors.New("at least 2 replications are required")

// Scenario is one machine layout of the line.
type Scenario struct {
	Name      string `yaml:"name"`
	MachinesA int    `yaml:"machines_a"`
	MachinesB int    `yaml:"machines_b"`
}

func (s Scenario) String() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%dA+%dB", s.MachinesA, s.MachinesB)
}

// apply returns base laid out as s.
func (s Scenario) apply(base line.Config) line.Config {
	base.MachinesA = s.MachinesA
	base.MachinesB = s.MachinesB
	return base
}

// Config parameterizes a paired common-random-numbers experiment.
type Config struct {
	Replications int      `yaml:"replications"`
	MasterSeed   int64    `yaml:"master_seed"`
	Baseline     Scenario `yaml:"baseline"`
	Variant      Scenario `yaml:"variant"`
	// InterArrival, when set, overrides the line's arrival range for both
	// scenarios; a heavier load makes the layouts easier to tell apart.
	InterArrival *line.Range `yaml:"inter_arrival,omitempty"`
	Alpha        float64     `yaml:"alpha"`
}

// DefaultConfig is the stage-B expansion study: 30 pairs of 3A+2B against
// 3A+3B under arrivals drawn from [8, 12].
func DefaultConfig() Config {
	load := line.R(8, 12)
	return Config{
		Replications: 30,
		MasterSeed:   424242,
		Baseline:     Scenario{Name: "3A+2B", MachinesA: 3, MachinesB: 2},
		Variant:      Scenario{Name: "3A+3B", MachinesA: 3, MachinesB: 3},
		InterArrival: &load,
		Alpha:        0.05,
	}
}

// Validate checks the experiment parameters; the line configuration is
// validated separately when each replication is built.
func (c Config) Validate() error {
	if c.Replications < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewReplications, c.Replications)
	}
	if math.IsNaN(c.Alpha) || c.Alpha <= 0 || c.Alpha >= 1 {
		return fmt.Errorf("alpha must be in (0, 1), got %v", c.Alpha)
	}
	for _, s := range []Scenario{c.Baseline, c.Variant} {
		if s.MachinesA < 1 || s.MachinesB < 1 {
			return fmt.Errorf("scenario %s needs at least one machine per stage", s)
		}
	}
	return nil
}

// NoFailureConfig returns base with breakdowns practically disabled:
// MTBF of one million time units and instantaneous repair.
func NoFailureConfig(base line.Config) line.Config {
	base.MTBF = line.R(1e6, 1e6)
	base.MTTR = line.R(0, 0)
	return base
}
