package line

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/inference-sim/linesim/sim/trace"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid line configuration")

// DefaultPollInterval is how often a token holder re-checks a broken machine.
const DefaultPollInterval = 1.0

// Range is an inclusive [Min, Max] bound for a uniform draw.
// In YAML it is written either as a two-element sequence, [2, 15], or as a
// mapping, {min: 2, max: 15}.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// R is shorthand for Range{Min: min, Max: max}.
func R(min, max float64) Range {
	return Range{Min: min, Max: max}
}

// Mean returns the midpoint of the range.
func (r Range) Mean() float64 {
	return (r.Min + r.Max) / 2
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// UnmarshalYAML accepts both the sequence and the mapping form.
func (r *Range) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var bounds []float64
		if err := node.Decode(&bounds); err != nil {
			return err
		}
		if len(bounds) != 2 {
			return fmt.Errorf("line %d: range needs exactly 2 bounds, got %d", node.Line, len(bounds))
		}
		r.Min, r.Max = bounds[0], bounds[1]
		return nil
	case yaml.MappingNode:
		type plain Range
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*r = Range(p)
		return nil
	default:
		return fmt.Errorf("line %d: range must be a [min, max] sequence or a {min, max} mapping", node.Line)
	}
}

// MarshalYAML writes the compact sequence form.
func (r Range) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range []float64{r.Min, r.Max} {
		var n yaml.Node
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &n)
	}
	return node, nil
}

// ServicePolicy decides what a breakdown does to an item already in service.
type ServicePolicy string

const (
	// PolicyRestart checks availability only before service starts; once
	// started, the full processing time is served regardless of breakdowns.
	PolicyRestart ServicePolicy = "restart"
	// PolicyResume interrupts the holder on breakdown; after repair it
	// serves only the remaining processing time.
	PolicyResume ServicePolicy = "resume"
)

var validPolicies = map[ServicePolicy]bool{
	PolicyRestart: true,
	PolicyResume:  true,
	"":            true, // empty defaults to restart
}

// Config parameterizes one simulation run of the two-stage line.
type Config struct {
	StageA       Range `yaml:"stage_a"`       // stage-A processing time (uniform)
	StageB       Range `yaml:"stage_b"`       // stage-B processing time (uniform)
	MTBF         Range `yaml:"mtbf"`          // mean time between failures (uniform of means)
	MTTR         Range `yaml:"mttr"`          // mean time to repair (uniform of means)
	InterArrival Range `yaml:"inter_arrival"` // mean inter-arrival time (uniform of means)

	MachinesA int     `yaml:"machines_a"`
	MachinesB int     `yaml:"machines_b"`
	Horizon   float64 `yaml:"horizon"`
	// Seed is optional; nil draws one from the wall clock (see ResolveSeed).
	Seed *int64 `yaml:"seed,omitempty"`

	PollInterval  float64          `yaml:"poll_interval,omitempty"`  // 0 = DefaultPollInterval
	ServicePolicy ServicePolicy    `yaml:"service_policy,omitempty"` // "" = restart
	TraceLevel    trace.TraceLevel `yaml:"trace_level,omitempty"`    // "" = none
}

// DefaultConfig returns the reference scenario: 3 stage-A and 2 stage-B
// machines over 10000 time units with seed 42.
func DefaultConfig() Config {
	seed := int64(42)
	return Config{
		StageA:        R(2, 15),
		StageB:        R(10, 20),
		MTBF:          R(120, 180),
		MTTR:          R(3, 10),
		InterArrival:  R(10, 20),
		MachinesA:     3,
		MachinesB:     2,
		Horizon:       10000,
		Seed:          &seed,
		PollInterval:  DefaultPollInterval,
		ServicePolicy: PolicyRestart,
		TraceLevel:    trace.TraceLevelNone,
	}
}

// WithSeed returns a copy of c using seed.
func (c Config) WithSeed(seed int64) Config {
	c.Seed = &seed
	return c
}

// ResolveSeed returns the configured seed, or draws one from the wall clock
// and logs it so the run can be reproduced.
func (c Config) ResolveSeed() int64 {
	if c.Seed != nil {
		return *c.Seed
	}
	seed := time.Now().UnixNano()
	logrus.Warnf("No seed configured; using seed=%d", seed)
	return seed
}

func (c Config) pollInterval() float64 {
	if c.PollInterval == 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}

func (c Config) policy() ServicePolicy {
	if c.ServicePolicy == "" {
		return PolicyRestart
	}
	return c.ServicePolicy
}

// Validate rejects degenerate configurations before anything is simulated.
func (c Config) Validate() error {
	checks := []struct {
		name      string
		r         Range
		allowZero bool
	}{
		{"stage_a", c.StageA, false},
		{"stage_b", c.StageB, false},
		{"mtbf", c.MTBF, false},
		{"mttr", c.MTTR, true}, // zero repair time is an instantaneous repair
		{"inter_arrival", c.InterArrival, false},
	}
	for _, chk := range checks {
		if err := validateRange(chk.name, chk.r, chk.allowZero); err != nil {
			return err
		}
	}
	if c.MachinesA < 1 {
		return fmt.Errorf("%w: machines_a must be at least 1, got %d", ErrInvalidConfig, c.MachinesA)
	}
	if c.MachinesB < 1 {
		return fmt.Errorf("%w: machines_b must be at least 1, got %d", ErrInvalidConfig, c.MachinesB)
	}
	if err := validateFinitePositive("horizon", c.Horizon); err != nil {
		return err
	}
	if c.PollInterval != 0 {
		if err := validateFinitePositive("poll_interval", c.PollInterval); err != nil {
			return err
		}
	}
	if !validPolicies[c.ServicePolicy] {
		return fmt.Errorf("%w: unknown service_policy %q; valid: restart, resume", ErrInvalidConfig, c.ServicePolicy)
	}
	if !trace.IsValidTraceLevel(string(c.TraceLevel)) {
		return fmt.Errorf("%w: unknown trace_level %q; valid: none, events", ErrInvalidConfig, c.TraceLevel)
	}
	return nil
}

func validateRange(name string, r Range, allowZero bool) error {
	for _, v := range []float64{r.Min, r.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s bounds must be finite, got %v", ErrInvalidConfig, name, r)
		}
	}
	if allowZero {
		if r.Min < 0 {
			return fmt.Errorf("%w: %s bounds must be non-negative, got %v", ErrInvalidConfig, name, r)
		}
	} else if r.Min <= 0 {
		return fmt.Errorf("%w: %s bounds must be positive, got %v", ErrInvalidConfig, name, r)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: %s min exceeds max, got %v", ErrInvalidConfig, name, r)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %f", ErrInvalidConfig, name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %f", ErrInvalidConfig, name, val)
	}
	return nil
}
