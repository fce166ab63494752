package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// MUST produce bit-for-bit identical results.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemArrivals is the RNG subsystem for inter-arrival draws.
	// Uses master seed directly.
	SubsystemArrivals = "arrivals"

	// SubsystemItems is the RNG subsystem for per-item stage durations.
	SubsystemItems = "items"
)

// SubsystemMachine returns the subsystem name for the breakdown cycle of the
// named machine. Each machine draws from its own stream so that adding a
// machine leaves the failure history of the others untouched.
func SubsystemMachine(name string) string {
	return fmt.Sprintf("machine_%s", name)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula:
//   - For SubsystemArrivals: uses masterSeed directly
//   - For all other subsystems: masterSeed XOR fnv1a64(subsystemName)
//
// Partitioning is what makes common random numbers work across paired
// configurations: two lines run with the same key see the same arrivals and
// the same item durations regardless of how many machines they have.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemArrivals {
		derivedSeed = int64(p.key)
	} else {
		derivedSeed = int64(p.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}

// Uniform draws from [min, max] using rng.
func Uniform(rng *rand.Rand, min, max float64) float64 {
	if min == max {
		return min
	}
	return min + rng.Float64()*(max-min)
}

// Exponential draws from an exponential distribution with the given mean.
// A zero mean yields zero.
func Exponential(rng *rand.Rand, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	return rng.ExpFloat64() * mean
}
