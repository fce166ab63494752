package line

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/linesim/sim"
	"github.com/inference-sim/linesim/sim/trace"
)

// Stage identifies a production stage.
type Stage string

const (
	StageA Stage = "A" // preprocessing
	StageB Stage = "B" // assembly
)

// Availability is the breakdown state of a machine.
type Availability int

const (
	Up Availability = iota
	Down
)

func (a Availability) String() string {
	if a == Down {
		return "DOWN"
	}
	return "UP"
}

// Machine is a single-capacity resource whose availability is flipped by an
// independent breakdown/repair cycle.
//
// Its counters are written only by its own breakdown cycle (failures, up and
// repair time) and by the item holding its token (busy time).
type Machine struct {
	name     string
	stage    Stage
	resource *sim.Resource

	processing   Range
	mtbf         Range
	mttr         Range
	pollInterval float64
	policy       ServicePolicy
	rng          *rand.Rand
	trace        *trace.SimulationTrace

	state          Availability
	lastTransition float64
	busyTime       float64
	repairTime     float64
	upTime         float64
	// overlap is processing time that fell inside completed repairs;
	// pendingOverlap is the share inside the repair still in progress.
	overlap        float64
	pendingOverlap float64
	failures       int
	served         int
}

func newMachine(name string, stage Stage, processing Range, cfg Config, rng *rand.Rand, st *trace.SimulationTrace) *Machine {
	return &Machine{
		name:         name,
		stage:        stage,
		resource:     sim.NewResource(name),
		processing:   processing,
		mtbf:         cfg.MTBF,
		mttr:         cfg.MTTR,
		pollInterval: cfg.pollInterval(),
		policy:       cfg.policy(),
		rng:          rng,
		trace:        st,
		state:        Up,
	}
}

// Identity accessors.

// Name returns the machine name, e.g. "B_1".
func (m *Machine) Name() string { return m.name }

// Stage returns the stage the machine belongs to.
func (m *Machine) Stage() Stage { return m.stage }

// ProcessingRange returns the uniform range of processing times at this stage.
func (m *Machine) ProcessingRange() Range { return m.processing }

// Resource returns the token items seize to use the machine.
func (m *Machine) Resource() *sim.Resource { return m.resource }

func (m *Machine) String() string { return fmt.Sprintf("%s(%s)", m.name, m.state) }

// Counters. Time counters accumulate only on completed spans: a service or
// repair still in progress at the horizon is not included.

// State returns the current availability.
func (m *Machine) State() Availability { return m.state }

// BusyTime returns the total time spent processing items.
func (m *Machine) BusyTime() float64 { return m.busyTime }

// RepairTime returns the total time spent DOWN in completed repairs.
func (m *Machine) RepairTime() float64 { return m.repairTime }

// UpTime returns the total UP time, accumulated at each breakdown.
func (m *Machine) UpTime() float64 { return m.upTime }

// OverlapTime returns processing time that coincided with completed repairs.
// It is non-zero only under PolicyRestart.
func (m *Machine) OverlapTime() float64 { return m.overlap }

// Failures returns the number of breakdowns so far.
func (m *Machine) Failures() int { return m.failures }

// Served returns the number of items that released the machine.
func (m *Machine) Served() int { return m.served }

// Utilization is the fraction of horizon during which the machine was
// processing, under repair, or both.
func (m *Machine) Utilization(horizon float64) float64 {
	if horizon <= 0 {
		return 0
	}
	return math.Min(1, (m.busyTime+m.repairTime-m.overlap)/horizon)
}

// downTime returns repair time up to now, including a repair in progress.
func (m *Machine) downTime(now float64) float64 {
	if m.state == Down {
		return m.repairTime + now - m.lastTransition
	}
	return m.repairTime
}

// creditOverlap records how much of a processing span that ends now was
// spent DOWN. downAtStart is downTime at the start of the span. The share
// inside the current repair is held back until that repair completes.
func (m *Machine) creditOverlap(downAtStart, now float64) {
	total := m.downTime(now) - downAtStart
	if total <= 0 {
		return
	}
	ongoing := 0.0
	if m.state == Down {
		ongoing = math.Min(total, now-m.lastTransition)
	}
	m.overlap += total - ongoing
	m.pendingOverlap += ongoing
}

func (m *Machine) nextFailure() float64 {
	mean := sim.Uniform(m.rng, m.mtbf.Min, m.mtbf.Max)
	return sim.Exponential(m.rng, mean)
}

func (m *Machine) nextRepair() float64 {
	mean := sim.Uniform(m.rng, m.mttr.Min, m.mttr.Max)
	return sim.Exponential(m.rng, mean)
}

// fail moves the machine to DOWN. Under PolicyResume the current holder is
// told so it can bank the work done so far.
func (m *Machine) fail(s *sim.Simulator) {
	now := s.Now()
	m.failures++
	m.upTime += now - m.lastTransition
	m.transition(now, Down)
	if m.policy == PolicyResume {
		if h := m.resource.Holder(); h != nil && s.Interrupt(h) {
			logrus.Debugf("[t=%.4f] %s breakdown interrupted %s", now, m.name, h.Name())
		}
	}
}

func (m *Machine) repair(s *sim.Simulator) {
	now := s.Now()
	m.repairTime += now - m.lastTransition
	m.overlap += m.pendingOverlap
	m.pendingOverlap = 0
	m.transition(now, Up)
}

func (m *Machine) transition(now float64, to Availability) {
	from := m.state
	m.state = to
	m.lastTransition = now
	logrus.Debugf("[t=%.4f] %s %s -> %s (failures=%d)", now, m.name, from, to, m.failures)
	m.trace.RecordTransition(trace.TransitionRecord{
		Machine:  m.name,
		Time:     now,
		From:     from.String(),
		To:       to.String(),
		Failures: m.failures,
	})
}

// MachineReport is the end-of-run summary of one machine.
type MachineReport struct {
	Name        string
	Stage       Stage
	Processing  Range
	Utilization float64
	BusyTime    float64
	RepairTime  float64
	UpTime      float64
	OverlapTime float64
	Failures    int
	Served      int
}

// Report summarizes m against the run horizon.
func (m *Machine) Report(horizon float64) MachineReport {
	return MachineReport{
		Name:        m.name,
		Stage:       m.stage,
		Processing:  m.ProcessingRange(),
		Utilization: m.Utilization(horizon),
		BusyTime:    m.busyTime,
		RepairTime:  m.repairTime,
		UpTime:      m.upTime,
		OverlapTime: m.overlap,
		Failures:    m.failures,
		Served:      m.served,
	}
}

// === Breakdown cycle ===

type cyclePhase int

const (
	cycleStart cyclePhase = iota
	cycleAwaitFailure
	cycleAwaitRepair
)

// breakdownCycle drives a machine UP → DOWN → UP forever. It never holds
// the machine's token.
type breakdownCycle struct {
	m     *Machine
	phase cyclePhase
}

func (b *breakdownCycle) Resume(s *sim.Simulator, wake sim.Wake) sim.Yield {
	switch b.phase {
	case cycleStart:
		b.phase = cycleAwaitFailure
		return sim.Timeout(b.m.nextFailure())
	case cycleAwaitFailure:
		b.m.fail(s)
		b.phase = cycleAwaitRepair
		return sim.Timeout(b.m.nextRepair())
	default:
		b.m.repair(s)
		b.phase = cycleAwaitFailure
		return sim.Timeout(b.m.nextFailure())
	}
}

// === Seize–use–release ===

type usagePhase int

const (
	usageRequest usagePhase = iota
	usageAwaitToken
	usagePolling
	usageProcessing
	usageFinished
)

// usage is the seize–use–release sub-machine an item runs on one machine.
// It is stepped inline by the owning ItemFlow rather than spawned.
type usage struct {
	m           *Machine
	itemID      int
	duration    float64
	remaining   float64
	started     float64
	downAtStart float64 // machine downTime when processing started
	phase       usagePhase
}

// use prepares item itemID to be served by m for duration time units.
func (m *Machine) use(itemID int, duration float64) *usage {
	return &usage{
		m:         m,
		itemID:    itemID,
		duration:  duration,
		remaining: duration,
	}
}

// resume advances the usage. done is true once the token is released; the
// returned Yield is meaningful only when done is false.
func (u *usage) resume(s *sim.Simulator, wake sim.Wake) (y sim.Yield, done bool) {
	switch u.phase {
	case usageRequest:
		u.phase = usageAwaitToken
		return sim.Acquire(u.m.resource), false
	case usageAwaitToken, usagePolling:
		return u.serveWhenUp(s), false
	case usageProcessing:
		worked := s.Now() - u.started
		u.m.busyTime += worked
		u.m.creditOverlap(u.downAtStart, s.Now())
		if wake == sim.WakeInterrupted {
			u.remaining -= worked
			if u.remaining > 0 {
				logrus.Debugf("[t=%.4f] item %d on %s paused, %.4f left", s.Now(), u.itemID, u.m.name, u.remaining)
				return u.serveWhenUp(s), false
			}
		}
		u.remaining = 0
		u.finish(s)
		return sim.Yield{}, true
	default:
		panic(fmt.Sprintf("usage of %s by item %d resumed after release", u.m.name, u.itemID))
	}
}

// serveWhenUp polls while the machine is DOWN, otherwise starts serving.
func (u *usage) serveWhenUp(s *sim.Simulator) sim.Yield {
	if u.m.state == Down {
		u.phase = usagePolling
		return sim.Timeout(u.m.pollInterval)
	}
	u.phase = usageProcessing
	u.started = s.Now()
	u.downAtStart = u.m.downTime(s.Now())
	return sim.Timeout(u.remaining)
}

func (u *usage) finish(s *sim.Simulator) {
	if err := u.m.resource.Release(s); err != nil {
		panic(fmt.Sprintf("item %d finishing on %s: %v", u.itemID, u.m.name, err))
	}
	u.m.served++
	u.phase = usageFinished
}
