package line

import (
	"fmt"
	"math"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/linesim/sim"
	"github.com/inference-sim/linesim/sim/trace"
)

// Line is one two-stage production line bound to its own Simulator.
// A Line runs once; build a new one for every replication.
type Line struct {
	cfg     Config
	seed    int64
	runID   string
	sim     *sim.Simulator
	rng     *sim.PartitionedRNG
	trace   *trace.SimulationTrace
	stats   *Statistics
	stageA  []*Machine
	stageB  []*Machine
	arrival *ArrivalGenerator
	ran     bool
}

// NewLine validates cfg and wires machines, breakdown cycles and the arrival
// generator onto a fresh Simulator. A nil stats gets a fresh aggregate.
func NewLine(cfg Config, stats *Statistics) (*Line, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stats == nil {
		stats = NewStatistics()
	}
	seed := cfg.ResolveSeed()
	l := &Line{
		cfg:   cfg,
		seed:  seed,
		runID: xid.New().String(),
		sim:   sim.NewSimulator(),
		rng:   sim.NewPartitionedRNG(sim.NewSimulationKey(seed)),
		stats: stats,
	}
	if cfg.TraceLevel == trace.TraceLevelEvents {
		l.trace = trace.NewSimulationTrace(trace.TraceConfig{Level: cfg.TraceLevel, RunID: l.runID})
		l.sim.SetTrace(l.trace)
	}

	l.stageA = l.buildStage(StageA, cfg.MachinesA, cfg.StageA)
	l.stageB = l.buildStage(StageB, cfg.MachinesB, cfg.StageB)
	for _, m := range l.Machines() {
		l.sim.Spawn("breakdown-"+m.name, &breakdownCycle{m: m})
	}

	l.arrival = &ArrivalGenerator{
		cfg:      cfg,
		stageA:   l.stageA,
		stageB:   l.stageB,
		stats:    stats,
		arrivals: l.rng.ForSubsystem(sim.SubsystemArrivals),
		items:    l.rng.ForSubsystem(sim.SubsystemItems),
	}
	l.sim.Spawn("arrivals", l.arrival)
	return l, nil
}

func (l *Line) buildStage(stage Stage, count int, processing Range) []*Machine {
	machines := make([]*Machine, count)
	for i := range machines {
		name := fmt.Sprintf("%s_%d", stage, i)
		machines[i] = newMachine(name, stage, processing, l.cfg, l.rng.ForSubsystem(sim.SubsystemMachine(name)), l.trace)
	}
	return machines
}

// Run simulates up to the horizon and summarizes the outcome.
func (l *Line) Run() (*Result, error) {
	if l.ran {
		return nil, fmt.Errorf("line %s already ran", l.runID)
	}
	l.ran = true
	logrus.Infof("Starting run %s: seed=%d horizon=%g machines=%dA/%dB policy=%s",
		l.runID, l.seed, l.cfg.Horizon, l.cfg.MachinesA, l.cfg.MachinesB, l.cfg.policy())
	if err := l.sim.Run(l.cfg.Horizon); err != nil {
		return nil, fmt.Errorf("run %s: %w", l.runID, err)
	}
	res := l.result()
	logrus.Infof("Finished run %s: completed=%d spawned=%d events=%d",
		l.runID, res.Completed, res.Spawned, l.sim.Dispatched())
	if res.Completed == 0 {
		logrus.Warnf("Run %s completed no items within horizon %g", l.runID, l.cfg.Horizon)
	}
	return res, nil
}

func (l *Line) result() *Result {
	h := l.cfg.Horizon
	res := &Result{
		RunID:              l.runID,
		Seed:               l.seed,
		Horizon:            h,
		Completed:          l.stats.Completed,
		Spawned:            l.arrival.Spawned(),
		Throughput:         float64(l.stats.Completed) / h,
		MeanSojourn:        l.stats.MeanSojourn(),
		StdDevSojourn:      l.stats.StdDevSojourn(),
		MeanInterStageWait: l.stats.MeanInterStageWait(),
	}
	for _, m := range l.Machines() {
		res.Machines = append(res.Machines, m.Report(h))
	}
	return res
}

// Seed returns the seed the run uses, drawn or configured.
func (l *Line) Seed() int64 { return l.seed }

// RunID returns the unique identifier of this run.
func (l *Line) RunID() string { return l.runID }

// Trace returns the event trace, or nil when tracing is off.
func (l *Line) Trace() *trace.SimulationTrace { return l.trace }

// Statistics returns the aggregate the items report into.
func (l *Line) Statistics() *Statistics { return l.stats }

// Simulator exposes the kernel, mainly for tests.
func (l *Line) Simulator() *sim.Simulator { return l.sim }

// Machines returns stage A machines followed by stage B machines.
func (l *Line) Machines() []*Machine {
	all := make([]*Machine, 0, len(l.stageA)+len(l.stageB))
	all = append(all, l.stageA...)
	return append(all, l.stageB...)
}

// Simulate builds a Line for cfg with fresh statistics and runs it.
func Simulate(cfg Config) (*Result, error) {
	l, err := NewLine(cfg, nil)
	if err != nil {
		return nil, err
	}
	return l.Run()
}

// Result summarizes one finished run.
type Result struct {
	RunID              string
	Seed               int64
	Horizon            float64
	Completed          int
	Spawned            int
	Throughput         float64 // completed items per time unit
	MeanSojourn        float64
	StdDevSojourn      float64
	MeanInterStageWait float64
	Machines           []MachineReport
}

// StageUtilization is the mean utilization over the machines of stage, or
// NaN if the stage has none.
func (r *Result) StageUtilization(stage Stage) float64 {
	sum, n := 0.0, 0
	for _, m := range r.Machines {
		if m.Stage == stage {
			sum += m.Utilization
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// TotalFailures sums breakdowns across all machines.
func (r *Result) TotalFailures() int {
	total := 0
	for _, m := range r.Machines {
		total += m.Failures
	}
	return total
}
