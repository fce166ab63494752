package line

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/linesim/sim"
)

// MachineIndex is the round-robin machine selector: item itemID goes to
// machine itemID mod count of its stage.
func MachineIndex(itemID, count int) int {
	return itemID % count
}

type flowPhase int

const (
	flowStart flowPhase = iota
	flowStageA
	flowStageB
	flowDone
)

// ItemFlow is the process carrying one item through stage A then stage B.
type ItemFlow struct {
	ID        int
	Arrival   float64
	DurationA float64
	DurationB float64

	machineA *Machine
	machineB *Machine
	stats    *Statistics

	phase   flowPhase
	current *usage
	beforeB float64
}

// NewItemFlow draws both stage durations from rng and picks the machines of
// item id with MachineIndex.
func NewItemFlow(id int, arrival float64, cfg Config, stageA, stageB []*Machine, stats *Statistics, rng *rand.Rand) *ItemFlow {
	f := &ItemFlow{
		ID:      id,
		Arrival: arrival,
		stats:   stats,
	}
	f.DurationA = sim.Uniform(rng, cfg.StageA.Min, cfg.StageA.Max)
	f.DurationB = sim.Uniform(rng, cfg.StageB.Min, cfg.StageB.Max)
	f.machineA = stageA[MachineIndex(id, len(stageA))]
	f.machineB = stageB[MachineIndex(id, len(stageB))]
	return f
}

// Resume implements sim.Process.
func (f *ItemFlow) Resume(s *sim.Simulator, wake sim.Wake) sim.Yield {
	for {
		switch f.phase {
		case flowStart:
			f.current = f.machineA.use(f.ID, f.DurationA)
			f.phase = flowStageA
		case flowStageA:
			y, done := f.current.resume(s, wake)
			if !done {
				return y
			}
			f.beforeB = s.Now()
			f.current = f.machineB.use(f.ID, f.DurationB)
			f.phase = flowStageB
			wake = sim.WakeStart
		case flowStageB:
			y, done := f.current.resume(s, wake)
			if !done {
				return y
			}
			f.complete(s.Now())
			return sim.Done()
		default:
			panic("item flow resumed after completion")
		}
	}
}

func (f *ItemFlow) complete(now float64) {
	wait := now - f.beforeB - f.DurationB
	if wait > 0 {
		f.stats.RecordInterStageWait(wait)
	}
	f.stats.RecordCompletion(now - f.Arrival)
	f.current = nil
	f.phase = flowDone
	logrus.Debugf("[t=%.4f] item %d completed, sojourn %.4f", now, f.ID, now-f.Arrival)
}
