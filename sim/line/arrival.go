package line

import (
	"fmt"
	"math/rand"

	"github.com/inference-sim/linesim/sim"
)

// ArrivalGenerator is the process that spawns a new ItemFlow after every
// exponential inter-arrival gap. It runs until the horizon cuts it off.
type ArrivalGenerator struct {
	cfg      Config
	stageA   []*Machine
	stageB   []*Machine
	stats    *Statistics
	arrivals *rand.Rand
	items    *rand.Rand

	waiting bool
	nextID  int
}

// Spawned returns how many items have entered the line.
func (g *ArrivalGenerator) Spawned() int { return g.nextID }

func (g *ArrivalGenerator) nextGap() float64 {
	mean := sim.Uniform(g.arrivals, g.cfg.InterArrival.Min, g.cfg.InterArrival.Max)
	return sim.Exponential(g.arrivals, mean)
}

// Resume implements sim.Process.
func (g *ArrivalGenerator) Resume(s *sim.Simulator, wake sim.Wake) sim.Yield {
	if g.waiting {
		g.nextID++
		flow := NewItemFlow(g.nextID, s.Now(), g.cfg, g.stageA, g.stageB, g.stats, g.items)
		s.Spawn(fmt.Sprintf("item-%d", flow.ID), flow)
	}
	g.waiting = true
	return sim.Timeout(g.nextGap())
}
