package line

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Statistics accumulates per-item timings during a run. It is written by
// ItemFlow processes and read once the run ends.
type Statistics struct {
	Sojourns        []float64 // completion - arrival, in completion order
	InterStageWaits []float64 // positive waits between stage A and stage B
	Completed       int
}

// NewStatistics returns an empty aggregate.
func NewStatistics() *Statistics {
	return &Statistics{
		Sojourns:        make([]float64, 0),
		InterStageWaits: make([]float64, 0),
	}
}

// RecordCompletion appends a sojourn time and counts the item as completed.
func (s *Statistics) RecordCompletion(sojourn float64) {
	s.Sojourns = append(s.Sojourns, sojourn)
	s.Completed++
}

// RecordInterStageWait appends a wait observed before stage B.
func (s *Statistics) RecordInterStageWait(wait float64) {
	s.InterStageWaits = append(s.InterStageWaits, wait)
}

// Reset clears everything recorded so far. Slices previously read from s
// are left untouched.
func (s *Statistics) Reset() {
	s.Sojourns = make([]float64, 0)
	s.InterStageWaits = make([]float64, 0)
	s.Completed = 0
}

// MeanSojourn returns 0 when no item completed.
func (s *Statistics) MeanSojourn() float64 { return Mean(s.Sojourns) }

// StdDevSojourn returns 0 with fewer than two completions.
func (s *Statistics) StdDevSojourn() float64 { return StdDev(s.Sojourns) }

// MeanInterStageWait returns 0 when no item waited.
func (s *Statistics) MeanInterStageWait() float64 { return Mean(s.InterStageWaits) }

// Mean is the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// StdDev is the sample standard deviation of xs, or 0 when it is undefined.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sd := stat.StdDev(xs, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}
