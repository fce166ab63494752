package trace

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"strings"
)

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents      int
	TotalTransitions int
	FirstEventTime   float64
	LastEventTime    float64
	WakeDistribution map[string]int // wake reason → count
	KindDistribution map[string]int // process kind (name up to the first '-') → count
	// Digest fingerprints the ordered event sequence; equal digests mean
	// bit-identical event orderings.
	Digest uint64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		WakeDistribution: make(map[string]int),
		KindDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	summary.TotalTransitions = len(st.Transitions)
	if len(st.Events) > 0 {
		summary.FirstEventTime = st.Events[0].Time
		summary.LastEventTime = st.Events[len(st.Events)-1].Time
	}
	for _, e := range st.Events {
		summary.WakeDistribution[e.Wake]++
		summary.KindDistribution[processKind(e.Process)]++
	}
	summary.Digest = Digest(st.Events)

	return summary
}

// Digest returns an FNV-1a fingerprint of an ordered event sequence.
func Digest(events []EventRecord) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, e := range events {
		binary.LittleEndian.PutUint64(buf[:], e.Seq)
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(e.Time))
		h.Write(buf[:])
		h.Write([]byte(e.Process))
		h.Write([]byte{0})
		h.Write([]byte(e.Wake))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func processKind(name string) string {
	if i := strings.IndexByte(name, '-'); i >= 0 {
		return name[:i]
	}
	return name
}
