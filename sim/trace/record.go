// Package trace provides event-trace recording for simulation runs.
// This package has no dependencies on sim/ or sim/line/; it stores pure data types.
package trace

// EventRecord captures a single event dispatched by the kernel.
type EventRecord struct {
	Seq     uint64  // scheduling sequence number (tie-breaker)
	Time    float64 // simulated time of the event
	Process string  // name of the resumed process
	Wake    string  // why the process was resumed
}

// TransitionRecord captures a machine availability flip.
type TransitionRecord struct {
	Machine string
	Time    float64
	From    string
	To      string
	// Failures is the machine's failure count after the transition.
	Failures int
}
