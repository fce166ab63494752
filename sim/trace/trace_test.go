package trace

import (
	"testing"
)

func TestSimulationTrace_RecordEvent_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for events
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN an event record is recorded
	st.RecordEvent(EventRecord{Seq: 1, Time: 0, Process: "arrivals", Wake: "start"})

	// THEN the trace contains one event record with correct data
	if len(st.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(st.Events))
	}
	if st.Events[0].Process != "arrivals" {
		t.Errorf("expected process arrivals, got %s", st.Events[0].Process)
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a trace with tracing disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN records are offered
	st.RecordEvent(EventRecord{Seq: 1})
	st.RecordTransition(TransitionRecord{Machine: "A_0", From: "UP", To: "DOWN"})

	// THEN nothing is kept
	if len(st.Events) != 0 || len(st.Transitions) != 0 {
		t.Errorf("expected empty trace, got %d events, %d transitions", len(st.Events), len(st.Transitions))
	}
}

func TestSimulationTrace_NilTrace_IsSafe(t *testing.T) {
	var st *SimulationTrace
	st.RecordEvent(EventRecord{Seq: 1})
	st.RecordTransition(TransitionRecord{})
	if st.Enabled() {
		t.Error("nil trace must report disabled")
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN multiple records are added
	st.RecordEvent(EventRecord{Seq: 3, Time: 1.5, Process: "item-1", Wake: "start"})
	st.RecordEvent(EventRecord{Seq: 4, Time: 1.5, Process: "item-1", Wake: "granted"})
	st.RecordTransition(TransitionRecord{Machine: "B_1", Time: 2, From: "UP", To: "DOWN", Failures: 1})

	// THEN insertion order is kept
	if st.Events[0].Seq != 3 || st.Events[1].Seq != 4 {
		t.Errorf("event order not preserved: %+v", st.Events)
	}
	if len(st.Transitions) != 1 || st.Transitions[0].Failures != 1 {
		t.Errorf("unexpected transitions: %+v", st.Transitions)
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"none", true},
		{"events", true},
		{"", true},
		{"decisions", false},
		{"EVENTS", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.want {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
