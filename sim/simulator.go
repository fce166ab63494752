// sim/simulator.go
package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/linesim/sim/trace"
)

var (
	// ErrNegativeDelay is returned when a process asks for a negative or NaN timeout.
	ErrNegativeDelay = errors.New("negative delay")
	// ErrNotHolder is returned when a process releases a resource it does not hold.
	ErrNotHolder = errors.New("resource not held by caller")
	// ErrReentrantAcquire is returned when a process requests a resource it already holds.
	ErrReentrantAcquire = errors.New("resource already held by caller")
	// ErrBusy is returned when a handle that already has a pending event is scheduled again.
	ErrBusy = errors.New("process already scheduled")
)

// Simulator is the cooperative scheduler: it owns the virtual clock and the
// time-ordered queue of pending resumptions.
//
// Exactly one process runs at a time. Events scheduled for the same instant
// run in the order they were scheduled, so a fixed sequence of scheduling
// calls fed by a fixed random stream replays bit-identically.
// Not safe for concurrent use.
type Simulator struct {
	clock      float64
	queue      eventQueue
	seq        uint64
	nextID     uint64
	current    *Handle
	dispatched uint64
	live       int
	err        error
	trace      *trace.SimulationTrace
}

// NewSimulator creates a Simulator with the clock at zero.
func NewSimulator() *Simulator {
	return &Simulator{
		queue: make(eventQueue, 0),
	}
}

// SetTrace attaches a trace that records every dispatched event.
// A nil trace or a trace at TraceLevelNone records nothing.
func (sim *Simulator) SetTrace(t *trace.SimulationTrace) {
	sim.trace = t
}

// Now returns the current simulation time.
func (sim *Simulator) Now() float64 { return sim.clock }

// Current returns the process being resumed, or nil outside of a Resume call.
func (sim *Simulator) Current() *Handle { return sim.current }

// Dispatched returns the number of events executed so far.
func (sim *Simulator) Dispatched() uint64 { return sim.dispatched }

// Live returns the number of spawned processes that are neither done nor cancelled.
func (sim *Simulator) Live() int { return sim.live }

// Pending returns the number of queued events, including cancelled ones not yet discarded.
func (sim *Simulator) Pending() int { return sim.queue.Len() }

// Peek returns the time of the next live event, or +Inf if there is none.
func (sim *Simulator) Peek() float64 {
	sim.discardCancelled()
	if ev := sim.queue.peek(); ev != nil {
		return ev.time
	}
	return math.Inf(1)
}

// Spawn registers p under name and schedules its first resumption at now.
func (sim *Simulator) Spawn(name string, p Process) *Handle {
	sim.nextID++
	h := &Handle{
		id:   sim.nextID,
		name: name,
		proc: p,
	}
	sim.live++
	sim.enqueue(h, 0, WakeStart)
	logrus.Tracef("[t=%.4f] spawned %s (#%d)", sim.clock, name, h.id)
	return h
}

// Schedule inserts a resumption of h at now+delay, delivered as WakeTimeout.
// It is how a process parked by Passivate is woken; h must not already have
// a pending event, be running, or sit in a resource queue.
func (sim *Simulator) Schedule(delay float64, h *Handle) error {
	if delay < 0 || math.IsNaN(delay) {
		return fmt.Errorf("%w: %v for %s", ErrNegativeDelay, delay, h.name)
	}
	if !h.Alive() || h.state == StateRunning || h.pending != nil || h.waitingOn != nil {
		return fmt.Errorf("%w: %s is %s", ErrBusy, h.name, h.state)
	}
	sim.enqueue(h, delay, WakeTimeout)
	return nil
}

// Interrupt cuts a pending Timeout of h short and resumes h at now with
// WakeInterrupted. It reports false, doing nothing, when h is not suspended
// on a Timeout (waiting for a resource, running, finished or cancelled).
func (sim *Simulator) Interrupt(h *Handle) bool {
	if h == nil || h.state != StateScheduled || h.pending == nil || h.pending.wake != WakeTimeout {
		return false
	}
	h.pending.cancelled = true
	h.pending = nil
	sim.enqueue(h, 0, WakeInterrupted)
	logrus.Tracef("[t=%.4f] interrupted %s", sim.clock, h.name)
	return true
}

// Cancel destroys h: its pending event is dropped, it leaves any resource
// queue and every resource it holds is released.
func (sim *Simulator) Cancel(h *Handle) {
	if h == nil || !h.Alive() {
		return
	}
	if h.pending != nil {
		h.pending.cancelled = true
		h.pending = nil
	}
	if h.waitingOn != nil {
		h.waitingOn.leave(h)
	}
	sim.finish(h, StateCancelled)
}

// Run executes events in time order until the queue is empty or the next
// event is due at or after until. The clock is then moved to until.
// Pass math.Inf(1) to drain the queue.
//
// Run stops at the first kernel invariant violation and returns it.
// It may be called again to continue a stopped run.
func (sim *Simulator) Run(until float64) error {
	if math.IsNaN(until) || until < sim.clock {
		return fmt.Errorf("run horizon %v is before current time %v", until, sim.clock)
	}
	for sim.err == nil {
		sim.discardCancelled()
		next := sim.queue.peek()
		if next == nil || next.time >= until {
			break
		}
		ev := sim.queue.pop()
		sim.clock = ev.time
		sim.dispatch(ev)
	}
	if sim.err != nil {
		return sim.err
	}
	if !math.IsInf(until, 1) {
		sim.clock = until
	}
	return nil
}

func (sim *Simulator) dispatch(ev *event) {
	h := ev.target
	h.pending = nil
	h.state = StateRunning
	sim.dispatched++
	logrus.Debugf("[t=%.4f] #%d resume %s (%s)", sim.clock, ev.seq, h.name, ev.wake)
	if sim.trace != nil {
		sim.trace.RecordEvent(trace.EventRecord{
			Seq:     ev.seq,
			Time:    ev.time,
			Process: h.name,
			Wake:    ev.wake.String(),
		})
	}

	sim.current = h
	y := h.proc.Resume(sim, ev.wake)
	sim.current = nil

	if h.state == StateCancelled {
		// cancelled itself from inside Resume
		return
	}
	if err := sim.apply(h, y); err != nil {
		sim.err = fmt.Errorf("t=%v %s: %w", sim.clock, h.name, err)
	}
}

func (sim *Simulator) apply(h *Handle, y Yield) error {
	switch y.kind {
	case yieldTimeout:
		if y.delay < 0 || math.IsNaN(y.delay) {
			return fmt.Errorf("%w: %v", ErrNegativeDelay, y.delay)
		}
		sim.enqueue(h, y.delay, WakeTimeout)
	case yieldAcquire:
		return y.resource.request(sim, h)
	case yieldPassivate:
		h.state = StateIdle
	case yieldDone:
		sim.finish(h, StateDone)
	default:
		return fmt.Errorf("unknown yield kind %d", y.kind)
	}
	return nil
}

// finish releases whatever h still holds, then retires it.
func (sim *Simulator) finish(h *Handle, state ProcState) {
	for len(h.held) > 0 {
		h.held[0].release(sim, h)
	}
	h.state = state
	sim.live--
}

func (sim *Simulator) enqueue(h *Handle, delay float64, wake Wake) {
	sim.seq++
	ev := &event{
		time:   sim.clock + delay,
		seq:    sim.seq,
		target: h,
		wake:   wake,
	}
	h.pending = ev
	h.state = StateScheduled
	sim.queue.push(ev)
}

func (sim *Simulator) discardCancelled() {
	for {
		ev := sim.queue.peek()
		if ev == nil || !ev.cancelled {
			return
		}
		sim.queue.pop()
	}
}
