package sim

// Process is a unit of suspendable logic driven by the Simulator.
//
// A Process keeps its own continuation point (typically a phase enum). Resume
// runs it from that point until it suspends again, and the returned Yield
// tells the kernel how: Timeout, Acquire or Done. wake reports why the process
// was resumed.
type Process interface {
	Resume(sim *Simulator, wake Wake) Yield
}

// ProcessFunc adapts a plain function to the Process interface.
type ProcessFunc func(sim *Simulator, wake Wake) Yield

// Resume calls f.
func (f ProcessFunc) Resume(sim *Simulator, wake Wake) Yield {
	return f(sim, wake)
}

type yieldKind int

const (
	yieldTimeout yieldKind = iota
	yieldAcquire
	yieldDone
	yieldPassivate
)

// Yield is the suspension request a Process hands back to the kernel.
type Yield struct {
	kind     yieldKind
	delay    float64
	resource *Resource
}

// Timeout suspends the process for a fixed simulated duration.
func Timeout(delay float64) Yield {
	return Yield{kind: yieldTimeout, delay: delay}
}

// Acquire suspends the process until it holds the token of r.
func Acquire(r *Resource) Yield {
	return Yield{kind: yieldAcquire, resource: r}
}

// Passivate parks the process with no pending event until another party
// wakes it with Simulator.Schedule.
func Passivate() Yield {
	return Yield{kind: yieldPassivate}
}

// Done ends the process. Resources it still holds are released.
func Done() Yield {
	return Yield{kind: yieldDone}
}

// ProcState is the lifecycle state of a process handle.
type ProcState int

const (
	// StateScheduled means a resumption event is pending.
	StateScheduled ProcState = iota
	// StateRunning means the process is executing Resume right now.
	StateRunning
	// StateWaiting means the process sits in a Resource queue.
	StateWaiting
	// StateIdle means the process is parked by Passivate.
	StateIdle
	// StateDone means the process returned Done.
	StateDone
	// StateCancelled means the process was destroyed with Cancel.
	StateCancelled
)

func (s ProcState) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateIdle:
		return "idle"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handle is the kernel-side identity of a spawned process.
type Handle struct {
	id      uint64
	name    string
	proc    Process
	state   ProcState
	pending *event
	// waitingOn is set while the process sits in a Resource queue.
	waitingOn *Resource
	held      []*Resource
}

// ID returns the spawn order of the process, starting at 1.
func (h *Handle) ID() uint64 { return h.id }

// Name returns the name given at spawn time.
func (h *Handle) Name() string { return h.name }

// State returns the current lifecycle state.
func (h *Handle) State() ProcState { return h.state }

// Alive reports whether the process has neither finished nor been cancelled.
func (h *Handle) Alive() bool {
	return h.state != StateDone && h.state != StateCancelled
}

func (h *Handle) holds(r *Resource) bool {
	for _, held := range h.held {
		if held == r {
			return true
		}
	}
	return false
}

func (h *Handle) drop(r *Resource) {
	for i, held := range h.held {
		if held == r {
			h.held = append(h.held[:i], h.held[i+1:]...)
			return
		}
	}
}
