package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Resource is a single-capacity seizable unit with a FIFO wait queue.
//
// The token is handed to waiters strictly in request order. A hand-over
// happens at the instant of the release, through a zero-delay event, so it
// takes its place behind everything already scheduled for that instant.
type Resource struct {
	name   string
	holder *Handle
	queue  []*Handle
	grants int
}

// NewResource creates a free Resource.
func NewResource(name string) *Resource {
	return &Resource{name: name}
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.name }

// Holder returns the process currently holding the token, or nil.
func (r *Resource) Holder() *Handle { return r.holder }

// Busy reports whether the token is held.
func (r *Resource) Busy() bool { return r.holder != nil }

// QueueLen returns the number of processes waiting for the token.
func (r *Resource) QueueLen() int { return len(r.queue) }

// Grants returns how many times the token has been handed out.
func (r *Resource) Grants() int { return r.grants }

// request enqueues h and hands the token over if the resource is free.
func (r *Resource) request(sim *Simulator, h *Handle) error {
	if r.holder == h || h.holds(r) {
		return fmt.Errorf("%w: %s already holds %s", ErrReentrantAcquire, h.name, r.name)
	}
	r.queue = append(r.queue, h)
	h.waitingOn = r
	h.state = StateWaiting
	if r.holder == nil {
		r.grantNext(sim)
	}
	return nil
}

// Release hands the token held by the running process to the next waiter.
func (r *Resource) Release(sim *Simulator) error {
	h := sim.current
	if h == nil || r.holder != h {
		name := "<kernel>"
		if h != nil {
			name = h.name
		}
		return fmt.Errorf("%w: %s does not hold %s", ErrNotHolder, name, r.name)
	}
	r.release(sim, h)
	return nil
}

func (r *Resource) release(sim *Simulator, h *Handle) {
	h.drop(r)
	r.holder = nil
	logrus.Tracef("[t=%.4f] %s released %s", sim.clock, h.name, r.name)
	r.grantNext(sim)
}

func (r *Resource) grantNext(sim *Simulator) {
	if r.holder != nil || len(r.queue) == 0 {
		return
	}
	next := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	next.waitingOn = nil
	next.held = append(next.held, r)
	r.holder = next
	r.grants++
	logrus.Tracef("[t=%.4f] %s granted %s", sim.clock, r.name, next.name)
	sim.enqueue(next, 0, WakeGranted)
}

// leave removes a waiting h from the queue without granting anything.
func (r *Resource) leave(h *Handle) {
	for i, w := range r.queue {
		if w == h {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			break
		}
	}
	h.waitingOn = nil
}
