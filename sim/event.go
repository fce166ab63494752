package sim

import "container/heap"

// Wake tells a resumed process why it was woken up.
type Wake int

const (
	// WakeStart is delivered on the first resumption of a spawned process.
	WakeStart Wake = iota
	// WakeTimeout is delivered when a Timeout elapses.
	WakeTimeout
	// WakeGranted is delivered when a requested Resource token is handed over.
	WakeGranted
	// WakeInterrupted is delivered when another process interrupted a Timeout.
	WakeInterrupted
)

func (w Wake) String() string {
	switch w {
	case WakeStart:
		return "start"
	case WakeTimeout:
		return "timeout"
	case WakeGranted:
		return "granted"
	case WakeInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// event is a pending resumption of a process.
// Ordering: time → seq (insertion order).
type event struct {
	time      float64
	seq       uint64
	target    *Handle
	wake      Wake
	cancelled bool
}

// eventQueue implements heap.Interface.
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

// Less orders by time, then by sequence number so that events scheduled for
// the same instant run in the order they were scheduled.
func (q eventQueue) Less(i, j int) bool {
	if q[i].time != q[j].time {
		return q[i].time < q[j].time
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) {
	*q = append(*q, x.(*event))
}

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[0 : n-1]
	return item
}

func (q *eventQueue) push(e *event) {
	heap.Push(q, e)
}

func (q *eventQueue) pop() *event {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*event)
}

func (q eventQueue) peek() *event {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
