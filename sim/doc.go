// Package sim provides the discrete-event simulation kernel for linesim.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - process.go: the Process interface, Yield requests and process handles
//   - event.go: pending resumptions and their deterministic ordering
//   - simulator.go: the clock, the event loop, Spawn/Interrupt/Cancel
//   - resource.go: single-capacity resources with FIFO hand-over
//
// # Processes
//
// A process is an explicit state machine. The kernel calls Resume with a Wake
// reason; the process advances to its next suspension point and returns one
// of Timeout(d), Acquire(r) or Done(). There is no goroutine per process and
// no call-stack capture: a suspended process is just a value with a phase
// field and a pending event in the queue.
//
// # Architecture
//
// The kernel knows nothing about production lines. Sub-packages build on it:
//   - sim/line/: machines with breakdown cycles, item flow, arrivals, statistics
//   - sim/experiment/: common-random-number replications and paired t-tests
//   - sim/trace/: event trace recording and export
package sim
