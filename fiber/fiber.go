// Package fiber implements a user-space cooperative-preemptive threading
// library: lightweight execution contexts ("fibers") time-sliced by a virtual
// timer in round-robin order, joinable for a return value, and reclaimed once
// finished.
//
// Go gives user code no makecontext/swapcontext equivalent, so each fiber's
// machine context is realized as a goroutine parked on a resume channel; the
// scheduler is the only party that ever unparks one, and Start pins the
// process to a single logical processor so that invariant actually holds. See
// SPEC_FULL.md §4 for the full mapping from the original ucontext design.
package fiber

import "fmt"

// Status is the lifecycle state of a fiber control block.
type Status int32

const (
	// StatusReady means the fiber is eligible to run on its next turn.
	StatusReady Status = iota
	// StatusBlocked means the fiber is suspended on Join, waiting for its
	// join target to finish.
	StatusBlocked
	// StatusFinished means the fiber called Exit (or returned from its
	// entry function) and is pending reclamation by the scheduler.
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "READY"
	case StatusBlocked:
		return "BLOCKED"
	case StatusFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Val is the opaque value type carried by Create's arg, Exit's return value,
// and Join's result. The runtime never inspects it.
type Val = any

// Fid is an opaque fiber identifier: an arena index plus a generation
// counter, so a stale handle to a reaped and reused slot never resolves to
// the wrong fiber (see spec §9, "Identity of Fid").
type Fid struct {
	index int32
	gen    uint32
}

// IsZero reports whether id is the zero value (never returned by Create).
func (id Fid) IsZero() bool {
	return id.index == 0 && id.gen == 0
}

func (id Fid) String() string {
	return fmt.Sprintf("fid(%d.%d)", id.index, id.gen)
}

// fcb is the fiber control block: the per-fiber record the ring and
// scheduler operate on (spec §3).
type fcb struct {
	id   Fid
	next int32 // index, in the arena, of the successor in the ring

	status Status
	name   string

	// stackSize is the declared size of this fiber's stack. Go's runtime
	// grows goroutine stacks on demand, so fiberspace does not allocate
	// this buffer itself; the field is retained because the spec's data
	// model names it as an owned resource. It is recorded here only:
	// FiberInfo does not carry it, so fiberctl top/serve do not show it.
	stackSize int

	retval        Val
	joinTarget    int32 // arena index of the fcb this one is waiting on, -1 if none
	joinRval      Val
	joinRvalValid bool // distinguishes "no value yet" from "valid nil value"

	waitList []int32 // arena indices of fibers blocked on this one finishing

	entry func(Val)
	arg   Val

	resume    chan struct{} // scheduler -> fiber: you are now running
	suspended chan struct{} // fiber -> scheduler: I have stopped running

	sliceCount int64 // number of time slices this fiber has been granted
}
