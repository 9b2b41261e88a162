package fiber

import "errors"

// Sentinel errors returned by the Scheduler API. Callers compare with
// errors.Is. They cover invalid arguments and calls on a scheduler that is
// not running; there is no sentinel for resource exhaustion or platform
// failure, and no call returns an error for either.
var (
	// ErrNotFound is returned by Join/Destroy when the id does not name a
	// fiber currently in the ring.
	ErrNotFound = errors.New("fiber: id not found in ring")

	// ErrSelfJoin is returned by Join when the target equals Self().
	ErrSelfJoin = errors.New("fiber: cannot join self")

	// ErrNotFinished is returned by Destroy when the target exists but has
	// not reached StatusFinished.
	ErrNotFinished = errors.New("fiber: fiber not finished")

	// ErrNilEntry is returned by Create when entry is nil.
	ErrNilEntry = errors.New("fiber: entry function is nil")

	// ErrSchedulerNotRunning is returned by Create/Join/Destroy when the
	// scheduler has not been Started, or has already been Stopped. Create
	// and Destroy check their arguments first, so a nil entry, an unknown
	// id or an unfinished target is reported as such instead. Exit
	// can't return it (it never returns at all); doExit instead skips the
	// handoff it would otherwise block on forever and logs a warning.
	ErrSchedulerNotRunning = errors.New("fiber: scheduler is not running")
)
