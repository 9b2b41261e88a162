package fiber

import "sync"

// defaultScheduler is the process-wide scheduler the package-level
// Create/Join/Exit/Destroy/Self/Checkpoint functions operate on, mirroring
// the original library's single global fiber_list (spec §4.7). Programs that
// want more than one independent runtime in the same process should
// construct their own *Scheduler instead.
var (
	defaultOnce      sync.Once
	defaultScheduler *Scheduler
)

// Default returns the process-wide scheduler, starting it on first use with
// DefaultConfig (spec §4.7: "at library load... before main").
func Default() *Scheduler {
	defaultOnce.Do(func() {
		defaultScheduler = NewScheduler(DefaultConfig())
		defaultScheduler.Start()
	})
	return defaultScheduler
}

// Create spawns a new fiber on the default scheduler. See Scheduler.Create.
func Create(entry func(Val), arg Val) (Fid, error) {
	return Default().Create(entry, arg)
}

// Join suspends the calling fiber until target finishes, returning its
// retval. See Scheduler.Join.
func Join(target Fid) (Val, error) {
	return Default().Join(target)
}

// Destroy reaps a FINISHED fiber. See Scheduler.Destroy.
func Destroy(id Fid) error {
	return Default().Destroy(id)
}

// Self returns the currently running fiber's id. See Scheduler.Self.
func Self() Fid {
	return Default().Self()
}

// Exit publishes val and finishes the calling fiber. Never returns.
func Exit(val Val) {
	Default().Exit(val)
}

// Checkpoint cooperatively yields to the scheduler if a time slice has
// elapsed since this fiber last ran. See Scheduler.Checkpoint.
func Checkpoint() {
	Default().Checkpoint()
}
