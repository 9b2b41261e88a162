package fiber

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs the fiber ring: it selects the next READY fiber, reclaims
// FINISHED ones (releasing their joiners first), and drives the virtual-time
// preemption ticker. One Scheduler owns one ring; Default() returns the
// package-level instance Create/Join/Exit/Destroy/Self operate on, mirroring
// the original library's process-wide global fiber_list.
type Scheduler struct {
	cfg Config

	ring    *ring
	current *fcb // the fcb of the fiber presently running, valid only while it holds the baton

	timerEnabled   uint32 // atomic bool: preemption driver may request a handoff
	preemptPending uint32 // atomic bool: set by the ticker, cleared by Checkpoint

	stats Stats

	stopCh   chan struct{}
	drained  chan struct{} // closed when the ring empties
	started  uint32        // atomic bool
	priorGOMAXPROCS int

	subsMu sync.Mutex
	subs   []chan struct{} // notified after every context switch, for fiberctl top/serve
}

// NewScheduler creates a scheduler with the given tunables and a ring
// containing only the "main" fcb representing the calling goroutine (spec
// §4.7, runtime bootstrap). It does not start the preemption driver; call
// Start for that.
func NewScheduler(cfg Config) *Scheduler {
	cfg.Validate()

	main := &fcb{
		name:      "main",
		status:    StatusReady,
		joinTarget: noIndex,
		resume:    make(chan struct{}),
		suspended: make(chan struct{}),
	}
	r := newRing(main)
	main.id = Fid{index: 0, gen: 0}

	return &Scheduler{
		cfg:     cfg,
		ring:    r,
		current: main,
		stopCh:  make(chan struct{}),
		drained: make(chan struct{}),
	}
}

// Start pins the process to a single logical processor (spec §5: "strictly
// single-threaded on a single OS thread") and launches the scheduler loop and
// the preemption driver. It returns immediately; the caller's goroutine
// keeps running as the "main" fiber until it calls Join or Checkpoint.
func (s *Scheduler) Start() {
	if !atomic.CompareAndSwapUint32(&s.started, 0, 1) {
		return
	}
	s.priorGOMAXPROCS = runtime.GOMAXPROCS(1)
	atomic.StoreUint32(&s.timerEnabled, 1)

	go s.loop()
	go s.preemptionDriver()

	logger.Debug("scheduler started", "slice", s.cfg.Slice, "stackSize", s.cfg.StackSize)
}

// Stop halts the preemption driver and restores the prior GOMAXPROCS. It does
// not touch in-flight fibers; callers that want the spec's literal
// ring-drains-then-exit behavior should use RunUntilDrain instead.
func (s *Scheduler) Stop() {
	if !atomic.CompareAndSwapUint32(&s.started, 1, 0) {
		return
	}
	close(s.stopCh)
	runtime.GOMAXPROCS(s.priorGOMAXPROCS)
	logger.Debug("scheduler stopped")
}

// RunUntilDrain starts the scheduler (if not already started) and blocks
// until the ring empties, then stops it. This reproduces spec §4.3's literal
// "release scheduler resources and exit" behavior without the unconditional
// os.Exit(0): the caller regains control instead of the process terminating,
// per the §9 "Process-exit on ring drain" resolution recorded in DESIGN.md.
//
// The ring only reaches size 0 if the bootstrapping goroutine itself calls
// Exit once its own work is done, exactly like any other fiber - a goroutine
// that calls Join and simply returns leaves its own fcb in the ring forever,
// and RunUntilDrain never returns. This mirrors the original library, where
// "ring empties" is a property of what the program's fibers do, not something
// the scheduler can force on the caller's behalf.
func (s *Scheduler) RunUntilDrain() {
	s.Start()
	<-s.drained
	s.Stop()
}

// loop is the scheduler: it never mutates the ring while a fiber is running,
// and it is the only goroutine that ever sends on a resume channel.
func (s *Scheduler) loop() {
	for {
		select {
		case <-s.current.suspended:
		case <-s.stopCh:
			return
		}

		atomic.StoreUint32(&s.timerEnabled, 0) // halt timer: critical section begins

		candidate := s.ring.at(s.ring.next(s.ring.getRunning()))
		for candidate.status != StatusReady {
			if candidate.status == StatusFinished {
				s.release(candidate)
				candidate.waitList = nil
				atomic.AddInt64(&s.stats.fibersFinished, 1)

				nextIdx := s.ring.unlink(candidate.id.index)
				if nextIdx == noIndex {
					close(s.drained)
					return
				}
				candidate = s.ring.at(nextIdx)
				continue
			}
			if candidate.status == StatusBlocked {
				target := s.ring.at(candidate.joinTarget)
				if target.status == StatusFinished {
					candidate.status = StatusReady
					continue
				}
				candidate = s.ring.at(s.ring.next(candidate.id.index))
				continue
			}
		}

		s.ring.setRunning(candidate.id.index)
		s.current = candidate
		candidate.sliceCount++
		atomic.AddInt64(&s.stats.contextSwitches, 1)
		atomic.StoreUint32(&s.timerEnabled, 1) // re-arm for the newly running fiber

		s.notifySubscribers()
		candidate.resume <- struct{}{}
	}
}

// preemptionDriver is the virtual-time interval timer (spec §4.4). Its only
// action is to raise a flag the running fiber observes at its next
// Checkpoint call; it never touches the ring directly, matching the spec's
// requirement that the handler do nothing but trigger a context switch.
func (s *Scheduler) preemptionDriver() {
	t := time.NewTicker(s.cfg.Slice)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if atomic.LoadUint32(&s.timerEnabled) == 1 {
				atomic.StoreUint32(&s.preemptPending, 1)
			}
		case <-s.stopCh:
			return
		}
	}
}

// release wakes every still-BLOCKED waiter on finished's waitList, depositing
// finished's retval into each waiter's joinRval (spec §4.5). It is
// idempotent: an empty or already-drained list is a no-op. finished must be
// the fcb that actually transitioned to StatusFinished - never assumed to be
// whatever s.current happens to point at, since a reaped candidate during the
// scheduler's ring walk is in general not the fiber that last held the baton.
func (s *Scheduler) release(finished *fcb) {
	for _, idx := range finished.waitList {
		waiter := s.ring.at(idx)
		if waiter != nil && waiter.status == StatusBlocked {
			waiter.joinRval = finished.retval
			waiter.joinRvalValid = true
			waiter.status = StatusReady
		}
	}
}

// notifySubscribers pings every registered snapshot subscriber without
// blocking if one isn't ready to receive (fiberctl top/serve take a fresh
// Snapshot on each notification they do receive, so a dropped one is harmless).
func (s *Scheduler) notifySubscribers() {
	s.subsMu.Lock()
	subs := s.subs
	s.subsMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe returns a channel that receives a (coalesced) notification after
// every scheduler context switch, for fiberctl top/serve to redraw from.
func (s *Scheduler) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subsMu.Lock()
	s.subs = append(s.subs, ch)
	s.subsMu.Unlock()
	return ch
}

// Snapshot returns the current ring state and lifetime stats, for
// introspection tooling.
func (s *Scheduler) Snapshot() ([]FiberInfo, Snapshot) {
	return s.ring.snapshot(), s.stats.snapshot()
}

// FiberCount returns the number of live (not yet reaped) fibers, including
// main.
func (s *Scheduler) FiberCount() int {
	return s.ring.len()
}

// running reports whether the scheduler has been Started and not yet
// Stopped. Create/Join/Destroy/Exit all refuse to touch resume/suspended
// channels when this is false: with no loop goroutine to read them, a send
// on one would block its caller forever instead of failing loudly.
func (s *Scheduler) running() bool {
	return atomic.LoadUint32(&s.started) == 1
}
