package fiber

import (
	"runtime"
	"sync/atomic"
)

// Create allocates a new fiber, appends it to the ring READY, and spawns the
// goroutine that will run its entry function once the scheduler grants it
// the baton. It brackets its ring mutation with a timer halt/re-arm, per
// spec §4.6 and §5.
func (s *Scheduler) Create(entry func(Val), arg Val) (Fid, error) {
	if entry == nil {
		return Fid{}, ErrNilEntry
	}
	if !s.running() {
		return Fid{}, ErrSchedulerNotRunning
	}

	atomic.StoreUint32(&s.timerEnabled, 0)
	defer atomic.StoreUint32(&s.timerEnabled, 1)

	f := &fcb{
		status:     StatusReady,
		entry:      entry,
		arg:        arg,
		joinTarget: noIndex,
		stackSize:  s.cfg.StackSize,
		resume:     make(chan struct{}),
		suspended:  make(chan struct{}),
	}
	idx, gen := s.ring.alloc(f)
	f.id = Fid{index: idx, gen: gen}
	f.name = f.id.String()
	s.ring.append(idx)

	atomic.AddInt64(&s.stats.fibersCreated, 1)
	go s.runFiber(f)

	return f.id, nil
}

// runFiber is the goroutine body backing one fiber's context. It blocks
// until the scheduler first resumes it, runs the entry function, and - if
// the entry returns without calling Exit - auto-exits with a nil value.
func (s *Scheduler) runFiber(f *fcb) {
	<-f.resume
	f.entry(f.arg)
	s.doExit(f, nil)
}

// Join suspends the calling fiber until target finishes, then returns its
// retval. See spec §4.5 for the fast-path/slow-path split.
func (s *Scheduler) Join(target Fid) (Val, error) {
	if !s.running() {
		return nil, ErrSchedulerNotRunning
	}

	self := s.current
	if target == self.id {
		return nil, ErrSelfJoin
	}

	t := s.ring.locate(target)
	if t == nil {
		return nil, ErrNotFound
	}

	atomic.AddInt64(&s.stats.joins, 1)

	if t.status == StatusFinished {
		// Fast path. Capture retval before releasing so a
		// join on an already-finished target is never handed a stale
		// value - the §9 "join fast path race" resolution recorded in
		// DESIGN.md. Bracketed with the same timer halt/re-arm as the
		// slow path below: it mutates t's waitList. t itself stays in the
		// ring until the scheduler's walk or Destroy reaps it.
		atomic.StoreUint32(&s.timerEnabled, 0)
		retval := t.retval
		s.release(t)
		t.waitList = nil
		atomic.StoreUint32(&s.timerEnabled, 1)
		return retval, nil
	}

	// Slow path: park on target's wait list and hand control to the
	// scheduler.
	atomic.StoreUint32(&s.timerEnabled, 0)
	t.waitList = append(t.waitList, self.id.index)
	self.joinTarget = t.id.index
	self.status = StatusBlocked
	atomic.StoreUint32(&s.timerEnabled, 1)

	self.suspended <- struct{}{}
	<-self.resume

	// The scheduler may have woken us either through release (target reaped
	// via the ring walk's FINISHED branch, joinRvalValid set, waitList
	// already cleared) or through the BLOCKED-branch short-circuit (target
	// found FINISHED-but-not-yet-reaped; joinRvalValid left false, waitList
	// untouched). Either way, self must come off target's waitList before
	// returning - left in place, a stale entry would hand this target's
	// retval to whatever self is blocked on next time the scheduler reaps it.
	target := s.ring.at(self.joinTarget)

	var out Val
	if self.joinRvalValid {
		out = self.joinRval
	} else if target != nil {
		out = target.retval
	}
	if target != nil {
		target.waitList = removeWaiter(target.waitList, self.id.index)
	}

	self.retval = nil
	self.joinRval = nil
	self.joinRvalValid = false
	self.joinTarget = noIndex
	self.status = StatusReady

	return out, nil
}

// removeWaiter returns waitList with idx's first occurrence removed, or
// waitList unchanged if idx is not present.
func removeWaiter(waitList []int32, idx int32) []int32 {
	for i, v := range waitList {
		if v == idx {
			return append(waitList[:i], waitList[i+1:]...)
		}
	}
	return waitList
}

// Destroy reaps a FINISHED fiber. Destroying a fiber that is still READY or
// BLOCKED is a failure: the core never forcibly terminates a running fiber.
func (s *Scheduler) Destroy(id Fid) error {
	f := s.ring.locate(id)
	if f == nil {
		return ErrNotFound
	}
	if f.status != StatusFinished {
		return ErrNotFinished
	}
	if !s.running() {
		return ErrSchedulerNotRunning
	}

	atomic.StoreUint32(&s.timerEnabled, 0)
	defer atomic.StoreUint32(&s.timerEnabled, 1)

	s.ring.unlink(id.index)
	return nil
}

// Self returns the id of the fiber currently holding the baton.
func (s *Scheduler) Self() Fid {
	return s.current.id
}

// Exit publishes val as the calling fiber's return value, marks it FINISHED,
// and hands control to the scheduler. It never returns to its caller.
func (s *Scheduler) Exit(val Val) {
	s.doExit(s.current, val)
}

func (s *Scheduler) doExit(f *fcb, val Val) {
	f.retval = val
	f.status = StatusFinished
	if s.running() {
		f.suspended <- struct{}{}
	} else {
		// No loop goroutine is reading f.suspended - started, or already
		// Stopped out from under an in-flight fiber. Finish without the
		// handoff instead of blocking this goroutine forever.
		logger.Warn("fiber exiting with scheduler not running", "fiber", f.id)
	}
	runtime.Goexit()
}

// Checkpoint is the cooperative yield point fiber bodies call at loop
// back-edges. If the preemption driver has requested a handoff since this
// fiber last ran, Checkpoint suspends it and does not return until the
// scheduler resumes it again; otherwise it returns immediately. See
// SPEC_FULL.md §4 for why Go's lack of a manual context-switch primitive
// makes this cooperation point necessary.
func (s *Scheduler) Checkpoint() {
	if !atomic.CompareAndSwapUint32(&s.preemptPending, 1, 0) {
		return
	}
	f := s.current
	f.suspended <- struct{}{}
	<-f.resume
}
