package fiber

import "sync/atomic"

// Stats tracks scheduler lifetime counters, in the spirit of the teacher's
// SchedulerStats, reused here for fiberctl top/serve telemetry rather than
// component rendering.
type Stats struct {
	fibersCreated   int64
	fibersFinished  int64
	contextSwitches int64
	joins           int64
}

// Snapshot is a point-in-time, read-only copy of Stats.
type Snapshot struct {
	FibersCreated   int64
	FibersFinished  int64
	ContextSwitches int64
	Joins           int64
}

func (s *Stats) snapshot() Snapshot {
	return Snapshot{
		FibersCreated:   atomic.LoadInt64(&s.fibersCreated),
		FibersFinished:  atomic.LoadInt64(&s.fibersFinished),
		ContextSwitches: atomic.LoadInt64(&s.contextSwitches),
		Joins:           atomic.LoadInt64(&s.joins),
	}
}

// FiberInfo is a point-in-time, read-only view of one fiber's observable
// state, used by ring.snapshot for introspection (fiberctl top/serve).
type FiberInfo struct {
	ID         Fid
	Name       string
	Status     Status
	SliceCount int64
	Running    bool
}
