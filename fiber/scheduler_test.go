package fiber

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewScheduler_StartsWithOnlyMain(t *testing.T) {
	sched := newTestScheduler()
	if n := sched.FiberCount(); n != 1 {
		t.Errorf("FiberCount() on a fresh scheduler = %d, want 1 (main)", n)
	}
	if sched.Self() != (Fid{index: 0, gen: 0}) {
		t.Errorf("Self() on a fresh scheduler = %v, want the zero fid", sched.Self())
	}
}

func TestScheduler_StartStopIsIdempotent(t *testing.T) {
	sched := newTestScheduler()
	sched.Start()
	sched.Start() // second call must be a no-op, not a double-launch
	sched.Stop()
	sched.Stop() // likewise
}

func TestScheduler_SnapshotReportsLiveFibers(t *testing.T) {
	sched := newTestScheduler()
	sched.Start()
	defer sched.Stop()

	fid, err := sched.Create(func(Val) {
		select {}
	}, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	infos, _ := sched.Snapshot()
	var found bool
	for _, info := range infos {
		if info.ID == fid {
			found = true
		}
	}
	if !found {
		t.Errorf("Snapshot() did not include the newly created fiber %v: %v", fid, infos)
	}
}

func TestScheduler_StatsTrackCreateAndJoin(t *testing.T) {
	sched := newTestScheduler()
	sched.Start()
	defer sched.Stop()

	// A fiber the scheduler's ring walk finds FINISHED via the BLOCKED-branch
	// short-circuit (the only other live fiber when its joiner wakes) is left
	// unreaped until a later pass - so FibersFinished only ticks up once a
	// second fiber's scheduling forces the ring walk to revisit it. Two
	// sequential create/joins, like spec.md §8's S2, force that revisit.
	for i := 0; i < 2; i++ {
		fid, err := sched.Create(func(Val) { sched.Exit(nil) }, nil)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := sched.Join(fid); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}

	_, snap := sched.Snapshot()
	if snap.FibersCreated != 2 {
		t.Errorf("FibersCreated = %d, want 2", snap.FibersCreated)
	}
	if snap.Joins != 2 {
		t.Errorf("Joins = %d, want 2", snap.Joins)
	}
	if snap.FibersFinished < 1 {
		t.Errorf("FibersFinished = %d, want at least 1", snap.FibersFinished)
	}
}

func TestScheduler_SubscribeReceivesOnContextSwitch(t *testing.T) {
	sched := newTestScheduler()
	ch := sched.Subscribe()
	sched.Start()
	defer sched.Stop()

	fid, err := sched.Create(func(Val) { sched.Exit(nil) }, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sched.Join(fid); err != nil {
		t.Fatalf("Join: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Error("subscriber never received a notification across a full create/join cycle")
	}
}

// The following two tests drive Checkpoint directly, standing in for the
// scheduler loop by hand, so the assertion is about the channel handoff
// itself rather than timing against the real preemption ticker.

func TestScheduler_CheckpointNoopsWithoutPendingPreempt(t *testing.T) {
	sched := newTestScheduler()

	done := make(chan struct{})
	go func() {
		sched.Checkpoint()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Checkpoint blocked despite no pending preemption")
	}
}

func TestScheduler_CheckpointHandsOffAndResumes(t *testing.T) {
	sched := newTestScheduler()
	atomic.StoreUint32(&sched.preemptPending, 1)

	observedSuspend := make(chan struct{})
	go func() {
		<-sched.current.suspended // stand in for the scheduler loop
		close(observedSuspend)
		sched.current.resume <- struct{}{}
	}()

	done := make(chan struct{})
	go func() {
		sched.Checkpoint()
		close(done)
	}()

	select {
	case <-observedSuspend:
	case <-time.After(time.Second):
		t.Fatal("Checkpoint never suspended despite a pending preemption")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Checkpoint did not return once resumed")
	}

	if atomic.LoadUint32(&sched.preemptPending) != 0 {
		t.Error("Checkpoint should clear preemptPending once it acts on it")
	}
}
