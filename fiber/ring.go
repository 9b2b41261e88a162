package fiber

import "sync"

// ring is the circular list of all live fibers (spec §3/§4.2), backed by an
// arena (slice of *fcb) plus integer indices rather than owning pointers, per
// the spec's own note (§9, "Cyclic references"): a linked ring is inherently
// cyclic, and an arena of indices sidesteps the ownership paradox entirely.
//
// index 0 is reserved for the host thread's own fcb ("main"), created once at
// newRing. It is an ordinary ring member otherwise: if the goroutine that
// bootstrapped the scheduler calls Exit like any other fiber, index 0 is
// reaped and unlinked the same way, and the ring can reach size 0.
type ring struct {
	mu sync.Mutex

	arena []*fcb
	gen   []uint32 // generation counter per slot, bumped on release
	free  []int32  // released slots available for reuse

	head    int32
	tail    int32
	running int32
	size    int
}

const noIndex int32 = -1

func newRing(main *fcb) *ring {
	main.next = 0
	r := &ring{
		arena:   []*fcb{main},
		gen:     []uint32{0},
		head:    0,
		tail:    0,
		running: 0,
		size:    1,
	}
	return r
}

// alloc reserves a slot for a new fcb and returns its index and current
// generation. Callers must still append() the slot into ring order.
func (r *ring) alloc(f *fcb) (int32, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]
		r.arena[idx] = f
		return idx, r.gen[idx]
	}

	idx := int32(len(r.arena))
	r.arena = append(r.arena, f)
	r.gen = append(r.gen, 0)
	return idx, 0
}

// append links fcb idx in after the current tail. Precondition: idx was just
// returned by alloc and is not yet reachable from head.
func (r *ring) append(idx int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.arena[idx]
	f.next = r.head
	r.arena[r.tail].next = idx
	r.tail = idx
	r.size++
}

// unlink removes a FINISHED fcb from the ring, releases its slot for reuse,
// and returns the index of its former successor (the scheduler's cursor
// advance), or noIndex if the ring is now empty.
func (r *ring) unlink(idx int32) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	f := r.arena[idx]
	next := f.next

	prev := r.head
	for r.arena[prev].next != idx {
		prev = r.arena[prev].next
	}
	r.arena[prev].next = next

	if r.head == idx {
		r.head = next
	}
	if r.tail == idx {
		r.tail = prev
	}

	r.arena[idx] = nil
	r.gen[idx]++
	r.free = append(r.free, idx)
	r.size--

	if r.size == 0 {
		return noIndex
	}
	return next
}

// locate resolves a Fid to its fcb, validating the generation so a stale
// handle to a reaped-and-reused slot never resolves to the wrong fiber.
func (r *ring) locate(id Fid) *fcb {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id.index < 0 || int(id.index) >= len(r.arena) {
		return nil
	}
	if r.gen[id.index] != id.gen {
		return nil
	}
	return r.arena[id.index]
}

// at returns the fcb at idx without generation validation, for internal ring
// walks where the caller already holds a valid index.
func (r *ring) at(idx int32) *fcb {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arena[idx]
}

func (r *ring) next(idx int32) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.arena[idx].next
}

func (r *ring) setRunning(idx int32) {
	r.mu.Lock()
	r.running = idx
	r.mu.Unlock()
}

func (r *ring) getRunning() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// snapshot returns a point-in-time copy of every live fcb's observable state,
// in ring order starting at head, for introspection (fiberctl top/serve).
func (r *ring) snapshot() []FiberInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]FiberInfo, 0, r.size)
	if r.size == 0 {
		return out
	}
	idx := r.head
	for i := 0; i < r.size; i++ {
		f := r.arena[idx]
		out = append(out, FiberInfo{
			ID:         f.id,
			Name:       f.name,
			Status:     f.status,
			SliceCount: f.sliceCount,
			Running:    idx == r.running,
		})
		idx = f.next
	}
	return out
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}
