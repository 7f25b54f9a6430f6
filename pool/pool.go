package pool

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/hpcdev/xylose-sub000/internal/bitset"
	"github.com/hpcdev/xylose-sub000/internal/logger"
	"github.com/hpcdev/xylose-sub000/internal/mmarena"
	"github.com/hpcdev/xylose-sub000/segvec"
)

// slot holds one pooled object. next is only meaningful while the slot is
// free: it is the distance, in slots, to the next free slot. The value must
// stay the first field so that *T and *slot[T] share an address.
type slot[T any] struct {
	value T
	next  int
}

// Pool hands out single objects of type T from segmented storage.
//
// Free slots form a singly linked list threaded through their next
// offsets and headed by the cursor; a parallel bitmap records which slots
// hold live objects. Returning a slot ahead of the cursor makes it the new
// head. Returning a slot behind the cursor splices it after the nearest
// lower free slot, found by scanning the bitmap backward, which keeps the
// list in ascending slot order.
//
// Every public method holds the pool mutex for its full duration.
type Pool[T any] struct {
	mu sync.Mutex

	name  string
	opts  options
	slots *segvec.Vector[slot[T]]
	used  bitset.Set
	next  int // first free slot; equals slots.Len() when none is free
	live  int

	mapped *mmarena.Source[slot[T]]
	closed bool

	grows  uint64
	resets uint64
}

// Stats is a point-in-time snapshot of a pool.
type Stats struct {
	Live        int    // Objects allocated and not yet deallocated
	InUse       int    // Slots marked used; exceeds Live under no-op deallocation
	Slots       int    // Slots created so far
	Capacity    int    // Slots the allocated segments can hold
	Segments    int    // Allocated storage segments
	SegmentSize int    // Slots per segment
	Grows       uint64 // Segments appended over the pool's lifetime
	Resets      uint64 // Successful Reset calls
}

// Free returns the number of slots that can be handed out without growing.
func (s Stats) Free() int { return s.Capacity - s.InUse }

func newPool[T any](name string, o options) (*Pool[T], error) {
	p := &Pool[T]{name: name, opts: o}
	if o.mapped {
		src, err := mmarena.New[slot[T]]()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadOption, err)
		}
		p.mapped = src
	}
	p.slots = p.newSlots()
	return p, nil
}

func (p *Pool[T]) newSlots() *segvec.Vector[slot[T]] {
	if p.mapped != nil {
		return segvec.New[slot[T]](p.opts.segmentSize, segvec.WithSource[slot[T]](p.mapped))
	}
	return segvec.New[slot[T]](p.opts.segmentSize)
}

// Name returns the element type name the pool was registered under.
func (p *Pool[T]) Name() string { return p.name }

// Allocate returns storage for one T. n must be 1.
func (p *Pool[T]) Allocate(n int) (*T, error) {
	if n != 1 {
		return nil, fmt.Errorf("%w: requested %d", ErrBadCount, n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	if p.next == p.slots.Len() {
		segs := p.slots.Segments()
		s := p.slots.Allocate()
		s.next = 1
		p.used.Resize(p.slots.Len())
		if p.slots.Segments() != segs {
			p.grows++
			logger.Debug("pool grew", "type", p.name,
				"segments", p.slots.Segments(), "slots", p.slots.Len())
		}
	}

	i := p.next
	s := p.slots.At(i)
	p.next += s.next
	p.used.Set(i)
	p.live++
	return &s.value, nil
}

// Deallocate returns ptr to the pool. n must be 1. The slot's value is
// zeroed so the pool does not keep its references alive.
func (p *Pool[T]) Deallocate(ptr *T, n int) error {
	if n != 1 {
		return fmt.Errorf("%w: released %d", ErrBadCount, n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	p.live--
	if p.opts.noOpDealloc {
		return nil
	}

	idx, ok := p.slots.FindAddr(uintptr(unsafe.Pointer(ptr)))
	if !ok {
		p.live++
		return fmt.Errorf("%w: %p", ErrForeignPointer, ptr)
	}
	i := idx.Linear()
	s := p.slots.At(i)
	if !p.used.Test(i) {
		p.live++
		logger.Warn("pool double free", "type", p.name, "slot", i)
		return fmt.Errorf("%w: slot %d", ErrDoubleFree, i)
	}

	if i < p.next {
		s.next = p.next - i
		p.next = i
	} else {
		j, ok := p.used.PrevClear(i)
		if !ok {
			p.live++
			logger.Error("pool free list corrupt", "type", p.name, "slot", i, "cursor", p.next)
			return fmt.Errorf("%w: no free slot below %d", ErrCorruptFreeList, i)
		}
		prev := p.slots.At(j)
		d := i - j
		s.next = prev.next - d
		prev.next = d
	}

	var zero T
	s.value = zero
	p.used.Clear(i)
	return nil
}

// Reset returns every slot to the free list. It refuses to run while objects
// are outstanding. A non-negative target replaces the storage with fresh
// segments pre-filled with exactly target free slots; a negative target
// keeps the current slots.
func (p *Pool[T]) Reset(target int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.live != 0 {
		logger.Warn("pool reset refused", "type", p.name, "live", p.live)
		return fmt.Errorf("%w: %d outstanding", ErrBusy, p.live)
	}

	if target >= 0 {
		fresh := p.newSlots()
		fresh.Reserve(target)
		for range target {
			fresh.Allocate().next = 1
		}
		p.slots.Clear()
		p.slots = fresh
		p.used = bitset.Set{}
		p.used.Resize(target)
	} else {
		var zero T
		for _, s := range p.slots.All() {
			s.value = zero
			s.next = 1
		}
		p.used.Reset()
	}
	p.next = 0
	p.resets++
	logger.Debug("pool reset", "type", p.name, "slots", p.slots.Len(), "target", target)
	return nil
}

// Validate walks the free list and checks it against the used bitmap.
func (p *Pool[T]) Validate() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.slots.Len()
	if p.used.Len() != n {
		return fmt.Errorf("%w: bitmap holds %d bits for %d slots", ErrCorruptFreeList, p.used.Len(), n)
	}
	if lo, ok := p.used.NextClear(0); (ok && lo != p.next) || (!ok && p.next != n) {
		return fmt.Errorf("%w: cursor %d is not the lowest free slot", ErrCorruptFreeList, p.next)
	}
	free := 0
	i := p.next
	for i < n {
		if p.used.Test(i) {
			return fmt.Errorf("%w: used slot %d on free list", ErrCorruptFreeList, i)
		}
		step := p.slots.At(i).next
		if step <= 0 {
			return fmt.Errorf("%w: slot %d has offset %d", ErrCorruptFreeList, i, step)
		}
		free++
		i += step
	}
	if i != n {
		return fmt.Errorf("%w: list ends at %d, want %d", ErrCorruptFreeList, i, n)
	}
	if inUse := p.used.Count(); free+inUse != n {
		return fmt.Errorf("%w: %d free + %d used != %d slots", ErrCorruptFreeList, free, inUse, n)
	}
	if !p.opts.noOpDealloc && p.used.Count() != p.live {
		return fmt.Errorf("%w: %d used bits for %d live objects", ErrCorruptFreeList, p.used.Count(), p.live)
	}
	return nil
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Live:        p.live,
		InUse:       p.used.Count(),
		Slots:       p.slots.Len(),
		Capacity:    p.slots.Cap(),
		Segments:    p.slots.Segments(),
		SegmentSize: p.slots.SegmentSize(),
		Grows:       p.grows,
		Resets:      p.resets,
	}
}

// Owns reports whether ptr addresses a slot of this pool.
func (p *Pool[T]) Owns(ptr *T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.slots.FindAddr(uintptr(unsafe.Pointer(ptr)))
	return ok
}

// Construct stores v in the storage at ptr.
func (p *Pool[T]) Construct(ptr *T, v T) { *ptr = v }

// Destroy resets the object at ptr to its zero value.
func (p *Pool[T]) Destroy(ptr *T) {
	var zero T
	*ptr = zero
}

// Address returns the address of the object r refers to.
func (p *Pool[T]) Address(r *T) *T { return r }

// MaxSize returns the largest object count that could in theory be requested.
func (p *Pool[T]) MaxSize() uint {
	var zero T
	es := unsafe.Sizeof(zero)
	if es == 0 {
		return math.MaxUint
	}
	return math.MaxUint / uint(es)
}

// close releases the storage. Handles still referencing the pool fail with
// ErrClosed afterwards. It returns the number of objects that were live.
func (p *Pool[T]) close() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	live := p.live
	p.slots.Clear()
	p.used = bitset.Set{}
	p.next, p.live = 0, 0
	p.closed = true
	if p.mapped != nil {
		if err := p.mapped.Close(); err != nil {
			logger.Error("pool unmap failed", "type", p.name, "err", err)
		}
	}
	return live
}

func (p *Pool[T]) options() options { return p.opts }
