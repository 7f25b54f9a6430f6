// Package pool implements a single-object allocator backed by a segmented
// vector of slots.
//
// # Overview
//
// A Pool hands out one object at a time. Slots are appended to a
// segvec.Vector, so storage never moves and a pointer stays valid until it
// is returned. Returned slots are reused before new ones are created.
//
//	reg := pool.NewRegistry()
//	a, err := pool.NewAllocator[node](reg)
//	if err != nil {
//	    return err
//	}
//	n, err := a.New(node{key: 7})
//	...
//	err = a.Delete(n)
//
// # Free list
//
// Each slot carries an offset to the next free slot. The cursor names the
// first free slot and equals the slot count when every slot is in use:
//
//	slots   [U][F][U][U][F][U]   (cursor = 1)
//	offsets     3        2       (1+3 = 4, 4+2 = 6 = end)
//
// The list is kept in ascending order. A slot returned below the cursor
// becomes the head. Any other slot is spliced in after the nearest lower
// free slot, which the used bitmap locates with a backward word scan.
//
// # Registries
//
// A Registry owns one pool per element type and option set. Every Allocator
// obtained from the same registry with equal options draws from the same
// pool; Rebind moves a handle to another element type. Destroy tears every
// pool down at once.
//
// # Modes
//
// By default Deallocate reclaims the slot. WithNoOpDealloc turns it into a
// counter decrement; memory then comes back only through Reset, which is
// cheaper for build-then-drop workloads. WithMappedSlots places slots in
// anonymous memory mappings for element types without Go pointers.
//
// # Errors
//
// Misuse is reported through errors wrapping ErrAlloc: ErrBadCount,
// ErrForeignPointer, ErrDoubleFree, ErrBusy, ErrClosed and
// ErrCorruptFreeList. A failed call leaves the pool unchanged.
//
// # Thread safety
//
// Every Pool method holds the pool mutex for its full duration, so a pool
// may be shared by any number of goroutines.
package pool
