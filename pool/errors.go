package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrAlloc is the root of every pool failure. A failed call leaves the
	// pool consistent; later valid calls keep working.
	ErrAlloc = errors.New("pool: allocation failed")

	// ErrBadCount indicates a request for other than exactly one object.
	ErrBadCount = fmt.Errorf("%w: only single-object requests are supported", ErrAlloc)

	// ErrForeignPointer indicates a pointer that was not handed out by the pool.
	ErrForeignPointer = fmt.Errorf("%w: pointer not owned by pool", ErrAlloc)

	// ErrDoubleFree indicates deallocation of a slot that is already free.
	ErrDoubleFree = fmt.Errorf("%w: slot already free", ErrAlloc)

	// ErrCorruptFreeList indicates the free list and the used bitmap disagree.
	ErrCorruptFreeList = fmt.Errorf("%w: free list corrupt", ErrAlloc)

	// ErrBusy indicates Reset was called while objects are outstanding.
	ErrBusy = fmt.Errorf("%w: objects still allocated", ErrAlloc)

	// ErrClosed indicates use of a pool after its registry was destroyed.
	ErrClosed = fmt.Errorf("%w: pool destroyed", ErrAlloc)

	// ErrUnbound indicates use of a zero Allocator that has no pool.
	ErrUnbound = fmt.Errorf("%w: allocator not bound to a pool", ErrAlloc)

	// ErrBadOption indicates an invalid pool option.
	ErrBadOption = errors.New("pool: invalid option")
)
