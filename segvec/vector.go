package segvec

import (
	"fmt"
	"iter"
	"unsafe"

	"github.com/hpcdev/xylose-sub000/internal/buf"
)

// SegmentSource supplies and reclaims the fixed-size blocks a Vector stores
// its elements in. Alloc must return a zeroed slice of exactly n elements
// whose backing array never moves.
type SegmentSource[T any] interface {
	Alloc(n int) []T
	Free(seg []T)
}

// heapSource allocates segments on the Go heap and leaves reclamation to the GC.
type heapSource[T any] struct{}

func (heapSource[T]) Alloc(n int) []T { return make([]T, n) }
func (heapSource[T]) Free([]T)        {}

// Option configures a Vector.
type Option[T any] func(*Vector[T])

// WithSource makes the vector take its segments from src instead of the Go heap.
func WithSource[T any](src SegmentSource[T]) Option[T] {
	return func(v *Vector[T]) {
		if src != nil {
			v.src = src
		}
	}
}

// Vector is a growable sequence stored in fixed-size segments. Segments are
// only ever appended or released whole from the end, so a pointer to a live
// element stays valid across any number of Push calls.
//
// Erase fills the hole with the last element instead of shifting, which
// changes the identity of "the last element": indexes, iterators and
// pointers that referred to it are stale afterwards.
//
// The zero Vector is not usable; construct one with New.
//
// NOT thread-safe.
type Vector[T any] struct {
	size     uint
	segments [][]T
	// seats[i] is the number of constructed leading elements of segments[i].
	seats []uint
	// ffs is the first segment that is not full. Every segment below it is
	// full and every segment above it is empty.
	ffs uint
	src SegmentSource[T]
}

// New returns an empty vector with the given segment size. No segment is
// allocated until the first element is added.
func New[T any](segmentSize int, opts ...Option[T]) *Vector[T] {
	v := &Vector[T]{size: checkSize(segmentSize), src: heapSource[T]{}}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SegmentSize returns the number of elements per segment.
func (v *Vector[T]) SegmentSize() int { return int(v.size) }

// Segments returns the number of allocated segments.
func (v *Vector[T]) Segments() int { return len(v.segments) }

// Len returns the number of constructed elements.
func (v *Vector[T]) Len() int {
	return int(v.ffs*v.size + v.seat(v.ffs))
}

// Cap returns the number of elements the allocated segments can hold.
func (v *Vector[T]) Cap() int {
	return len(v.segments) * int(v.size)
}

func (v *Vector[T]) seat(i uint) uint {
	if i < uint(len(v.seats)) {
		return v.seats[i]
	}
	return 0
}

func (v *Vector[T]) appendSegment() {
	if v.size == 0 {
		panic("segvec: use of zero Vector; construct it with New")
	}
	if _, ok := buf.AddOverflowSafe(len(v.segments)*int(v.size), int(v.size)); !ok {
		panic("segvec: capacity overflows int")
	}
	seg := v.src.Alloc(int(v.size))
	if uint(len(seg)) != v.size {
		panic(fmt.Sprintf("segvec: segment source returned %d elements, want %d", len(seg), v.size))
	}
	v.segments = append(v.segments, seg)
	v.seats = append(v.seats, 0)
}

// Allocate reserves the next seat and returns a pointer to its zeroed
// storage. A new segment is appended when the active one is full.
func (v *Vector[T]) Allocate() *T {
	if v.ffs == uint(len(v.segments)) {
		v.appendSegment()
	}
	s := v.ffs
	p := &v.segments[s][v.seats[s]]
	v.seats[s]++
	if v.seats[s] == v.size {
		v.ffs++
	}
	return p
}

// Push appends a copy of x.
func (v *Vector[T]) Push(x T) {
	*v.Allocate() = x
}

// IndexAt returns the forward index of (segment, position) for this vector's geometry.
func (v *Vector[T]) IndexAt(segment, position uint) Index {
	return IndexAt(int(v.size), segment, position, Forward)
}

// LinearIndex returns the forward index of the n-th element.
func (v *Vector[T]) LinearIndex(n int) Index {
	return LinearIndex(int(v.size), n, Forward)
}

// Valid reports whether idx addresses a constructed element.
func (v *Vector[T]) Valid(idx Index) bool {
	return idx.size == v.size &&
		idx.Segment < uint(len(v.segments)) &&
		idx.Position < v.seats[idx.Segment]
}

// Get returns a pointer to the element at idx. It panics when idx does not
// address a constructed element.
func (v *Vector[T]) Get(idx Index) *T {
	if !v.Valid(idx) {
		panic(fmt.Sprintf("segvec: index %v out of range (len %d)", idx, v.Len()))
	}
	return &v.segments[idx.Segment][idx.Position]
}

// Pointer is like Get but returns nil for an invalid index.
func (v *Vector[T]) Pointer(idx Index) *T {
	if !v.Valid(idx) {
		return nil
	}
	return &v.segments[idx.Segment][idx.Position]
}

// At returns a pointer to the n-th element, panicking when n is out of range.
func (v *Vector[T]) At(n int) *T {
	if n < 0 || n >= v.Len() {
		panic(fmt.Sprintf("segvec: position %d out of range (len %d)", n, v.Len()))
	}
	return v.Get(v.LinearIndex(n))
}

// Begin returns an iterator at the first element.
func (v *Vector[T]) Begin() Iterator[T] {
	return Iterator[T]{v: v, idx: IndexAt(int(v.size), 0, 0, Forward)}
}

// End returns an iterator one past the last element.
func (v *Vector[T]) End() Iterator[T] {
	return Iterator[T]{v: v, idx: v.endIndex()}
}

// RBegin returns a reverse iterator at the last element.
func (v *Vector[T]) RBegin() Iterator[T] {
	return Iterator[T]{v: v, idx: LinearIndex(int(v.size), v.Len()-1, Reverse)}
}

// REnd returns a reverse iterator one before the first element.
func (v *Vector[T]) REnd() Iterator[T] {
	return Iterator[T]{v: v, idx: NewIndex(int(v.size), Reverse)}
}

func (v *Vector[T]) endIndex() Index {
	return Index{Segment: v.ffs, Position: v.seat(v.ffs), size: v.size, dir: Forward}
}

// Erase removes the element at idx. destroy, when non-nil, is called on the
// element first. The last element is then moved into the hole and the seat
// it occupied is released.
func (v *Vector[T]) Erase(idx Index, destroy func(*T)) {
	p := v.Get(idx)
	if destroy != nil {
		destroy(p)
	}
	var zero T
	*p = zero

	s := int(v.ffs)
	if s >= len(v.segments) {
		s = len(v.segments) - 1
	}
	for v.seats[s] == 0 {
		s--
	}
	last := v.seats[s] - 1
	if uint(s) != idx.Segment || last != idx.Position {
		*p = v.segments[s][last]
		v.segments[s][last] = zero
	}
	v.seats[s]--
	v.ffs = uint(s)
}

// EraseIf removes every element for which pred returns true and reports how
// many were removed. A slot is tested again after a removal because Erase
// moves another element into it.
func (v *Vector[T]) EraseIf(pred func(*T) bool, destroy func(*T)) int {
	removed := 0
	for i := 0; i < v.Len(); {
		idx := v.LinearIndex(i)
		if pred(v.Get(idx)) {
			v.Erase(idx, destroy)
			removed++
			continue
		}
		i++
	}
	return removed
}

// PopBack removes and returns the last element. It panics on an empty vector.
func (v *Vector[T]) PopBack() T {
	n := v.Len()
	if n == 0 {
		panic("segvec: PopBack on empty vector")
	}
	idx := v.LinearIndex(n - 1)
	x := *v.Get(idx)
	v.Erase(idx, nil)
	return x
}

// Clear drops every element and releases every segment.
func (v *Vector[T]) Clear() {
	for i, seg := range v.segments {
		clear(seg[:v.seats[i]])
		v.src.Free(seg)
	}
	v.segments = nil
	v.seats = nil
	v.ffs = 0
}

// Compact releases trailing segments that hold no elements.
func (v *Vector[T]) Compact() {
	for n := len(v.segments); n > 0 && v.seats[n-1] == 0; n-- {
		v.src.Free(v.segments[n-1])
		v.segments[n-1] = nil
		v.segments = v.segments[:n-1]
		v.seats = v.seats[:n-1]
	}
}

// Reserve makes sure at least ceil(n/SegmentSize) segments exist. It never
// releases segments. It panics when n is negative or the capacity would not
// fit in an int.
func (v *Vector[T]) Reserve(n int) {
	if n < 0 {
		panic(fmt.Sprintf("segvec: Reserve(%d) with negative count", n))
	}
	need := buf.CeilDiv(n, int(v.size))
	if _, ok := buf.MulOverflowSafe(need, int(v.size)); !ok {
		panic(fmt.Sprintf("segvec: Reserve(%d) overflows capacity", n))
	}
	for len(v.segments) < need {
		v.appendSegment()
	}
}

// Find maps a pointer to one of this vector's elements back to its index.
// ok is false when p does not point at a constructed element.
func (v *Vector[T]) Find(p *T) (idx Index, ok bool) {
	return v.FindAddr(uintptr(unsafe.Pointer(p)))
}

// FindAddr is Find for a raw address. Callers holding a pointer of another
// type use it to test ownership before converting the pointer.
func (v *Vector[T]) FindAddr(addr uintptr) (idx Index, ok bool) {
	var zero T
	es := unsafe.Sizeof(zero)
	if addr == 0 || es == 0 {
		return Index{}, false
	}
	span := uintptr(v.size) * es
	for i, seg := range v.segments {
		base := uintptr(unsafe.Pointer(unsafe.SliceData(seg)))
		if addr < base || addr >= base+span {
			continue
		}
		off := addr - base
		pos := uint(off / es)
		if off%es != 0 || pos >= v.seats[i] {
			return Index{}, false
		}
		return Index{Segment: uint(i), Position: pos, size: v.size, dir: Forward}, true
	}
	return Index{}, false
}

// IndexOf is like Find but panics when p does not belong to the vector.
func (v *Vector[T]) IndexOf(p *T) Index {
	idx, ok := v.Find(p)
	if !ok {
		panic(fmt.Sprintf("segvec: pointer %p is not owned by this vector", p))
	}
	return idx
}

// Swap exchanges the contents of v and o in constant time.
func (v *Vector[T]) Swap(o *Vector[T]) {
	*v, *o = *o, *v
}

// Clone returns a copy of v with freshly allocated segments. Elements are
// copied by assignment and segment boundaries are preserved.
func (v *Vector[T]) Clone() *Vector[T] {
	c := &Vector[T]{size: v.size, src: v.src}
	c.copyFrom(v)
	return c
}

// CopyFrom replaces the contents of v with a copy of o. Both vectors must
// share a segment size.
func (v *Vector[T]) CopyFrom(o *Vector[T]) {
	if v == o {
		return
	}
	if v.size != o.size {
		panic(fmt.Sprintf("segvec: CopyFrom between segment sizes %d and %d", o.size, v.size))
	}
	v.Clear()
	v.copyFrom(o)
}

func (v *Vector[T]) copyFrom(o *Vector[T]) {
	used := int(o.ffs)
	if o.seat(o.ffs) > 0 {
		used++
	}
	for i := range used {
		v.appendSegment()
		copy(v.segments[i], o.segments[i][:o.seats[i]])
		v.seats[i] = o.seats[i]
	}
	v.ffs = o.ffs
}

// All yields every element with its index in forward order.
func (v *Vector[T]) All() iter.Seq2[Index, *T] {
	return func(yield func(Index, *T) bool) {
		for s := range v.segments {
			seg := v.segments[s]
			for p := uint(0); p < v.seats[s]; p++ {
				if !yield(v.IndexAt(uint(s), p), &seg[p]) {
					return
				}
			}
		}
	}
}

// Backward yields every element with its reverse index, last element first.
func (v *Vector[T]) Backward() iter.Seq2[Index, *T] {
	return func(yield func(Index, *T) bool) {
		for it, end := v.RBegin(), v.REnd(); !it.Equal(end); it = it.Next() {
			if !yield(it.Index(), it.Ptr()) {
				return
			}
		}
	}
}

// Values yields a copy of every element in forward order.
func (v *Vector[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, p := range v.All() {
			if !yield(*p) {
				return
			}
		}
	}
}
