package segvec

import (
	"fmt"
	"sort"
)

// Iterator is a random-access position in a Vector: an Index plus the
// vector it walks. The zero Iterator refers to no vector.
//
// Iterators compare equal only when they refer to the same vector; comparing
// iterators of different vectors panics.
type Iterator[T any] struct {
	v   *Vector[T]
	idx Index
}

// Iter returns an iterator over v at idx.
func Iter[T any](v *Vector[T], idx Index) Iterator[T] {
	return Iterator[T]{v: v, idx: idx}
}

// Index returns the iterator's position.
func (it Iterator[T]) Index() Index { return it.idx }

// Vector returns the vector the iterator walks.
func (it Iterator[T]) Vector() *Vector[T] { return it.v }

// Valid reports whether the iterator addresses a constructed element.
func (it Iterator[T]) Valid() bool {
	return it.v != nil && it.v.Valid(it.idx)
}

// Get returns the addressed element. It panics when the iterator is not valid.
func (it Iterator[T]) Get() T {
	return *it.Ptr()
}

// Ptr returns a pointer to the addressed element. It panics when the iterator
// is not valid.
func (it Iterator[T]) Ptr() *T {
	if it.v == nil {
		panic("segvec: dereferencing an iterator without a vector")
	}
	return it.v.Get(it.idx)
}

// Set stores x at the addressed element.
func (it Iterator[T]) Set(x T) {
	*it.Ptr() = x
}

// At returns the element n steps away, i.e. it.Add(n).Get().
func (it Iterator[T]) At(n int) T {
	return it.Add(n).Get()
}

// Next steps one position in the iterator's direction.
func (it Iterator[T]) Next() Iterator[T] {
	it.idx = it.idx.Next()
	return it
}

// Prev steps one position against the iterator's direction.
func (it Iterator[T]) Prev() Iterator[T] {
	it.idx = it.idx.Prev()
	return it
}

// Add moves n positions in the iterator's direction.
func (it Iterator[T]) Add(n int) Iterator[T] {
	it.idx = it.idx.Add(n)
	return it
}

// Sub moves n positions against the iterator's direction.
func (it Iterator[T]) Sub(n int) Iterator[T] {
	it.idx = it.idx.Sub(n)
	return it
}

// Distance returns the number of steps from o to it.
func (it Iterator[T]) Distance(o Iterator[T]) int {
	it.same(o)
	return it.idx.Distance(o.idx)
}

// Equal reports whether both iterators walk the same vector at the same position.
func (it Iterator[T]) Equal(o Iterator[T]) bool {
	it.same(o)
	return it.idx.Equal(o.idx)
}

// Less orders iterators of the same vector by their index.
func (it Iterator[T]) Less(o Iterator[T]) bool {
	it.same(o)
	return it.idx.Less(o.idx)
}

// LessEqual is Less or Equal.
func (it Iterator[T]) LessEqual(o Iterator[T]) bool {
	return it.Less(o) || it.Equal(o)
}

// Swap exchanges the elements addressed by it and o.
func (it Iterator[T]) Swap(o Iterator[T]) {
	a, b := it.Ptr(), o.Ptr()
	*a, *b = *b, *a
}

func (it Iterator[T]) same(o Iterator[T]) {
	if it.v != o.v {
		panic(fmt.Sprintf("segvec: comparing iterators of different vectors (%p, %p)", it.v, o.v))
	}
}

// rangeSorter adapts [first, first+n) to sort.Interface.
type rangeSorter[T any] struct {
	first Iterator[T]
	n     int
	cmp   func(a, b T) int
}

func (r rangeSorter[T]) Len() int { return r.n }

func (r rangeSorter[T]) Less(i, j int) bool {
	return r.cmp(r.first.At(i), r.first.At(j)) < 0
}

func (r rangeSorter[T]) Swap(i, j int) {
	r.first.Add(i).Swap(r.first.Add(j))
}

// SortRange sorts [first, last) in ascending order of cmp. Both iterators
// must walk the same vector; reverse iterators sort the range back to front.
func SortRange[T any](first, last Iterator[T], cmp func(a, b T) int) {
	n := last.Distance(first)
	if n < 0 {
		panic(fmt.Sprintf("segvec: SortRange with negative length %d", n))
	}
	sort.Sort(rangeSorter[T]{first: first, n: n, cmp: cmp})
}

// SortStableRange is SortRange keeping equal elements in their original order.
func SortStableRange[T any](first, last Iterator[T], cmp func(a, b T) int) {
	n := last.Distance(first)
	if n < 0 {
		panic(fmt.Sprintf("segvec: SortStableRange with negative length %d", n))
	}
	sort.Stable(rangeSorter[T]{first: first, n: n, cmp: cmp})
}

// SearchRange binary-searches the sorted range [first, last) for target. It
// returns the iterator at the first element not less than target and whether
// that element equals target.
func SearchRange[T any](first, last Iterator[T], target T, cmp func(a, b T) int) (Iterator[T], bool) {
	n := last.Distance(first)
	i := sort.Search(n, func(i int) bool {
		return cmp(first.At(i), target) >= 0
	})
	pos := first.Add(i)
	return pos, i < n && cmp(pos.Get(), target) == 0
}

// ForEach calls fn for every element of [first, last).
func ForEach[T any](first, last Iterator[T], fn func(*T)) {
	for it := first; !it.Equal(last); it = it.Next() {
		fn(it.Ptr())
	}
}
