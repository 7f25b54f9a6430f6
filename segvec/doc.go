// Package segvec provides a growable sequence stored in fixed-size segments,
// together with the (segment, position) index and random-access iterator
// used to walk it.
//
// # Overview
//
// A Vector never reallocates: it grows by appending whole segments and
// shrinks by releasing whole trailing segments. A pointer obtained for a live
// element therefore stays valid across any number of Push calls, which is
// what the pool allocator in package pool relies on.
//
//	v := segvec.New[int](512)
//	for i := range 10 {
//	    v.Push(i)
//	}
//	p := v.At(3)   // stays valid while more elements are pushed
//
// # Indexes
//
// An Index is a (segment, position) pair for a given segment size. Forward
// indexes walk toward higher linear positions; Reverse indexes walk toward
// lower ones and end at the sentinel {Segment: MaxUint, Position: size-1},
// which sits at linear position -1:
//
//	segment size 2:   [0:0 0:1] [1:0 1:1] [2:0 .  ]
//	Begin()            ^
//	End()                                      ^ {2:1}
//	RBegin()                             ^ {2:0}
//	REnd()            {MaxUint:1}, one before 0:0
//
// # Iterators and algorithms
//
// Iterator supports dereference, random-access arithmetic, distance and
// ordering, so generic algorithms run directly on ranges:
//
//	segvec.SortRange(v.Begin(), v.End(), cmp.Compare[int])
//	it, found := segvec.SearchRange(v.Begin(), v.End(), 42, cmp.Compare[int])
//
// # Erase semantics
//
// Erase moves the last element into the erased slot and releases the last
// seat. Indexes, iterators and pointers that referred to the previous last
// element are stale afterwards. EraseIf retests a slot after a removal
// because a different element now lives there.
//
// # Errors
//
// Out-of-range access, dereferencing an invalid iterator, comparing
// iterators of different vectors and IndexOf on a foreign pointer are
// programming errors and panic. Pointer lookups that may legitimately miss
// use Pointer or Find instead.
//
// # Thread Safety
//
// Vector, Index and Iterator are not synchronized. Callers sharing a vector
// across goroutines must provide their own locking.
package segvec
