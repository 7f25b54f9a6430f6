package segvec

import (
	"math"
	"math/rand"
	"slices"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fill returns a vector with segment size segSize holding 0..n-1.
func fill(t testing.TB, segSize, n int) *Vector[int] {
	t.Helper()
	v := New[int](segSize)
	for i := range n {
		v.Push(i)
	}
	require.Equal(t, n, v.Len())
	return v
}

func TestVector_PushAndEnd(t *testing.T) {
	v := fill(t, 2, 10)
	require.Equal(t, 10, v.Len())
	require.Equal(t, 10, v.Cap())
	require.Equal(t, 5, v.Segments())

	end := v.End().Index()
	require.Equal(t, uint(5), end.Segment)
	require.Equal(t, uint(0), end.Position)

	for i := range 10 {
		require.Equal(t, i, *v.At(i))
	}
}

func TestVector_EmptyState(t *testing.T) {
	v := New[string](8)
	require.Zero(t, v.Len())
	require.Zero(t, v.Cap())
	require.Zero(t, v.Segments())
	require.True(t, v.Begin().Equal(v.End()))
	require.True(t, v.RBegin().Equal(v.REnd()))
	require.False(t, v.Begin().Valid())
}

func TestVector_SizeInvariantUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	v := New[int](7)
	want := 0
	for step := range 5000 {
		if want > 0 && rng.Intn(3) == 0 {
			v.Erase(v.LinearIndex(rng.Intn(want)), nil)
			want--
		} else {
			v.Push(step)
			want++
		}
		require.Equal(t, want, v.Len(), "step %d", step)
		require.LessOrEqual(t, v.Len(), v.Cap())
	}
}

func TestVector_PointerStability(t *testing.T) {
	v := New[int](4)
	v.Push(100)
	p := v.Pointer(v.LinearIndex(0))
	require.NotNil(t, p)

	for i := range 10_000 {
		v.Push(i)
	}
	require.Same(t, p, v.At(0), "segments must never move")
	require.Equal(t, 100, *p)
}

func TestVector_IterationMatchesIndexing(t *testing.T) {
	v := fill(t, 3, 11)
	i := 0
	for it := v.Begin(); !it.Equal(v.End()); it = it.Next() {
		require.Equal(t, *v.At(i), it.Get())
		i++
	}
	require.Equal(t, v.Len(), i)

	require.Equal(t, v.Len(), v.End().Distance(v.Begin()))
	require.Equal(t, v.Len(), v.REnd().Distance(v.RBegin()))

	var backward []int
	for _, p := range v.Backward() {
		backward = append(backward, *p)
	}
	forward := slices.Collect(v.Values())
	slices.Reverse(forward)
	require.Equal(t, forward, backward)
}

func TestVector_EraseMovesLastIntoHole(t *testing.T) {
	v := fill(t, 2, 4)
	v.Erase(v.IndexAt(0, 1), nil)

	require.Equal(t, 3, v.Len())
	require.Equal(t, 3, *v.Get(v.IndexAt(0, 1)))
	require.Equal(t, []int{0, 3, 2}, slices.Collect(v.Values()))
}

func TestVector_EraseLastElement(t *testing.T) {
	v := fill(t, 2, 3)
	v.Erase(v.LinearIndex(2), nil)
	require.Equal(t, []int{0, 1}, slices.Collect(v.Values()))
	require.Nil(t, v.Pointer(v.LinearIndex(2)))
}

func TestVector_EraseRetreatsFreeSegment(t *testing.T) {
	v := fill(t, 2, 5)
	v.Erase(v.LinearIndex(0), nil)
	require.Equal(t, 4, v.Len())
	require.Equal(t, 4, *v.At(0))

	// The last element now lives in segment 1; erasing pulls the cursor
	// back across the empty segment 2.
	v.Erase(v.LinearIndex(0), nil)
	require.Equal(t, 3, v.Len())
	require.Equal(t, []int{3, 1, 2}, slices.Collect(v.Values()))
	end := v.End().Index()
	require.Equal(t, uint(1), end.Segment)
	require.Equal(t, uint(1), end.Position)

	v.Push(9)
	v.Push(10)
	require.Equal(t, []int{3, 1, 2, 9, 10}, slices.Collect(v.Values()))
	require.Equal(t, 3, v.Segments(), "refilling reuses the released seats")
}

func TestVector_EraseCallsDestroy(t *testing.T) {
	v := fill(t, 4, 6)
	var destroyed []int
	v.Erase(v.LinearIndex(2), func(p *int) { destroyed = append(destroyed, *p) })
	require.Equal(t, []int{2}, destroyed)
}

func TestVector_EraseIf(t *testing.T) {
	v := fill(t, 3, 20)
	destroyed := 0
	n := v.EraseIf(func(p *int) bool { return *p%2 == 0 }, func(*int) { destroyed++ })
	require.Equal(t, 10, n)
	require.Equal(t, 10, destroyed)
	require.Equal(t, 10, v.Len())
	for x := range v.Values() {
		require.Equal(t, 1, x%2, "even value %d survived", x)
	}
}

func TestVector_EraseIfAll(t *testing.T) {
	v := fill(t, 2, 9)
	require.Equal(t, 9, v.EraseIf(func(*int) bool { return true }, nil))
	require.Zero(t, v.Len())
	require.Equal(t, 5, v.Segments(), "erase keeps segments until Compact")
	v.Compact()
	require.Zero(t, v.Segments())
}

func TestVector_PopBack(t *testing.T) {
	v := fill(t, 2, 3)
	require.Equal(t, 2, v.PopBack())
	require.Equal(t, 1, v.PopBack())
	require.Equal(t, 1, v.Len())
	v.PopBack()
	require.Panics(t, func() { v.PopBack() })
}

func TestVector_Clear(t *testing.T) {
	src := &countingSource[int]{}
	v := New[int](4, WithSource[int](src))
	for i := range 10 {
		v.Push(i)
	}
	require.Equal(t, 3, src.allocs)

	v.Clear()
	require.Zero(t, v.Len())
	require.Zero(t, v.Cap())
	require.Equal(t, 3, src.frees)

	v.Push(1)
	require.Equal(t, 1, v.Len())
}

func TestVector_Compact(t *testing.T) {
	src := &countingSource[int]{}
	v := New[int](2, WithSource[int](src))
	for i := range 5 {
		v.Push(i)
	}
	v.PopBack()
	v.PopBack()
	v.PopBack()
	require.Equal(t, 2, v.Len())
	require.Equal(t, 3, v.Segments())

	v.Compact()
	require.Equal(t, 1, v.Segments())
	require.Equal(t, 2, v.Cap())
	require.Equal(t, 2, src.frees)
	require.Equal(t, []int{0, 1}, slices.Collect(v.Values()))

	// Compacting a vector without empty trailing segments is a no-op.
	v.Compact()
	require.Equal(t, 1, v.Segments())
}

func TestVector_Reserve(t *testing.T) {
	v := New[int](2)
	v.Reserve(5)
	require.Equal(t, 3, v.Segments())
	require.Equal(t, 6, v.Cap())
	require.Zero(t, v.Len())

	v.Reserve(1)
	require.Equal(t, 3, v.Segments(), "Reserve never shrinks")

	for i := range 6 {
		v.Push(i)
	}
	require.Equal(t, 3, v.Segments(), "pushes fill reserved segments first")
	v.Push(6)
	require.Equal(t, 4, v.Segments())
}

func TestVector_ReserveRejectsBadCounts(t *testing.T) {
	v := New[int](4)
	require.Panics(t, func() { v.Reserve(-1) })
	require.Panics(t, func() { v.Reserve(math.MaxInt) })
	require.Zero(t, v.Segments())
}

func TestVector_ZeroValuePanics(t *testing.T) {
	var v Vector[int]
	require.PanicsWithValue(t, "segvec: use of zero Vector; construct it with New", func() { v.Push(1) })
}

func TestVector_IndexOf(t *testing.T) {
	v := fill(t, 4, 13)
	for i := range 13 {
		idx := v.IndexOf(v.At(i))
		require.Equal(t, i, idx.Linear())
	}

	var x int
	_, ok := v.Find(&x)
	require.False(t, ok)
	_, ok = v.Find(nil)
	require.False(t, ok)
	require.Panics(t, func() { v.IndexOf(&x) })
}

func TestVector_FindSkipsUnconstructedSeats(t *testing.T) {
	v := fill(t, 4, 6)
	v.Reserve(12)

	// Seats 6 and 7 belong to the active segment but hold no element yet.
	spare := unsafe.Add(unsafe.Pointer(v.At(5)), unsafe.Sizeof(int(0)))
	_, ok := v.FindAddr(uintptr(spare))
	require.False(t, ok)
	_, ok = v.Find((*int)(spare))
	require.False(t, ok)

	// Misaligned addresses inside a constructed element are rejected too.
	_, ok = v.FindAddr(uintptr(unsafe.Pointer(v.At(2))) + 1)
	require.False(t, ok)

	v.Push(6)
	idx, ok := v.Find((*int)(spare))
	require.True(t, ok)
	require.Equal(t, 6, idx.Linear())
}

func TestVector_Accessors(t *testing.T) {
	v := fill(t, 4, 5)
	require.Nil(t, v.Pointer(v.LinearIndex(5)))
	require.Nil(t, v.Pointer(NewIndex(4, Forward)))
	require.Nil(t, v.Pointer(LinearIndex(8, 1, Forward)), "foreign geometry is never valid")
	require.Panics(t, func() { v.Get(v.LinearIndex(5)) })
	require.Panics(t, func() { v.At(-1) })
	require.Panics(t, func() { v.At(5) })

	*v.Get(v.IndexAt(1, 0)) = 40
	require.Equal(t, 40, *v.At(4))
}

func TestVector_Swap(t *testing.T) {
	a := fill(t, 2, 3)
	b := fill(t, 2, 5)
	pa := a.At(0)
	a.Swap(b)
	require.Equal(t, 5, a.Len())
	require.Equal(t, 3, b.Len())
	require.Same(t, pa, b.At(0), "swap exchanges storage without copying")
}

func TestVector_Clone(t *testing.T) {
	v := fill(t, 2, 5)
	v.Reserve(20)
	c := v.Clone()

	require.Equal(t, slices.Collect(v.Values()), slices.Collect(c.Values()))
	require.Equal(t, 3, c.Segments(), "only segments holding elements are copied")
	require.NotSame(t, v.At(0), c.At(0))

	*c.At(0) = 99
	require.Equal(t, 0, *v.At(0))

	c.Push(5)
	require.Equal(t, []int{99, 1, 2, 3, 4, 5}, slices.Collect(c.Values()))
	require.Equal(t, []int{0, 1, 2, 3, 4}, slices.Collect(v.Values()))
}

func TestVector_CopyFrom(t *testing.T) {
	dst := fill(t, 3, 10)
	src := fill(t, 3, 4)
	dst.CopyFrom(src)
	require.Equal(t, []int{0, 1, 2, 3}, slices.Collect(dst.Values()))
	require.Equal(t, 2, dst.Segments())

	dst.CopyFrom(dst)
	assert.Equal(t, 4, dst.Len())

	require.Panics(t, func() { dst.CopyFrom(New[int](2)) })
}

func TestVector_IteratorEarlyExit(t *testing.T) {
	v := fill(t, 2, 10)
	seen := 0
	for range v.All() {
		seen++
		if seen == 3 {
			break
		}
	}
	require.Equal(t, 3, seen)

	seen = 0
	for range v.Values() {
		seen++
		if seen == 4 {
			break
		}
	}
	require.Equal(t, 4, seen)
}

func TestPageSegmentSize(t *testing.T) {
	n := PageSegmentSize[[64]byte]()
	require.Positive(t, n)
	require.Equal(t, pageSize()/64, n)
	require.Equal(t, 1, PageSegmentSize[[1 << 20]byte]())
}

type countingSource[T any] struct {
	allocs, frees int
}

func (s *countingSource[T]) Alloc(n int) []T {
	s.allocs++
	return make([]T, n)
}

func (s *countingSource[T]) Free([]T) { s.frees++ }

func BenchmarkVector_Push(b *testing.B) {
	for range b.N {
		v := New[int](1024)
		for i := range 1 << 14 {
			v.Push(i)
		}
	}
}

func BenchmarkVector_Iterate(b *testing.B) {
	v := fill(b, 1024, 1<<16)
	b.ResetTimer()
	for range b.N {
		sum := 0
		for x := range v.Values() {
			sum += x
		}
		_ = sum
	}
}
