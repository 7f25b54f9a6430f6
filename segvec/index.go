package segvec

import (
	"fmt"
	"math"
)

// Direction selects which way Next and Add walk through linear positions.
type Direction uint8

const (
	// Forward walks toward higher linear positions.
	Forward Direction = iota
	// Reverse walks toward lower linear positions.
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// noSegment is the segment number of the "one before the first" sentinel.
const noSegment = math.MaxUint

// Index addresses an element as a (segment, position) pair within segments
// of a fixed size. Index is a value type; all operations return new values.
//
// Invariant: Position < segment size. The only value at linear position -1
// is the sentinel {Segment: MaxUint, Position: size-1}, which is both the
// zero-argument index and the reverse end.
type Index struct {
	Segment  uint
	Position uint

	size uint
	dir  Direction
}

// NewIndex returns the invalid/end sentinel for segments of the given size.
func NewIndex(size int, dir Direction) Index {
	s := checkSize(size)
	return Index{Segment: noSegment, Position: s - 1, size: s, dir: dir}
}

// IndexAt returns the index of (segment, position). position must be below size.
func IndexAt(size int, segment, position uint, dir Direction) Index {
	s := checkSize(size)
	if position >= s {
		panic(fmt.Sprintf("segvec: position %d out of range for segment size %d", position, s))
	}
	return Index{Segment: segment, Position: position, size: s, dir: dir}
}

// LinearIndex decomposes a flat 0-based offset into (n/size, n%size).
// n == -1 yields the sentinel.
func LinearIndex(size int, n int, dir Direction) Index {
	s := checkSize(size)
	return Index{size: s, dir: dir}.setLinear(n)
}

func checkSize(size int) uint {
	if size <= 0 {
		panic(fmt.Sprintf("segvec: segment size must be positive, got %d", size))
	}
	return uint(size)
}

// SegmentSize returns the segment size the index was built for.
func (x Index) SegmentSize() int { return int(x.size) }

// Direction returns the walking direction of the index.
func (x Index) Direction() Direction { return x.dir }

// Linear returns the flat 0-based position; the sentinel maps to -1.
func (x Index) Linear() int {
	// Wrapping arithmetic maps segment MaxUint onto -size.
	return int(x.Segment*x.size + x.Position)
}

// IsSentinel reports whether x is the "one before the first" position.
func (x Index) IsSentinel() bool {
	return x.Segment == noSegment
}

func (x Index) setLinear(n int) Index {
	if n < -1 {
		panic(fmt.Sprintf("segvec: linear position %d is before the reverse end", n))
	}
	if n == -1 {
		x.Segment, x.Position = noSegment, x.size-1
		return x
	}
	x.Segment = uint(n) / x.size
	x.Position = uint(n) % x.size
	return x
}

func (x Index) forwardInc() Index {
	x.Position++
	if x.Position == x.size {
		x.Position = 0
		x.Segment++
	}
	return x
}

func (x Index) forwardDec() Index {
	if x.Position == 0 {
		x.Position = x.size - 1
		x.Segment-- // 0 wraps to the sentinel segment
		return x
	}
	x.Position--
	return x
}

// Next steps one position in the index's direction.
func (x Index) Next() Index {
	if x.dir == Reverse {
		return x.forwardDec()
	}
	return x.forwardInc()
}

// Prev steps one position against the index's direction.
func (x Index) Prev() Index {
	if x.dir == Reverse {
		return x.forwardInc()
	}
	return x.forwardDec()
}

// Add moves n positions in the index's direction. Negative n moves the
// other way.
func (x Index) Add(n int) Index {
	if n < 0 {
		return x.Sub(-n)
	}
	if x.dir == Reverse {
		return x.setLinear(x.Linear() - n)
	}
	return x.setLinear(x.Linear() + n)
}

// Sub moves n positions against the index's direction.
func (x Index) Sub(n int) Index {
	if n < 0 {
		return x.Add(-n)
	}
	if x.dir == Reverse {
		return x.setLinear(x.Linear() + n)
	}
	return x.setLinear(x.Linear() - n)
}

// Distance returns the signed number of steps from o to x, so that
// o.Add(x.Distance(o)) == x. For forward indexes that is
// (x.Segment-o.Segment)*size + x.Position-o.Position.
func (x Index) Distance(o Index) int {
	x.mustMatch(o)
	d := int(x.Segment-o.Segment)*int(x.size) + int(x.Position) - int(o.Position)
	if x.dir == Reverse {
		return -d
	}
	return d
}

// Less orders indexes by (segment, position), segment most significant.
// The order is the forward linear order for both directions, with the
// sentinel sorting after every other position.
func (x Index) Less(o Index) bool {
	if x.Segment != o.Segment {
		return x.Segment < o.Segment
	}
	return x.Position < o.Position
}

// Equal reports whether x and o address the same (segment, position).
func (x Index) Equal(o Index) bool {
	return x.Segment == o.Segment && x.Position == o.Position
}

// Reverse returns x with Reverse direction.
func (x Index) Reverse() Index {
	x.dir = Reverse
	return x
}

// Forward returns x with Forward direction.
func (x Index) Forward() Index {
	x.dir = Forward
	return x
}

func (x Index) String() string {
	if x.IsSentinel() {
		return fmt.Sprintf("{rend %s}", x.dir)
	}
	return fmt.Sprintf("{%d:%d %s}", x.Segment, x.Position, x.dir)
}

func (x Index) mustMatch(o Index) {
	if x.size != o.size || x.dir != o.dir {
		panic(fmt.Sprintf("segvec: mixing index %v (size %d) with %v (size %d)", x, x.size, o, o.size))
	}
}
