// Package buf contains overflow-safe size arithmetic shared by the segment
// storage layers.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false when
// the product would overflow int or either operand is negative.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CeilDiv returns ceil(n/d) for n >= 0 and d > 0.
func CeilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n-1)/d + 1
}

// SegmentBytes returns the byte length of a segment holding count elements of
// elemSize bytes each.
//
//	n, err := buf.SegmentBytes(segmentSize, int(unsafe.Sizeof(v)))
//	if err != nil {
//	    return fmt.Errorf("segment: %w", err)
//	}
func SegmentBytes(count, elemSize int) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("non-positive element count: %d", count)
	}
	if elemSize < 0 {
		return 0, fmt.Errorf("negative element size: %d", elemSize)
	}
	total, ok := MulOverflowSafe(count, elemSize)
	if !ok {
		return 0, fmt.Errorf("overflow: count=%d * elemSize=%d", count, elemSize)
	}
	return total, nil
}

// RoundUp rounds n up to the next multiple of align (align > 0).
func RoundUp(n, align int) (int, bool) {
	if n <= 0 {
		return 0, true
	}
	blocks := CeilDiv(n, align)
	return MulOverflowSafe(blocks, align)
}
