package segvec

import "unsafe"

// PageSegmentSize returns the number of T that fit in one OS page, and at
// least 1. It is a sensible segment size when segments come from page-backed
// memory.
func PageSegmentSize[T any]() int {
	var zero T
	es := int(unsafe.Sizeof(zero))
	if es == 0 {
		return pageSize()
	}
	return max(1, pageSize()/es)
}
