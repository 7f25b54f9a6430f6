//go:build !unix

package mmarena

const standardPageSize = 4096

func pageSize() int {
	return standardPageSize
}

// Without mmap the segments come from the Go heap. Alignment still holds
// because make aligns large allocations to the page size class.
func mapAnon(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmap([]byte) error {
	return nil
}
