//go:build !unix

package segvec

const standardPageSize = 4096

func pageSize() int {
	return standardPageSize
}
