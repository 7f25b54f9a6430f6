//go:build unix

package mmarena

import "golang.org/x/sys/unix"

func pageSize() int {
	return unix.Getpagesize()
}

func mapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmap(mem []byte) error {
	return unix.Munmap(mem)
}
