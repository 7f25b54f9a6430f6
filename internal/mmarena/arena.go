// Package mmarena supplies segment storage from anonymous memory mappings
// instead of the Go heap. Mapped memory is invisible to the garbage
// collector, so it may only hold element types without Go pointers.
package mmarena

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/hpcdev/xylose-sub000/internal/buf"
)

var (
	// ErrPointerType indicates an element type that holds Go pointers.
	ErrPointerType = errors.New("mmarena: element type contains pointers")

	// ErrZeroSize indicates a zero-sized element type.
	ErrZeroSize = errors.New("mmarena: element type has zero size")
)

// Source hands out page-aligned segments from anonymous mappings. It
// satisfies segvec.SegmentSource.
//
// Alloc panics if the mapping fails, matching the behavior of make under
// memory exhaustion. Source is safe for concurrent use.
type Source[T any] struct {
	mu       sync.Mutex
	mappings map[unsafe.Pointer][]byte
	mapped   int
}

// New returns a Source for T. It fails when T may hold Go pointers.
func New[T any]() (*Source[T], error) {
	typ := reflect.TypeFor[T]()
	if typ.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrZeroSize, typ)
	}
	if hasPointers(typ) {
		return nil, fmt.Errorf("%w: %s", ErrPointerType, typ)
	}
	return &Source[T]{mappings: make(map[unsafe.Pointer][]byte)}, nil
}

// Alloc maps a zeroed segment of n elements.
func (s *Source[T]) Alloc(n int) []T {
	var zero T
	size, err := buf.SegmentBytes(n, int(unsafe.Sizeof(zero)))
	if err != nil {
		panic(fmt.Sprintf("mmarena: %v", err))
	}
	size, ok := buf.RoundUp(size, pageSize())
	if !ok {
		panic(fmt.Sprintf("mmarena: segment of %d elements overflows", n))
	}
	mem, err := mapAnon(size)
	if err != nil {
		panic(fmt.Sprintf("mmarena: map %d bytes: %v", size, err))
	}
	p := unsafe.Pointer(unsafe.SliceData(mem))

	s.mu.Lock()
	s.mappings[p] = mem
	s.mapped += len(mem)
	s.mu.Unlock()

	return unsafe.Slice((*T)(p), n)
}

// Free unmaps a segment returned by Alloc. Unknown segments are ignored.
func (s *Source[T]) Free(seg []T) {
	if len(seg) == 0 {
		return
	}
	p := unsafe.Pointer(unsafe.SliceData(seg))

	s.mu.Lock()
	mem, ok := s.mappings[p]
	if ok {
		delete(s.mappings, p)
		s.mapped -= len(mem)
	}
	s.mu.Unlock()

	if ok {
		if err := unmap(mem); err != nil {
			panic(fmt.Sprintf("mmarena: unmap: %v", err))
		}
	}
}

// Mapped returns the number of bytes currently mapped.
func (s *Source[T]) Mapped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapped
}

// Close unmaps every outstanding segment. Segments handed out earlier must
// not be used afterwards.
func (s *Source[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for p, mem := range s.mappings {
		if err := unmap(mem); err != nil {
			errs = append(errs, err)
		}
		delete(s.mappings, p)
	}
	s.mapped = 0
	return errors.Join(errs...)
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Slice,
		reflect.String, reflect.Interface, reflect.Chan, reflect.Func:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
