package segvec

// Stack is a LIFO on segmented storage. Pushing never moves existing
// elements, so pointers returned by Top stay valid until that element is
// popped.
type Stack[T any] struct {
	v *Vector[T]
}

// NewStack returns an empty stack with the given segment size.
func NewStack[T any](segmentSize int, opts ...Option[T]) *Stack[T] {
	return &Stack[T]{v: New[T](segmentSize, opts...)}
}

// Push adds x on top of the stack.
func (s *Stack[T]) Push(x T) { s.v.Push(x) }

// Pop removes and returns the top element. ok is false on an empty stack.
func (s *Stack[T]) Pop() (x T, ok bool) {
	if s.v.Len() == 0 {
		return x, false
	}
	return s.v.PopBack(), true
}

// Top returns a pointer to the top element, or nil on an empty stack.
func (s *Stack[T]) Top() *T {
	if s.v.Len() == 0 {
		return nil
	}
	return s.v.RBegin().Ptr()
}

// Len returns the number of elements.
func (s *Stack[T]) Len() int { return s.v.Len() }

// Empty reports whether the stack holds no elements.
func (s *Stack[T]) Empty() bool { return s.v.Len() == 0 }

// Clear drops all elements and releases the storage.
func (s *Stack[T]) Clear() { s.v.Clear() }

// Compact releases segments left empty by Pop.
func (s *Stack[T]) Compact() { s.v.Compact() }
