package pool

// Allocator is a lightweight handle on the pool for T in a registry. Copies
// share the pool; handles for other element types are derived with Rebind
// and draw from their own pools in the same registry.
//
// The zero Allocator has no pool: Allocate, Deallocate, New, Delete and Reset
// fail with ErrUnbound and the remaining methods panic. Obtain handles from
// NewAllocator.
type Allocator[T any] struct {
	pool *Pool[T]
	reg  *Registry
	opts []Option
}

// NewAllocator returns a handle on the pool for T in r.
func NewAllocator[T any](r *Registry, opts ...Option) (Allocator[T], error) {
	p, err := For[T](r, opts...)
	if err != nil {
		return Allocator[T]{}, err
	}
	return Allocator[T]{pool: p, reg: r, opts: opts}, nil
}

// Rebind returns the handle for U configured like a.
func Rebind[U, T any](a Allocator[T]) (Allocator[U], error) {
	return NewAllocator[U](a.reg, a.opts...)
}

// Pool returns the pool the handle draws from.
func (a Allocator[T]) Pool() *Pool[T] { return a.pool }

// Registry returns the registry the handle was obtained from.
func (a Allocator[T]) Registry() *Registry { return a.reg }

// Allocate returns storage for n objects; n must be 1.
func (a Allocator[T]) Allocate(n int) (*T, error) {
	if a.pool == nil {
		return nil, ErrUnbound
	}
	return a.pool.Allocate(n)
}

// Deallocate returns p to the pool; n must be 1.
func (a Allocator[T]) Deallocate(p *T, n int) error {
	if a.pool == nil {
		return ErrUnbound
	}
	return a.pool.Deallocate(p, n)
}

// New allocates one object and stores v in it.
func (a Allocator[T]) New(v T) (*T, error) {
	p, err := a.Allocate(1)
	if err != nil {
		return nil, err
	}
	a.pool.Construct(p, v)
	return p, nil
}

// Delete destroys the object at p and returns its storage.
func (a Allocator[T]) Delete(p *T) error {
	if a.pool == nil {
		return ErrUnbound
	}
	a.pool.Destroy(p)
	return a.pool.Deallocate(p, 1)
}

func (a Allocator[T]) Construct(p *T, v T) { a.pool.Construct(p, v) }
func (a Allocator[T]) Destroy(p *T)        { a.pool.Destroy(p) }
func (a Allocator[T]) Address(r *T) *T     { return a.pool.Address(r) }
func (a Allocator[T]) MaxSize() uint       { return a.pool.MaxSize() }

// Reset resets the underlying pool; see Pool.Reset.
func (a Allocator[T]) Reset(target int) error {
	if a.pool == nil {
		return ErrUnbound
	}
	return a.pool.Reset(target)
}

// Equal reports whether a and o draw from the same pool, i.e. whether
// storage obtained from one may be returned through the other.
func (a Allocator[T]) Equal(o Allocator[T]) bool { return a.pool == o.pool }
