package pool

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/hpcdev/xylose-sub000/internal/logger"
	"github.com/hpcdev/xylose-sub000/segvec"
)

// managed is the type-erased view of a Pool the registry keeps.
type managed interface {
	Name() string
	Stats() Stats
	Validate() error
	options() options
	close() int
}

type poolKey struct {
	typ  reflect.Type
	opts options
}

// Registry owns one pool per (element type, options) pair. Every handle
// obtained from the same registry with equal options shares a pool, and
// pools of different registries never share storage.
//
// A Registry is safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	pools map[poolKey]managed
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{pools: make(map[poolKey]managed)}
}

// For returns the pool for T in r, creating it on first use.
func For[T any](r *Registry, opts ...Option) (*Pool[T], error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	if o.segmentSize == 0 {
		o.segmentSize = segvec.PageSegmentSize[slot[T]]()
	}
	key := poolKey{typ: reflect.TypeFor[T](), opts: o}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.pools[key]; ok {
		return m.(*Pool[T]), nil
	}
	p, err := newPool[T](key.typ.String(), o)
	if err != nil {
		return nil, err
	}
	r.pools[key] = p
	logger.Debug("pool created", "type", p.name, "segment_size", o.segmentSize,
		"mode", o.mode(), "mapped", o.mapped)
	return p, nil
}

// Len returns the number of pools the registry holds.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pools)
}

// PoolStats describes one pool of a registry.
type PoolStats struct {
	Name   string
	Mode   string
	Mapped bool
	Stats
}

// Snapshot returns the statistics of every pool, ordered by name and mode.
func (r *Registry) Snapshot() []PoolStats {
	r.mu.Lock()
	ms := make([]managed, 0, len(r.pools))
	for _, m := range r.pools {
		ms = append(ms, m)
	}
	r.mu.Unlock()

	out := make([]PoolStats, 0, len(ms))
	for _, m := range ms {
		o := m.options()
		out = append(out, PoolStats{Name: m.Name(), Mode: o.mode(), Mapped: o.mapped, Stats: m.Stats()})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		if a.Mapped != b.Mapped {
			return !a.Mapped
		}
		return a.SegmentSize < b.SegmentSize
	})
	return out
}

// Validate checks the free list of every pool and joins the failures.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, m := range r.pools {
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Destroy releases every pool. Pools that still had live objects are torn
// down anyway and reported as ErrBusy; their pointers must not be used
// afterwards. Handles into destroyed pools fail with ErrClosed. The registry
// itself stays usable and creates fresh pools on demand.
func (r *Registry) Destroy() error {
	r.mu.Lock()
	pools := r.pools
	r.pools = make(map[poolKey]managed)
	r.mu.Unlock()

	var errs []error
	for _, m := range pools {
		if live := m.close(); live != 0 {
			logger.Warn("pool destroyed with live objects", "type", m.Name(), "live", live)
			errs = append(errs, fmt.Errorf("%s: %w: %d outstanding", m.Name(), ErrBusy, live))
		}
	}
	return errors.Join(errs...)
}
