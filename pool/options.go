package pool

import "fmt"

// Option configures a pool obtained from a Registry. Pools are shared per
// element type and option set: two requests with equal options get the
// same pool.
type Option func(*options)

type options struct {
	segmentSize int
	noOpDealloc bool
	mapped      bool
}

// WithSegmentSize sets the number of slots per storage segment. The default
// fills one OS page.
func WithSegmentSize(n int) Option {
	return func(o *options) { o.segmentSize = n }
}

// WithNoOpDealloc makes Deallocate only drop the live count without
// reclaiming the slot. Memory comes back in bulk through Reset.
func WithNoOpDealloc() Option {
	return func(o *options) { o.noOpDealloc = true }
}

// WithMappedSlots stores slots in anonymous memory mappings outside the Go
// heap. The element type must not contain Go pointers.
func WithMappedSlots() Option {
	return func(o *options) { o.mapped = true }
}

func buildOptions(opts []Option) (options, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.segmentSize < 0 {
		return o, fmt.Errorf("%w: segment size must be positive, got %d", ErrBadOption, o.segmentSize)
	}
	return o, nil
}

func (o options) mode() string {
	if o.noOpDealloc {
		return "noop"
	}
	return "reclaim"
}
