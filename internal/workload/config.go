// Package workload drives a pool with a randomized allocate/deallocate mix
// and reports what happened. It backs the segpool stress command and the
// long-running pool tests.
package workload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hpcdev/xylose-sub000/pool"
)

// ErrInvalidConfig is returned by Validate and LoadConfig.
var ErrInvalidConfig = errors.New("workload: invalid config")

// Config describes one stress run.
type Config struct {
	Ops        int     `yaml:"ops"`         // Total operations across all workers
	AllocRatio float64 `yaml:"alloc_ratio"` // Probability that an operation allocates
	Seed       int64   `yaml:"seed"`        // Worker w uses Seed+w
	Workers    int     `yaml:"workers"`

	SegmentSize int  `yaml:"segment_size"` // 0 selects one page per segment
	NoOpDealloc bool `yaml:"noop_dealloc"`
	Mapped      bool `yaml:"mapped"`

	// ResetCapacity is passed to Pool.Reset after the drain. Negative keeps
	// the existing slots.
	ResetCapacity int `yaml:"reset_capacity"`

	Check      bool `yaml:"check"`       // Validate the free list during and after the run
	CheckEvery int  `yaml:"check_every"` // Operations between checks on worker 0
}

// DefaultConfig returns the configuration of the reference run: 100,000
// operations, 85% allocations, one worker.
func DefaultConfig() Config {
	return Config{
		Ops:           100_000,
		AllocRatio:    0.85,
		Seed:          1,
		Workers:       1,
		ResetCapacity: -1,
		Check:         true,
		CheckEvery:    10_000,
	}
}

// LoadConfig reads a YAML document over DefaultConfig. Unknown keys are
// rejected. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if err := decodeConfig(data, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeConfig(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks that the configuration can be run.
func (c Config) Validate() error {
	switch {
	case c.Ops < 0:
		return fmt.Errorf("%w: ops must be >= 0, got %d", ErrInvalidConfig, c.Ops)
	case c.AllocRatio < 0 || c.AllocRatio > 1:
		return fmt.Errorf("%w: alloc_ratio must be between 0 and 1, got %g", ErrInvalidConfig, c.AllocRatio)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	case c.SegmentSize < 0:
		return fmt.Errorf("%w: segment_size must be >= 0, got %d", ErrInvalidConfig, c.SegmentSize)
	case c.CheckEvery < 0:
		return fmt.Errorf("%w: check_every must be >= 0, got %d", ErrInvalidConfig, c.CheckEvery)
	}
	return nil
}

// PoolOptions translates the pool settings into pool options.
func (c Config) PoolOptions() []pool.Option {
	var opts []pool.Option
	if c.SegmentSize > 0 {
		opts = append(opts, pool.WithSegmentSize(c.SegmentSize))
	}
	if c.NoOpDealloc {
		opts = append(opts, pool.WithNoOpDealloc())
	}
	if c.Mapped {
		opts = append(opts, pool.WithMappedSlots())
	}
	return opts
}
