package workload

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpcdev/xylose-sub000/internal/logger"
	"github.com/hpcdev/xylose-sub000/pool"
)

// ErrMismatch indicates that an object read back different contents than
// were written, i.e. two live allocations shared storage.
var ErrMismatch = errors.New("workload: object contents changed while live")

// Record is the object type the workload allocates. It holds no pointers so
// it can live in mapped slots.
type Record struct {
	Worker uint32
	Seq    uint32
	Tag    uint64
}

func (r Record) tag() uint64 {
	return uint64(r.Worker)<<32 | uint64(r.Seq)
}

// Report summarizes a run.
type Report struct {
	Ops      int
	Allocs   int
	Deallocs int
	PeakLive int // Sum of each worker's peak
	Elapsed  time.Duration
	Checks   int

	Drained pool.Stats // After every object was returned, before Reset
	Final   pool.Stats // After Reset
}

type workerResult struct {
	allocs, deallocs, peak, checks int
}

// Run executes cfg against the Record pool of reg. Every worker returns all
// of its objects before Run resets the pool.
func Run(ctx context.Context, reg *pool.Registry, cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	a, err := pool.NewAllocator[Record](reg, cfg.PoolOptions()...)
	if err != nil {
		return Report{}, err
	}

	logger.Info("workload start", "ops", cfg.Ops, "workers", cfg.Workers,
		"alloc_ratio", cfg.AllocRatio, "seed", cfg.Seed)
	start := time.Now()

	results := make([]workerResult, cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := range cfg.Workers {
		ops := cfg.Ops / cfg.Workers
		if w < cfg.Ops%cfg.Workers {
			ops++
		}
		g.Go(func() error {
			res, err := runWorker(gctx, a, cfg, w, ops)
			results[w] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Report{Ops: cfg.Ops, Elapsed: time.Since(start)}
	for _, r := range results {
		rep.Allocs += r.allocs
		rep.Deallocs += r.deallocs
		rep.PeakLive += r.peak
		rep.Checks += r.checks
	}

	p := a.Pool()
	if cfg.Check {
		if err := p.Validate(); err != nil {
			return rep, fmt.Errorf("after drain: %w", err)
		}
		rep.Checks++
	}
	rep.Drained = p.Stats()
	if err := p.Reset(cfg.ResetCapacity); err != nil {
		return rep, fmt.Errorf("reset: %w", err)
	}
	rep.Final = p.Stats()

	logger.Info("workload done", "allocs", rep.Allocs, "deallocs", rep.Deallocs,
		"slots", rep.Drained.Slots, "segments", rep.Drained.Segments, "elapsed", rep.Elapsed)
	return rep, nil
}

// held is a live object together with the contents written into it.
type held struct {
	r    *Record
	want Record
}

// check reports ErrMismatch when h's object no longer holds what was written.
func (h held) check() error {
	if *h.r != h.want {
		return fmt.Errorf("%w: worker %d seq %d reads %+v", ErrMismatch, h.want.Worker, h.want.Seq, *h.r)
	}
	return nil
}

func runWorker(ctx context.Context, a pool.Allocator[Record], cfg Config, w, ops int) (res workerResult, err error) {
	rng := rand.New(rand.NewSource(cfg.Seed + int64(w)))
	var live []held

	// Objects still held when the worker stops early go back to the pool so
	// the registry can be reset or reused.
	defer func() {
		if err == nil {
			return
		}
		for _, h := range live {
			if derr := a.Delete(h.r); derr != nil {
				logger.Warn("workload drain failed", "worker", w, "err", derr)
				continue
			}
			res.deallocs++
		}
	}()

	release := func(k int) error {
		h := live[k]
		if err := h.check(); err != nil {
			return err
		}
		if err := a.Delete(h.r); err != nil {
			return err
		}
		live[k] = live[len(live)-1]
		live = live[:len(live)-1]
		res.deallocs++
		return nil
	}

	for op := range ops {
		if op%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		if len(live) == 0 || rng.Float64() < cfg.AllocRatio {
			rec := Record{Worker: uint32(w), Seq: uint32(op)}
			rec.Tag = rec.tag()
			r, err := a.New(rec)
			if err != nil {
				return res, err
			}
			live = append(live, held{r: r, want: rec})
			res.allocs++
			res.peak = max(res.peak, len(live))
		} else if err := release(rng.Intn(len(live))); err != nil {
			return res, err
		}

		if w == 0 && cfg.Check && cfg.CheckEvery > 0 && (op+1)%cfg.CheckEvery == 0 {
			if err := a.Pool().Validate(); err != nil {
				return res, fmt.Errorf("op %d: %w", op, err)
			}
			res.checks++
		}
	}

	for len(live) > 0 {
		if err := release(len(live) - 1); err != nil {
			return res, err
		}
	}
	return res, nil
}
