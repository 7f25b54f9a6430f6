package main

import (
	"cmp"
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/hpcdev/xylose-sub000/internal/mmarena"
	"github.com/hpcdev/xylose-sub000/segvec"
)

var (
	vectorCount       int
	vectorSegmentSize int
	vectorEraseEvery  int
	vectorSeed        int64
	vectorSort        bool
	vectorMapped      bool
)

func init() {
	cmd := newVectorCmd()
	cmd.Flags().IntVarP(&vectorCount, "count", "n", 10_000, "Elements to push")
	cmd.Flags().IntVar(&vectorSegmentSize, "segment-size", 0, "Elements per segment (0 = one page)")
	cmd.Flags().IntVar(&vectorEraseEvery, "erase-every", 0, "Erase values divisible by this (0 = none)")
	cmd.Flags().Int64Var(&vectorSeed, "seed", 1, "Random seed for pushed values")
	cmd.Flags().BoolVar(&vectorSort, "sort", false, "Sort the vector through its iterators")
	cmd.Flags().BoolVar(&vectorMapped, "mapped", false, "Store segments in anonymous memory mappings")
	rootCmd.AddCommand(cmd)
}

func newVectorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vector",
		Short: "Fill, erase and sort a segmented vector",
		Long: `The vector command pushes random values into a segmented vector,
optionally erases a subset and sorts the rest through iterator ranges, and
reports the resulting geometry.

Example:
  segpool vector -n 100000 --segment-size 512 --erase-every 3 --sort`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVector()
		},
	}
	return cmd
}

// VectorReport describes the vector after the run.
type VectorReport struct {
	Pushed      int
	Erased      int
	Len         int
	Cap         int
	Segments    int
	SegmentSize int
	Compacted   int // Segments released by Compact
	Sorted      bool
	Min, Max    int64
	MappedBytes int `json:",omitempty"`
}

func runVector() error {
	if vectorCount < 0 {
		return fmt.Errorf("count must be >= 0, got %d", vectorCount)
	}
	if vectorSegmentSize < 0 {
		return fmt.Errorf("segment size must be >= 0, got %d", vectorSegmentSize)
	}
	size := vectorSegmentSize
	if size == 0 {
		size = segvec.PageSegmentSize[int64]()
	}

	var opts []segvec.Option[int64]
	var src *mmarena.Source[int64]
	if vectorMapped {
		var err error
		if src, err = mmarena.New[int64](); err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck
		opts = append(opts, segvec.WithSource[int64](src))
	}
	v := segvec.New[int64](size, opts...)
	defer v.Clear()

	rng := rand.New(rand.NewSource(vectorSeed))
	for range vectorCount {
		v.Push(rng.Int63n(1_000_000))
	}

	rep := VectorReport{Pushed: vectorCount, SegmentSize: v.SegmentSize()}
	if vectorEraseEvery > 0 {
		k := int64(vectorEraseEvery)
		rep.Erased = v.EraseIf(func(x *int64) bool { return *x%k == 0 }, nil)
		before := v.Segments()
		v.Compact()
		rep.Compacted = before - v.Segments()
	}
	if vectorSort {
		segvec.SortRange(v.Begin(), v.End(), cmp.Compare[int64])
		rep.Sorted = isSorted(v)
		if !rep.Sorted {
			return fmt.Errorf("vector: range not sorted after SortRange")
		}
	}

	rep.Len, rep.Cap, rep.Segments = v.Len(), v.Cap(), v.Segments()
	if rep.Len > 0 {
		rep.Min, rep.Max = *v.At(0), *v.At(0)
		for x := range v.Values() {
			rep.Min = min(rep.Min, x)
			rep.Max = max(rep.Max, x)
		}
	}
	if src != nil {
		rep.MappedBytes = src.Mapped()
	}

	if jsonOut {
		return printJSON(rep)
	}
	printInfo("Vector: %d pushed, %d erased\n", rep.Pushed, rep.Erased)
	printInfo("  Len:       %d\n", rep.Len)
	printInfo("  Capacity:  %d (%d segments of %d)\n", rep.Cap, rep.Segments, rep.SegmentSize)
	if vectorEraseEvery > 0 {
		printInfo("  Compacted: %d segments\n", rep.Compacted)
	}
	if rep.Len > 0 {
		printInfo("  Range:     [%d, %d]\n", rep.Min, rep.Max)
	}
	if vectorSort {
		printInfo("  Sorted:    %v\n", rep.Sorted)
	}
	if src != nil {
		printInfo("  Mapped:    %d bytes\n", rep.MappedBytes)
	}
	return nil
}

// isSorted walks the vector with a pair of iterators.
func isSorted(v *segvec.Vector[int64]) bool {
	end := v.End()
	if v.Len() < 2 {
		return true
	}
	for it, next := v.Begin(), v.Begin().Next(); !next.Equal(end); it, next = next, next.Next() {
		if next.Get() < it.Get() {
			return false
		}
	}
	return true
}
