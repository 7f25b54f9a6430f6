package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/hpcdev/xylose-sub000/internal/workload"
	"github.com/hpcdev/xylose-sub000/pool"
)

var (
	stressConfig        string
	stressOps           int
	stressWorkers       int
	stressSeed          int64
	stressRatio         float64
	stressSegmentSize   int
	stressNoOp          bool
	stressMapped        bool
	stressResetCapacity int
	stressCheck         bool
	stressMetrics       bool
)

func init() {
	cmd := newStressCmd()
	def := workload.DefaultConfig()
	cmd.Flags().StringVarP(&stressConfig, "config", "c", "", "YAML workload file")
	cmd.Flags().IntVar(&stressOps, "ops", def.Ops, "Total operations")
	cmd.Flags().IntVar(&stressWorkers, "workers", def.Workers, "Concurrent workers sharing the pool")
	cmd.Flags().Int64Var(&stressSeed, "seed", def.Seed, "Random seed (worker w uses seed+w)")
	cmd.Flags().Float64Var(&stressRatio, "ratio", def.AllocRatio, "Probability that an operation allocates")
	cmd.Flags().IntVar(&stressSegmentSize, "segment-size", def.SegmentSize, "Slots per segment (0 = one page)")
	cmd.Flags().BoolVar(&stressNoOp, "noop", def.NoOpDealloc, "Make deallocation a no-op until reset")
	cmd.Flags().BoolVar(&stressMapped, "mapped", def.Mapped, "Store slots in anonymous memory mappings")
	cmd.Flags().IntVar(&stressResetCapacity, "reset-capacity", def.ResetCapacity, "Slots to keep on reset (-1 = keep all)")
	cmd.Flags().BoolVar(&stressCheck, "check", def.Check, "Validate the free list during the run")
	cmd.Flags().BoolVar(&stressMetrics, "metrics", false, "Print pool metrics in Prometheus text format")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run a random allocate/deallocate workload against a pool",
		Long: `The stress command allocates and frees pool objects at random,
drains every outstanding object and resets the pool. Settings come from
the defaults, then the --config file, then explicitly set flags.

Example:
  segpool stress
  segpool stress --ops 1000000 --workers 8 --segment-size 1024
  segpool stress --config workload.yaml --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress(cmd.Context(), cmd.Flags().Changed)
		},
	}
	return cmd
}

// stressSettings builds the workload configuration. changed reports whether
// a flag was set on the command line; only those override the file.
func stressSettings(changed func(string) bool) (workload.Config, error) {
	cfg, err := workload.LoadConfig(stressConfig)
	if err != nil {
		return cfg, err
	}
	if changed("ops") {
		cfg.Ops = stressOps
	}
	if changed("workers") {
		cfg.Workers = stressWorkers
	}
	if changed("seed") {
		cfg.Seed = stressSeed
	}
	if changed("ratio") {
		cfg.AllocRatio = stressRatio
	}
	if changed("segment-size") {
		cfg.SegmentSize = stressSegmentSize
	}
	if changed("noop") {
		cfg.NoOpDealloc = stressNoOp
	}
	if changed("mapped") {
		cfg.Mapped = stressMapped
	}
	if changed("reset-capacity") {
		cfg.ResetCapacity = stressResetCapacity
	}
	if changed("check") {
		cfg.Check = stressCheck
	}
	return cfg, cfg.Validate()
}

func runStress(ctx context.Context, changed func(string) bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := stressSettings(changed)
	if err != nil {
		return err
	}

	reg := pool.NewRegistry()
	defer reg.Destroy() //nolint:errcheck

	rep, err := workload.Run(ctx, reg, cfg)
	if err != nil {
		return fmt.Errorf("stress: %w", err)
	}

	if jsonOut {
		if err := printJSON(struct {
			Config workload.Config
			Report workload.Report
		}{cfg, rep}); err != nil {
			return err
		}
	} else {
		printReport(cfg, rep)
	}

	if stressMetrics {
		return writeMetrics(reg)
	}
	return nil
}

func printReport(cfg workload.Config, rep workload.Report) {
	mode := "reclaim"
	if cfg.NoOpDealloc {
		mode = "noop"
	}
	printInfo("Workload: %d ops, %d worker(s), ratio %.2f, seed %d, %s\n",
		rep.Ops, cfg.Workers, cfg.AllocRatio, cfg.Seed, mode)
	printInfo("  Allocations:   %d\n", rep.Allocs)
	printInfo("  Deallocations: %d\n", rep.Deallocs)
	printInfo("  Peak live:     %d\n", rep.PeakLive)
	printInfo("  Slots:         %d (%d segments of %d)\n",
		rep.Drained.Slots, rep.Drained.Segments, rep.Drained.SegmentSize)
	printInfo("  Capacity:      %d\n", rep.Drained.Capacity)
	printInfo("  After reset:   %d slots, %d segments\n", rep.Final.Slots, rep.Final.Segments)
	if cfg.Check {
		printInfo("  Checks:        %d passed\n", rep.Checks)
	}
	printInfo("  Elapsed:       %s\n", rep.Elapsed)
}

// writeMetrics gathers the registry's pool metrics and prints them in the
// Prometheus text exposition format.
func writeMetrics(reg *pool.Registry) error {
	promReg := prometheus.NewRegistry()
	if err := promReg.Register(pool.NewCollector(reg)); err != nil {
		return fmt.Errorf("register collector: %w", err)
	}
	families, err := promReg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
