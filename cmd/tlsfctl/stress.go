package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
)

var (
	stressPoolSize int
	stressAllocs   int
	stressLoops    int
	stressPasses   int
	stressRuns     int
	stressRetain   int
	stressSeed     int64
	stressMmap     bool
	stressVerify   bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressPoolSize, "pool-size", 64<<20, "Pool size in bytes")
	cmd.Flags().IntVar(&stressAllocs, "allocs", 1000, "Steps per loop")
	cmd.Flags().IntVar(&stressLoops, "loops", 10, "Slot tables per pass")
	cmd.Flags().IntVar(&stressPasses, "passes", 10, "Passes over all loops per run")
	cmd.Flags().IntVar(&stressRuns, "runs", 10, "Number of independent runs")
	cmd.Flags().IntVar(&stressRetain, "retain", 60, "Percentage of slots kept allocated at the end of a run")
	cmd.Flags().Int64Var(&stressSeed, "seed", 0, "Random seed (0 = time based)")
	cmd.Flags().BoolVar(&stressMmap, "mmap", false, "Back the pool with an anonymous memory mapping")
	cmd.Flags().BoolVar(&stressVerify, "verify", false, "Track refs and validate the allocator after every operation (slow)")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Measure fragmentation under a randomized workload",
		Long: `The stress command runs a long randomized mix of allocations and frees
against a single pool, keeps a share of the blocks alive, releases the rest,
and reports how fragmented the remaining free space is.

The fragment ratio is the largest free block divided by the total free
bytes; 1.0 means the free space is one contiguous block.

Example:
  tlsfctl stress
  tlsfctl stress --runs 3 --passes 100 --seed 7
  tlsfctl stress --classes coarse --mmap --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

// stressReport is the JSON form of a stress invocation.
type stressReport struct {
	Seed             int64       `json:"seed"`
	PoolSize         int         `json:"pool_size"`
	Classes          string      `json:"classes"`
	Runs             []runResult `json:"runs"`
	MinFragmentRatio float64     `json:"min_fragment_ratio"`
}

func runStress() error {
	if stressRuns <= 0 || stressAllocs <= 0 || stressLoops <= 0 || stressPasses <= 0 {
		return fmt.Errorf("runs, allocs, loops and passes must be positive")
	}
	if stressRetain < 0 || stressRetain > 100 {
		return fmt.Errorf("retain must be between 0 and 100, got %d", stressRetain)
	}
	cfg, err := newConfig()
	if err != nil {
		return err
	}

	seed := stressSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	report := stressReport{
		Seed:             seed,
		PoolSize:         stressPoolSize,
		Classes:          cfg.SizeClasses.Name,
		MinFragmentRatio: 1,
	}
	wl := workloadConfig{
		PoolSize:      stressPoolSize,
		Allocations:   stressAllocs,
		Loops:         stressLoops,
		Passes:        stressPasses,
		RetainPercent: stressRetain,
		Mmap:          stressMmap,
		Verify:        stressVerify,
		Config:        cfg,
	}

	printVerbose("Seed: %d, pool: %d bytes, classes: %s\n", seed, stressPoolSize, cfg.SizeClasses.Name)
	for i := 0; i < stressRuns; i++ {
		if !jsonOut {
			printInfo("%s\n", render(headerStyle, fmt.Sprintf("Run %d/%d", i+1, stressRuns)))
		}
		res, err := runWorkload(wl, rng)
		if err != nil {
			if isOutOfMemory(err) {
				printError("pool of %d bytes is too small for this workload; raise --pool-size\n", stressPoolSize)
			}
			return fmt.Errorf("run %d failed: %w", i+1, err)
		}
		report.Runs = append(report.Runs, res)
		report.MinFragmentRatio = min(report.MinFragmentRatio, res.FragmentRatio)

		if !jsonOut {
			printRun(res)
		}
	}

	if jsonOut {
		return printJSON(report)
	}
	printInfo("\nAll runs passed.\n")
	printInfo("Minimal fragment ratio: %.6f\n", report.MinFragmentRatio)
	return nil
}

func printRun(res runResult) {
	used := stressPoolSize - res.TotalFree
	printInfo("  Total allocated: %d bytes in %d blocks\n", res.Allocated, res.Live)
	printInfo("  Max free block:  %d bytes\n", res.LargestFree)
	printInfo("  Total free:      %d bytes in %d blocks\n", res.TotalFree, res.FreeBlocks)
	printInfo("  Fragment ratio:  %.6f\n", res.FragmentRatio)
	printInfo("  %s\n", usageBar(used, stressPoolSize, 50))
	printVerbose("  Calls: %d alloc, %d free, %d failed, %d exact-fit fallbacks (%d blocks scanned)\n",
		res.Stats.AllocCalls, res.Stats.FreeCalls, res.Stats.AllocFailures,
		res.Stats.ExactFitFallbacks, res.Stats.ExactFitScanned)
	printVerbose("  Splits: %d, merges: %d forward / %d backward, elapsed %s\n",
		res.Stats.SplitCount, res.Stats.CoalesceForward, res.Stats.CoalesceBackward, res.Elapsed)
}
