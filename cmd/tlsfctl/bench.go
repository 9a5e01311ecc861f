package main

import (
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tlsfkit/tlsf"
)

var (
	benchPoolSize   int
	benchIterations int
	benchSizes      string
	benchPrefill    int
	benchSeed       int64
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchPoolSize, "pool-size", 64<<20, "Pool size in bytes")
	cmd.Flags().IntVar(&benchIterations, "iterations", 100000, "Alloc/free pairs per size")
	cmd.Flags().StringVar(&benchSizes, "sizes", "16,64,256,1024,4096,65536,1048576", "Comma-separated request sizes")
	cmd.Flags().IntVar(&benchPrefill, "prefill", 4096, "Blocks allocated (and half freed) before timing")
	cmd.Flags().Int64Var(&benchSeed, "seed", 1, "Random seed for the prefill")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time alloc/free pairs across size classes",
		Long: `The bench command fragments a pool with a random prefill, then times
paired allocations and frees for each requested size. TLSF operations run in
bounded time, so the averages should stay flat across sizes.

Example:
  tlsfctl bench
  tlsfctl bench --sizes 32,4096 --iterations 1000000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	return cmd
}

// benchResult holds the timings for one request size.
type benchResult struct {
	Size       int     `json:"size"`
	Iterations int     `json:"iterations"`
	AllocNs    float64 `json:"alloc_ns"`
	FreeNs     float64 `json:"free_ns"`
	MaxAllocNs int64   `json:"max_alloc_ns"`
	MaxFreeNs  int64   `json:"max_free_ns"`
}

// parseSizes parses a comma-separated list of positive sizes.
func parseSizes(list string) ([]int, error) {
	var sizes []int
	for _, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid size %q", field)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes given")
	}
	slices.Sort(sizes)
	return sizes, nil
}

// prefill allocates n random blocks and frees every other one, leaving a
// fragmented free-list table behind.
func prefill(c *tlsf.Control, n int, rng *rand.Rand) error {
	refs := make([]tlsf.Ref, 0, n)
	for iter := 0; iter < n; iter++ {
		ref, _, err := c.Alloc(drawSize(rng))
		if isOutOfMemory(err) {
			break
		}
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}
	for i := 0; i < len(refs); i += 2 {
		if err := c.Free(refs[i]); err != nil {
			return err
		}
	}
	return nil
}

// timeSize runs iterations alloc/free pairs of size against c.
func timeSize(c *tlsf.Control, size, iterations int) (benchResult, error) {
	res := benchResult{Size: size, Iterations: iterations}
	var allocTotal, freeTotal time.Duration
	for iter := 0; iter < iterations; iter++ {
		t0 := time.Now()
		ref, _, err := c.Alloc(size)
		t1 := time.Now()
		if err != nil {
			return res, fmt.Errorf("allocating %d bytes: %w", size, err)
		}
		if err := c.Free(ref); err != nil {
			return res, err
		}
		t2 := time.Now()

		allocTotal += t1.Sub(t0)
		freeTotal += t2.Sub(t1)
		res.MaxAllocNs = max(res.MaxAllocNs, t1.Sub(t0).Nanoseconds())
		res.MaxFreeNs = max(res.MaxFreeNs, t2.Sub(t1).Nanoseconds())
	}
	res.AllocNs = float64(allocTotal.Nanoseconds()) / float64(iterations)
	res.FreeNs = float64(freeTotal.Nanoseconds()) / float64(iterations)
	return res, nil
}

func runBench() error {
	if benchIterations <= 0 {
		return fmt.Errorf("iterations must be positive")
	}
	sizes, err := parseSizes(benchSizes)
	if err != nil {
		return err
	}
	cfg, err := newConfig()
	if err != nil {
		return err
	}

	c, err := tlsf.New(make([]byte, benchPoolSize), cfg)
	if err != nil {
		return fmt.Errorf("failed to create allocator: %w", err)
	}
	defer c.Destroy()

	if err := prefill(c, benchPrefill, rand.New(rand.NewSource(benchSeed))); err != nil {
		return fmt.Errorf("prefill failed: %w", err)
	}
	fi := c.FreeInfo()
	printVerbose("Prefilled: %d free blocks, %d bytes free, largest %d\n",
		fi.FreeBlocks, fi.TotalFree, fi.LargestFree)

	results := make([]benchResult, 0, len(sizes))
	for _, size := range sizes {
		res, err := timeSize(c, size, benchIterations)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	if err := c.Check(); err != nil {
		return err
	}
	if jsonOut {
		return printJSON(results)
	}

	printInfo("%s\n", render(headerStyle, fmt.Sprintf("%12s %12s %12s %12s %12s",
		"SIZE", "ALLOC ns", "FREE ns", "MAX ALLOC", "MAX FREE")))
	for _, r := range results {
		printInfo("%12d %12.1f %12.1f %12d %12d\n", r.Size, r.AllocNs, r.FreeNs, r.MaxAllocNs, r.MaxFreeNs)
	}
	printVerbose("Classes: %s, iterations per size: %d\n", c.SizeClasses().Name, benchIterations)
	return nil
}
