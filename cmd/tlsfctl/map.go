package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/joshuapare/tlsfkit/internal/mmfile"
	"github.com/joshuapare/tlsfkit/tlsf"
)

var (
	mapPoolSize int
	mapAllocs   int
	mapFreePct  int
	mapWidth    int
	mapSeed     int64
	mapAligned  int
	mapFile     string
)

func init() {
	cmd := newMapCmd()
	cmd.Flags().IntVar(&mapPoolSize, "pool-size", 256<<10, "Pool size in bytes")
	cmd.Flags().IntVar(&mapAllocs, "allocs", 128, "Number of allocations")
	cmd.Flags().IntVar(&mapFreePct, "free", 40, "Percentage of allocations freed again")
	cmd.Flags().IntVar(&mapWidth, "width", 64, "Cells per row")
	cmd.Flags().Int64Var(&mapSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&mapAligned, "align", 0, "Use aligned allocations with this alignment (0 = plain)")
	cmd.Flags().StringVar(&mapFile, "file", "", "Back the pool with this file so the final layout is kept on disk")
	rootCmd.AddCommand(cmd)
}

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Render the block layout of a pool after a random workload",
		Long: `The map command allocates random blocks in a fresh pool, frees a share
of them, and draws the pool in address order. Used blocks are drawn solid,
free blocks shaded, and cells that straddle both are drawn mixed.

Example:
  tlsfctl map
  tlsfctl map --allocs 500 --free 70 --width 80
  tlsfctl map --align 256 --json
  tlsfctl map --file pool.img`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap()
		},
	}
	return cmd
}

// mapReport is the JSON form of the map command.
type mapReport struct {
	Pool   tlsf.PoolInfo    `json:"pool"`
	Free   tlsf.FreeInfo    `json:"free"`
	Blocks []tlsf.BlockInfo `json:"blocks"`
}

// populate allocates random blocks and frees a share of them again.
func populate(c *tlsf.Control, rng *rand.Rand) error {
	var refs []tlsf.Ref
	for iter := 0; iter < mapAllocs; iter++ {
		size := 16 + rng.Intn(max(1, mapPoolSize/(4*max(1, mapAllocs))))
		var (
			ref tlsf.Ref
			err error
		)
		if mapAligned > 0 {
			ref, _, err = c.AllocAligned(mapAligned, size)
		} else {
			ref, _, err = c.Alloc(size)
		}
		if isOutOfMemory(err) {
			break
		}
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}
	rng.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
	for _, ref := range refs[:len(refs)*mapFreePct/100] {
		if err := c.Free(ref); err != nil {
			return err
		}
	}
	return nil
}

// mapMemory returns the pool buffer: the --file mapping when one is given,
// otherwise a heap slice.
func mapMemory() ([]byte, func() error, error) {
	if mapFile == "" {
		return make([]byte, mapPoolSize), func() error { return nil }, nil
	}
	mem, release, err := mmfile.MapFile(mapFile, mapPoolSize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to map %s: %w", mapFile, err)
	}
	return mem, release, nil
}

func runMap() error {
	if mapFreePct < 0 || mapFreePct > 100 {
		return fmt.Errorf("free must be between 0 and 100, got %d", mapFreePct)
	}
	cfg, err := newConfig()
	if err != nil {
		return err
	}
	mem, release, err := mapMemory()
	if err != nil {
		return err
	}
	defer release() //nolint:errcheck // flushed explicitly below

	c, err := tlsf.New(mem, cfg)
	if err != nil {
		return fmt.Errorf("failed to create allocator: %w", err)
	}
	defer c.Destroy()

	if err := populate(c, rand.New(rand.NewSource(mapSeed))); err != nil {
		return err
	}
	if err := c.Check(); err != nil {
		return err
	}
	if mapFile != "" {
		if err := mmfile.Flush(mem); err != nil {
			return fmt.Errorf("failed to flush %s: %w", mapFile, err)
		}
		printVerbose("Pool image written to %s\n", mapFile)
	}

	pool := c.Pools()[0]
	report := mapReport{Pool: pool, Free: c.FreeInfo()}
	if err := c.WalkPool(pool.ID, func(bi tlsf.BlockInfo) bool {
		report.Blocks = append(report.Blocks, bi)
		return true
	}); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(report)
	}

	printInfo("%s\n", render(headerStyle, fmt.Sprintf("Pool %d: %d blocks", pool.ID, len(report.Blocks))))
	for _, row := range poolMap(report.Blocks, pool.Bytes, mapWidth) {
		printInfo("%s\n", row)
	}
	printInfo("%s used  %s free  %s mixed\n",
		render(usedStyle, usedCell), render(freeStyle, freeCell), render(mixedStyle, mixedCell))
	printInfo("Free: %d bytes in %d blocks, largest %d (ratio %.3f)\n",
		report.Free.TotalFree, report.Free.FreeBlocks, report.Free.LargestFree, report.Free.FragmentRatio())

	for _, bi := range report.Blocks {
		state := "used"
		if !bi.Used {
			state = "free"
		}
		printVerbose("  %#012x %10d %s\n", uint64(bi.Ref), bi.Size, state)
	}
	return nil
}
