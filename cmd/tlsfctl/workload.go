package main

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/joshuapare/tlsfkit/internal/mmfile"
	"github.com/joshuapare/tlsfkit/tlsf"
)

// Size mix of the fragmentation workload: most requests are small, a few
// are medium, and a rare handful are large enough to stress the top classes.
const (
	probSmall  = 0.95
	probLarge  = 0.003
	probMedium = 1 - probSmall - probLarge

	smallMin  = 512
	smallSpan = 4096
	mediumMin = 4096
	mediumMax = 80000
	largeMin  = 80000
	largeMax  = 450 * 1024

	allocPercent = 70
)

// workloadConfig describes one fragmentation run.
type workloadConfig struct {
	PoolSize      int
	Allocations   int // steps per loop
	Loops         int // slot tables per pass
	Passes        int // passes over all loops
	RetainPercent int // share of live blocks left allocated at the end
	Mmap          bool
	Verify        bool
	Config        *tlsf.Config
}

// runResult is the outcome of one fragmentation run.
type runResult struct {
	Allocated     int        `json:"allocated"`
	Live          int        `json:"live"`
	TotalFree     int        `json:"total_free"`
	LargestFree   int        `json:"largest_free"`
	FreeBlocks    int        `json:"free_blocks"`
	FragmentRatio float64    `json:"fragment_ratio"`
	Stats         tlsf.Stats `json:"stats"`
	Elapsed       string     `json:"elapsed"`
}

// allocator is the subset of the allocator API the workload drives, satisfied
// by both *tlsf.Control and *tlsf.Checked.
type allocator interface {
	Alloc(size int) (tlsf.Ref, []byte, error)
	Free(ref tlsf.Ref) error
}

// drawSize picks a request size from the workload mix.
func drawSize(rng *rand.Rand) int {
	p := rng.Float64()
	switch {
	case p < probSmall:
		return smallMin + rng.Intn(smallSpan)
	case p < probSmall+probMedium:
		return mediumMin + rng.Intn(mediumMax-mediumMin)
	default:
		return largeMin + rng.Intn(largeMax-largeMin)
	}
}

// newPoolMemory returns backing memory for a pool and its release func.
func newPoolMemory(size int, mapped bool) ([]byte, func() error, error) {
	if mapped {
		return mmfile.Anonymous(size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// runWorkload performs one fragmentation run: a long randomized mix of
// allocations (70%) and frees of earlier slots (30%), after which the first
// RetainPercent of the slot table stays allocated and everything else is
// released. The resulting free space picture is what the run reports.
func runWorkload(cfg workloadConfig, rng *rand.Rand) (runResult, error) {
	var res runResult

	mem, release, err := newPoolMemory(cfg.PoolSize, cfg.Mmap)
	if err != nil {
		return res, fmt.Errorf("failed to create pool memory: %w", err)
	}
	defer release() //nolint:errcheck // best-effort unmap

	c, err := tlsf.New(mem, cfg.Config)
	if err != nil {
		return res, fmt.Errorf("failed to create allocator: %w", err)
	}
	defer c.Destroy()

	var a allocator = c
	if cfg.Verify {
		a = tlsf.NewChecked(c, true)
	}

	refs := make([][]tlsf.Ref, cfg.Loops)
	sizes := make([][]int, cfg.Loops)
	for i := range refs {
		refs[i] = make([]tlsf.Ref, cfg.Allocations)
		sizes[i] = make([]int, cfg.Allocations)
	}

	start := time.Now()
	allocated := 0
	for pass := 0; pass < cfg.Passes; pass++ {
		for loop := 0; loop < cfg.Loops; loop++ {
			for step := 0; step < cfg.Allocations; step++ {
				if rng.Intn(100) < allocPercent {
					size := drawSize(rng)
					if old := refs[loop][step]; old != 0 {
						if err := a.Free(old); err != nil {
							return res, fmt.Errorf("pass %d loop %d step %d: %w", pass, loop, step, err)
						}
						allocated -= sizes[loop][step]
					}
					ref, _, err := a.Alloc(size)
					if err != nil {
						return res, fmt.Errorf("pass %d loop %d step %d: allocating %d bytes: %w",
							pass, loop, step, size, err)
					}
					refs[loop][step] = ref
					sizes[loop][step] = size
					allocated += size
					continue
				}

				rl := rng.Intn(loop + 1)
				rs := rng.Intn(step + 1)
				if ref := refs[rl][rs]; ref != 0 {
					if err := a.Free(ref); err != nil {
						return res, fmt.Errorf("pass %d loop %d step %d: %w", pass, loop, step, err)
					}
					allocated -= sizes[rl][rs]
					refs[rl][rs] = 0
				}
			}
		}
	}

	retain := cfg.Loops * cfg.Allocations * cfg.RetainPercent / 100
	for loop := 0; loop < cfg.Loops; loop++ {
		for step := 0; step < cfg.Allocations; step++ {
			ref := refs[loop][step]
			if ref == 0 {
				continue
			}
			if retain > 0 {
				retain--
				res.Live++
				continue
			}
			if err := a.Free(ref); err != nil {
				return res, fmt.Errorf("releasing loop %d step %d: %w", loop, step, err)
			}
			allocated -= sizes[loop][step]
		}
	}

	if err := c.Check(); err != nil {
		return res, err
	}

	fi := c.FreeInfo()
	res.Allocated = allocated
	res.TotalFree = fi.TotalFree
	res.LargestFree = fi.LargestFree
	res.FreeBlocks = fi.FreeBlocks
	res.FragmentRatio = fi.FragmentRatio()
	res.Stats = c.Stats()
	res.Elapsed = time.Since(start).String()
	return res, nil
}

// isOutOfMemory reports whether err is an allocation failure rather than misuse.
func isOutOfMemory(err error) bool {
	return errors.Is(err, tlsf.ErrOutOfMemory)
}
