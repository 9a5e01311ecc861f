package main

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tlsfkit/tlsf"
)

func Test_DrawSize_Ranges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	small, medium, large := 0, 0, 0
	for iter := 0; iter < 100000; iter++ {
		size := drawSize(rng)
		switch {
		case size >= smallMin && size < smallMin+smallSpan:
			small++
		case size >= mediumMin && size < mediumMax:
			medium++
		case size >= largeMin && size < largeMax:
			large++
		default:
			t.Fatalf("size %d outside every range", size)
		}
	}
	// The small and medium ranges overlap between 4096 and 4608, so only
	// loose bounds are meaningful.
	require.Greater(t, small, 90000)
	require.Greater(t, medium, 1000)
	require.Greater(t, large, 50)
	require.Less(t, large, 1000)
}

func Test_RunWorkload_Reports(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mmap   bool
		verify bool
	}{
		{name: "heap"},
		{name: "mmap", mmap: true},
		{name: "verify", verify: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := workloadConfig{
				PoolSize:      16 << 20,
				Allocations:   100,
				Loops:         4,
				Passes:        2,
				RetainPercent: 60,
				Mmap:          tc.mmap,
				Verify:        tc.verify,
			}
			res, err := runWorkload(cfg, rand.New(rand.NewSource(7)))
			require.NoError(t, err)

			require.LessOrEqual(t, res.Live, 240)
			require.Positive(t, res.Allocated)
			require.Positive(t, res.TotalFree)
			require.LessOrEqual(t, res.LargestFree, res.TotalFree)
			require.Greater(t, res.FragmentRatio, 0.0)
			require.LessOrEqual(t, res.FragmentRatio, 1.0)
			require.Positive(t, res.Stats.AllocCalls)
		})
	}
}

func Test_RunWorkload_Deterministic(t *testing.T) {
	cfg := workloadConfig{PoolSize: 8 << 20, Allocations: 50, Loops: 3, Passes: 3, RetainPercent: 50}
	a, err := runWorkload(cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	b, err := runWorkload(cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	require.Equal(t, a.Allocated, b.Allocated)
	require.Equal(t, a.TotalFree, b.TotalFree)
	require.Equal(t, a.LargestFree, b.LargestFree)
	require.Equal(t, a.Stats, b.Stats)
}

func Test_RunWorkload_PoolTooSmall(t *testing.T) {
	cfg := workloadConfig{PoolSize: 64 << 10, Allocations: 200, Loops: 2, Passes: 1, RetainPercent: 60}
	_, err := runWorkload(cfg, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	require.True(t, isOutOfMemory(err))
	require.ErrorIs(t, err, tlsf.ErrOutOfMemory)
}

func Test_RunWorkload_RetainAll(t *testing.T) {
	cfg := workloadConfig{PoolSize: 16 << 20, Allocations: 50, Loops: 2, Passes: 1, RetainPercent: 100}
	res, err := runWorkload(cfg, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	require.Positive(t, res.Live)

	cfg.RetainPercent = 0
	res, err = runWorkload(cfg, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	require.Zero(t, res.Live)
	require.Zero(t, res.Allocated)
	require.Equal(t, 1, res.FreeBlocks, "releasing every block leaves one free block")
	require.Equal(t, 1.0, res.FragmentRatio)
}
