package tlsf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tlsfkit/internal/mmfile"
)

// Test_AllocAligned_PowersOfTwo tests every power-of-two alignment up to a
// page against a range of sizes, then frees everything.
func Test_AllocAligned_PowersOfTwo(t *testing.T) {
	c, _ := newTestControl(t, 4*testPoolSize, nil)
	initial := c.FreeInfo()

	type live struct {
		ref  Ref
		size int
		seed byte
	}
	var all []live
	seed := byte(0)
	for align := 1; align <= 4096; align <<= 1 {
		for _, size := range []int{1, 24, 100, 1000, 5000} {
			ref, data, err := c.AllocAligned(align, size)
			require.NoError(t, err, "align %d size %d", align, size)
			require.Zero(t, c.Addr(ref)%uintptr(align), "align %d size %d", align, size)
			require.Zero(t, sliceAddr(data)%uintptr(align))
			require.Len(t, data, size)
			require.GreaterOrEqual(t, c.BlockSize(ref), size)

			seed++
			fill(data, seed)
			all = append(all, live{ref: ref, size: size, seed: seed})
		}
		require.NoError(t, c.Check(), "align %d", align)
	}
	requireConservation(t, c)
	requireNoAdjacentFree(t, c)

	for _, l := range all {
		requirePattern(t, c.Bytes(l.ref)[:l.size], l.seed)
	}
	rand.New(rand.NewSource(7)).Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	for _, l := range all {
		require.NoError(t, c.Free(l.ref))
	}
	require.Equal(t, initial, c.FreeInfo())
	require.NoError(t, c.Check())
}

// Test_AllocAligned_RejectsBadAlignment tests that invalid alignments change nothing.
func Test_AllocAligned_RejectsBadAlignment(t *testing.T) {
	c, _ := newTestControl(t, testPoolSize, nil)
	before := c.FreeInfo()

	for _, align := range []int{0, -8, 3, 12, 4095} {
		ref, data, err := c.AllocAligned(align, 16)
		require.ErrorIs(t, err, ErrInvalidArgument, "align %d", align)
		require.Zero(t, ref)
		require.Nil(t, data)
	}
	_, _, err := c.AllocAligned(64, 0)
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.Equal(t, before, c.FreeInfo())
	require.Zero(t, c.Stats().AlignedAllocCalls)
}

// Test_AllocAligned_SmallGapPushedForward tests that a gap too small for a
// block of its own moves the payload to the next aligned address.
func Test_AllocAligned_SmallGapPushedForward(t *testing.T) {
	mem, release, err := mmfile.Anonymous(1 << 16)
	require.NoError(t, err)
	defer func() { require.NoError(t, release()) }()

	c, err := New(mem, nil)
	require.NoError(t, err)
	start := c.Pools()[0].Addr

	// The first payload sits 16 bytes into the page; the next 32-byte
	// boundary leaves a 16-byte gap, which cannot hold a block.
	ref, _, err := c.AllocAligned(32, 24)
	require.NoError(t, err)
	require.Equal(t, start+64, c.Addr(ref))

	blocks := poolBlocks(t, c)[c.Pools()[0].ID]
	require.False(t, blocks[0].Used)
	require.Equal(t, 40, blocks[0].Size)
	require.True(t, blocks[1].Used)
	require.Equal(t, ref, blocks[1].Ref)

	require.NoError(t, c.Check())
	requireConservation(t, c)

	// The leading gap is an ordinary free block and merges back on free.
	require.NoError(t, c.Free(ref))
	require.Equal(t, 1, c.FreeInfo().FreeBlocks)
	require.NoError(t, c.Check())
}

// Test_AllocAligned_PageInSmallPool tests that the over-sized search asks
// for no more than the alignment plus a gap block, so a page-aligned payload
// fits in a two-page pool.
func Test_AllocAligned_PageInSmallPool(t *testing.T) {
	mem, release, err := mmfile.Anonymous(8192)
	require.NoError(t, err)
	defer func() { require.NoError(t, release()) }()

	c, err := New(mem, nil)
	require.NoError(t, err)
	start := c.Pools()[0].Addr
	require.Equal(t, 8168, c.FreeInfo().LargestFree)

	ref, data, err := c.AllocAligned(4096, 8)
	require.NoError(t, err)
	require.Equal(t, start+4096, c.Addr(ref))
	require.Len(t, data, 8)

	blocks := poolBlocks(t, c)[c.Pools()[0].ID]
	require.False(t, blocks[0].Used)
	require.Equal(t, 4072, blocks[0].Size)
	require.True(t, blocks[1].Used)
	require.NoError(t, c.Check())
	requireConservation(t, c)

	require.NoError(t, c.Free(ref))
	require.Equal(t, 1, c.FreeInfo().FreeBlocks)
	require.Equal(t, 8168, c.FreeInfo().LargestFree)
}

// Test_AllocAligned_NoGap tests that an already aligned block is used as is.
func Test_AllocAligned_NoGap(t *testing.T) {
	mem, release, err := mmfile.Anonymous(1 << 16)
	require.NoError(t, err)
	defer func() { require.NoError(t, release()) }()

	c, err := New(mem, nil)
	require.NoError(t, err)

	ref, _, err := c.AllocAligned(16, 100)
	require.NoError(t, err)
	require.Equal(t, c.Pools()[0].Addr+blockStartOffset, c.Addr(ref))
	require.Equal(t, 104, c.BlockSize(ref))
	require.Equal(t, 1, c.FreeInfo().FreeBlocks)
}

// Test_AllocAligned_ReallocAndFree tests that aligned refs behave like any other.
func Test_AllocAligned_ReallocAndFree(t *testing.T) {
	c, _ := newTestControl(t, testPoolSize, nil)

	ref, data, err := c.AllocAligned(256, 300)
	require.NoError(t, err)
	fill(data, 4)

	shrunk, out, err := c.Realloc(ref, 64)
	require.NoError(t, err)
	require.Equal(t, ref, shrunk)
	require.Zero(t, c.Addr(shrunk)%256)
	requirePattern(t, out, 4)

	grown, out, err := c.Realloc(shrunk, 2000)
	require.NoError(t, err)
	requirePattern(t, out[:64], 4)

	require.NoError(t, c.Free(grown))
	require.Equal(t, 1, c.FreeInfo().FreeBlocks)
	require.NoError(t, c.Check())
}

// Test_AllocAligned_OutOfMemory tests an aligned request that cannot be satisfied.
func Test_AllocAligned_OutOfMemory(t *testing.T) {
	c, _ := newTestControl(t, 4096, nil)

	_, _, err := c.AllocAligned(4096, 64)
	require.ErrorIs(t, err, ErrOutOfMemory)
	_, _, err = c.AllocAligned(MaxBlockSize, 64)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, 2, c.Stats().AllocFailures)
	require.NoError(t, c.Check())
}
