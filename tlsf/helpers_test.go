package tlsf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestControl creates an allocator over a fresh heap buffer of size bytes.
func newTestControl(t testing.TB, size int, cfg *Config) (*Control, []byte) {
	t.Helper()
	mem := make([]byte, size)
	c, err := New(mem, cfg)
	require.NoError(t, err)
	return c, mem
}

// poolBlocks returns every block of every pool in address order.
func poolBlocks(t testing.TB, c *Control) map[PoolID][]BlockInfo {
	t.Helper()
	out := make(map[PoolID][]BlockInfo)
	for _, p := range c.Pools() {
		err := c.WalkPool(p.ID, func(bi BlockInfo) bool {
			out[p.ID] = append(out[p.ID], bi)
			return true
		})
		require.NoError(t, err)
	}
	return out
}

// requireConservation asserts that in every pool the blocks plus their
// headers account for exactly the pool's usable bytes minus PoolOverhead,
// and that used + free payload totals agree with FreeInfo.
func requireConservation(t testing.TB, c *Control) {
	t.Helper()
	blocks := poolBlocks(t, c)
	used, free, headers, want := 0, 0, 0, 0
	for _, p := range c.Pools() {
		poolTotal := 0
		for _, bi := range blocks[p.ID] {
			poolTotal += bi.Size + AllocOverhead
			headers += AllocOverhead
			if bi.Used {
				used += bi.Size
			} else {
				free += bi.Size
			}
		}
		require.Equal(t, p.Bytes-PoolOverhead, poolTotal, "pool %d not exactly partitioned", p.ID)
		want += p.Bytes - PoolOverhead
	}
	require.Equal(t, want, used+free+headers)
	require.Equal(t, free, c.FreeInfo().TotalFree, "FreeInfo disagrees with the physical walk")
}

// requireNoAdjacentFree asserts that no two physically adjacent blocks are free.
func requireNoAdjacentFree(t testing.TB, c *Control) {
	t.Helper()
	for id, blocks := range poolBlocks(t, c) {
		for i := 1; i < len(blocks); i++ {
			require.False(t, !blocks[i-1].Used && !blocks[i].Used,
				"pool %d: blocks %d and %d are both free", id, i-1, i)
		}
	}
}

// fill writes a pattern derived from seed into data.
func fill(data []byte, seed byte) {
	for i := range data {
		data[i] = seed + byte(i*7)
	}
}

// requirePattern asserts data holds the pattern written by fill.
func requirePattern(t testing.TB, data []byte, seed byte) {
	t.Helper()
	for i := range data {
		if data[i] != seed+byte(i*7) {
			require.Failf(t, "pattern mismatch", "byte %d: got %#x want %#x", i, data[i], seed+byte(i*7))
		}
	}
}
