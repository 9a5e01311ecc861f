package tlsf

import (
	"log/slog"
	"math/bits"
)

// Ref names an allocated payload. The high bits hold the pool slot (plus one)
// and the low bits the payload's byte offset inside that pool's buffer.
// The zero Ref is the null reference.
type Ref uint64

// PoolID identifies a pool registered with a Control.
type PoolID uint32

const (
	refOffsetBits = 40
	refOffsetMask = 1<<refOffsetBits - 1
	maxPoolSlots  = 1<<(64-refOffsetBits) - 1
)

func makeRef(slot, off int) Ref {
	return Ref(uint64(slot+1)<<refOffsetBits | uint64(off))
}

func (r Ref) slot() int   { return int(uint64(r)>>refOffsetBits) - 1 }
func (r Ref) offset() int { return int(uint64(r) & refOffsetMask) }

// blockRef addresses a block header with the same encoding as Ref.
// Free-list links stored inside the pools are blockRefs too.
type blockRef uint64

const nilBlock blockRef = 0

func (b blockRef) slot() int   { return int(uint64(b)>>refOffsetBits) - 1 }
func (b blockRef) offset() int { return int(uint64(b) & refOffsetMask) }

// Block geometry. All sizes are multiples of alignSize.
const (
	alignSizeLog2 = 3
	alignSize     = 1 << alignSizeLog2

	// Word offsets inside a block, relative to the block address. The
	// back-link lives in the last word of the previous block's payload and is
	// only meaningful while that block is free. The free-list links live in the
	// payload and are only meaningful while this block is free.
	prevPhysOffset = 0
	sizeOffset     = 8
	nextFreeOffset = 16
	prevFreeOffset = 24

	// blockStartOffset is the distance from a block address to its payload.
	blockStartOffset = 16

	// AllocOverhead is the per-block header cost: only the size word, since
	// the back-link overlaps the previous block's payload.
	AllocOverhead = 8

	// MinBlockSize is the smallest payload a block can have. A free block must
	// hold both free-list links and the following block's back-link.
	MinBlockSize = 24

	// minSplitSize is the smallest tail worth carving into its own free block,
	// header included.
	minSplitSize = MinBlockSize + AllocOverhead

	// PoolOverhead is the part of a pool's usable bytes that belongs to no
	// block: the first block's unused back-link and the end sentinel's size word.
	PoolOverhead = 2 * AllocOverhead

	// MinPoolSize is the smallest aligned region AddPool accepts.
	MinPoolSize = PoolOverhead + AllocOverhead + MinBlockSize

	flIndexMax = 30 + 2*(bits.UintSize/64)

	// MaxBlockSize bounds every block, and therefore every request and pool.
	MaxBlockSize = 1 << flIndexMax
)

// Size-class table bounds, sized for the finest supported configuration.
const (
	slIndexCountLog2Max = 5
	slIndexCountMax     = 1 << slIndexCountLog2Max
	flIndexCountMax     = flIndexMax - (1 + alignSizeLog2) + 1
)

// Config tunes a Control. The zero value selects DefaultConfig and discards logs
// unless TLSF_LOG_ALLOC is set.
type Config struct {
	// SizeClasses selects the second-level subdivision (nil for DefaultConfig).
	SizeClasses *SizeClassConfig

	// Logger receives pool lifecycle and allocation-failure records.
	Logger *slog.Logger
}

// FreeInfo summarizes the free space of all pools.
type FreeInfo struct {
	TotalFree   int // sum of free block payload sizes
	LargestFree int // payload size of the largest free block
	FreeBlocks  int // number of free blocks
}

// FragmentRatio returns LargestFree/TotalFree: 1 when all free space is one
// contiguous block, approaching 0 as it splinters. Returns 0 with no free space.
func (fi FreeInfo) FragmentRatio() float64 {
	if fi.TotalFree == 0 {
		return 0
	}
	return float64(fi.LargestFree) / float64(fi.TotalFree)
}

// BlockInfo describes one block visited by WalkPool.
type BlockInfo struct {
	Ref  Ref  // payload reference
	Size int  // payload capacity in bytes
	Used bool // false for free blocks
}

// PoolInfo describes a registered pool.
type PoolInfo struct {
	ID    PoolID
	Bytes int     // usable, aligned bytes managed by the pool
	Addr  uintptr // address of the first managed byte
}

// Stats holds operation counters for instrumentation and tests.
type Stats struct {
	AllocCalls        int // Alloc calls, including those made by Realloc
	AlignedAllocCalls int // AllocAligned calls
	ReallocCalls      int // Realloc calls on a live reference
	FreeCalls         int // Free calls on a live reference
	AllocFailures     int // requests that ended in ErrOutOfMemory
	ExactFitFallbacks int // allocations served by the exact-fit bucket scan
	ExactFitScanned   int // free blocks examined by the exact-fit bucket scan
	SplitCount        int // blocks split to return a remainder to the free lists
	CoalesceForward   int // merges with the following block
	CoalesceBackward  int // merges with the preceding block
	ReallocInPlace    int // reallocations served without moving
	ReallocMoved      int // reallocations that copied into a new block
}
