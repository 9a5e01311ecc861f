package tlsf

import (
	"fmt"
	"log/slog"
	"unsafe"
)

// Control is a TLSF allocator instance: the bitmap index, the free-list
// table, and the pools it manages. Allocation and free run in bounded time
// and, on success, touch nothing but the index and the pool memory.
//
// A Control is not safe for concurrent use; callers serialize access.
type Control struct {
	classes sizeClassTable
	index   bitmapIndex
	heads   [flIndexCountMax][slIndexCountMax]blockRef

	pools      []*pool
	nextPoolID PoolID

	stats     Stats
	log       *slog.Logger
	destroyed bool
}

// pool is a caller-owned region formatted into a chain of blocks. The first
// block starts at data[start]; the end sentinel's size word is the last word
// of the usable range.
type pool struct {
	id    PoolID
	slot  int
	data  []byte
	start int     // offset of the first block
	size  int     // usable aligned bytes from start
	base  uintptr // address of data[0]
}

// New creates an allocator managing mem as its first pool.
//
// Parameters:
//   - mem: backing memory, owned by the caller and never released by the allocator
//   - cfg: size classes and logger (nil for defaults)
func New(mem []byte, cfg *Config) (*Control, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	sizeClasses := cfg.SizeClasses
	if sizeClasses == nil {
		sizeClasses = &DefaultConfig
	}
	classes, err := newSizeClassTable(*sizeClasses)
	if err != nil {
		return nil, err
	}

	c := &Control{
		classes: classes,
		log:     newLogger(cfg.Logger),
	}
	if _, err := c.AddPool(mem); err != nil {
		return nil, err
	}
	return c, nil
}

// Destroy detaches every pool and invalidates the allocator. Backing buffers
// are left to the caller; refs into them become meaningless.
func (c *Control) Destroy() {
	if c.destroyed {
		return
	}
	c.log.Info("tlsf: destroyed", "pools", len(c.Pools()))
	c.pools = nil
	c.index = bitmapIndex{}
	c.heads = [flIndexCountMax][slIndexCountMax]blockRef{}
	c.destroyed = true
}

// Alloc allocates at least size bytes and returns the reference together with
// a slice of length size over the payload (its capacity is the block's full
// capacity). A size of zero or less is rejected with ErrInvalidArgument.
func (c *Control) Alloc(size int) (Ref, []byte, error) {
	if c.destroyed {
		return 0, nil, ErrDestroyed
	}
	if size <= 0 {
		return 0, nil, fmt.Errorf("%w: allocation size %d", ErrInvalidArgument, size)
	}
	c.stats.AllocCalls++

	adjust := adjustRequestSize(size, alignSize)
	b := c.locateFree(adjust)
	if b == nilBlock {
		return 0, nil, c.outOfMemory("alloc", size)
	}
	ref := c.prepareUsed(b, adjust)
	return ref, c.payload(ref, size), nil
}

// Free releases the block behind ref and merges it with free neighbors.
// A zero ref is a no-op.
//
// Refs are checked for bounds and for already being free, which catches the
// common double free. A ref that was never returned by this allocator but
// lands on plausible header bits is not detected; use Checked for that.
func (c *Control) Free(ref Ref) error {
	if ref == 0 {
		return nil
	}
	if c.destroyed {
		return ErrDestroyed
	}
	b, err := c.usedBlock(ref)
	if err != nil {
		return err
	}
	c.stats.FreeCalls++

	c.markAsFree(b)
	b = c.mergePrev(b)
	b = c.mergeNext(b)
	c.insertBlock(b)
	return nil
}

// Bytes returns the full payload of a live allocation, or nil for an invalid ref.
func (c *Control) Bytes(ref Ref) []byte {
	b, err := c.usedBlock(ref)
	if err != nil {
		return nil
	}
	return c.payload(ref, c.size(b))
}

// BlockSize returns the payload capacity of a live allocation, which may
// exceed the requested size. Returns 0 for an invalid ref.
func (c *Control) BlockSize(ref Ref) int {
	b, err := c.usedBlock(ref)
	if err != nil {
		return 0
	}
	return c.size(b)
}

// Addr returns the memory address of the payload behind ref, or 0 for an
// invalid ref. Alignment guarantees of AllocAligned hold for this address.
func (c *Control) Addr(ref Ref) uintptr {
	if _, err := c.usedBlock(ref); err != nil {
		return 0
	}
	return c.addr(ref)
}

// Stats returns a snapshot of the operation counters.
func (c *Control) Stats() Stats {
	return c.stats
}

// SizeClasses returns the configuration the allocator was built with.
func (c *Control) SizeClasses() SizeClassConfig {
	return c.classes.config
}

func (c *Control) addr(ref Ref) uintptr {
	return c.pools[ref.slot()].base + uintptr(ref.offset())
}

// payload slices n bytes of a block's payload, capped at its capacity.
func (c *Control) payload(ref Ref, n int) []byte {
	p := c.pools[ref.slot()]
	off := ref.offset()
	capacity := c.size(fromRef(ref))
	return p.data[off : off+n : off+capacity]
}

// usedBlock validates that ref addresses a used block inside a live pool.
func (c *Control) usedBlock(ref Ref) (blockRef, error) {
	if ref == 0 || c.destroyed {
		return nilBlock, fmt.Errorf("%w: invalid ref %#x", ErrUsage, uint64(ref))
	}
	slot := ref.slot()
	if slot < 0 || slot >= len(c.pools) || c.pools[slot] == nil {
		return nilBlock, fmt.Errorf("%w: ref %#x names no registered pool", ErrUsage, uint64(ref))
	}
	p := c.pools[slot]
	off := ref.offset()
	first := p.start + blockStartOffset
	end := p.start + p.size - AllocOverhead
	if off < first || off >= end || (off-p.start)%alignSize != 0 {
		return nilBlock, fmt.Errorf("%w: ref %#x outside pool %d", ErrUsage, uint64(ref), p.id)
	}
	b := fromRef(ref)
	if c.isFree(b) {
		return nilBlock, fmt.Errorf("%w: ref %#x is already free", ErrUsage, uint64(ref))
	}
	if size := c.size(b); size < MinBlockSize || off+size > end {
		return nilBlock, fmt.Errorf("%w: ref %#x has a damaged header (size %d)", ErrUsage, uint64(ref), size)
	}
	return b, nil
}

func (c *Control) outOfMemory(op string, size int) error {
	c.stats.AllocFailures++
	c.log.Debug("tlsf: out of memory", "op", op, "size", size)
	return fmt.Errorf("%w: %s of %d bytes", ErrOutOfMemory, op, size)
}

func sliceAddr(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
}
