package tlsf

import (
	"fmt"

	"github.com/joshuapare/tlsfkit/internal/buf"
)

// AddPool formats mem into a pool and files its single free block.
//
// Layout of a pool with usable bytes U starting at the first aligned byte:
//
//	[back-link][size|free][ ...payload: U-24 bytes... ][sentinel size 0|prevFree]
//
// The first block's prev-free flag is clear, which stands in for a leading
// used sentinel; the trailing sentinel is a zero-size used block that stops
// forward coalescing at the pool edge.
//
// Returns ErrInvalidArgument if mem is too small, too large, or overlaps a
// registered pool.
func (c *Control) AddPool(mem []byte) (PoolID, error) {
	if c.destroyed {
		return 0, ErrDestroyed
	}
	if len(mem) == 0 {
		return 0, fmt.Errorf("%w: empty pool", ErrInvalidArgument)
	}

	base := sliceAddr(mem)
	start := int(buf.AlignAddr(base, alignSize) - base)
	usable := 0
	if start < len(mem) {
		usable = buf.AlignDown(len(mem)-start, alignSize)
	}
	blockSize := usable - PoolOverhead - AllocOverhead
	if blockSize < MinBlockSize {
		return 0, fmt.Errorf("%w: pool of %d bytes is below the %d byte minimum",
			ErrInvalidArgument, len(mem), MinPoolSize)
	}
	if blockSize >= MaxBlockSize {
		return 0, fmt.Errorf("%w: pool of %d bytes exceeds the %d byte maximum",
			ErrInvalidArgument, len(mem), MaxBlockSize)
	}
	for _, p := range c.pools {
		if p != nil && base < p.base+uintptr(len(p.data)) && p.base < base+uintptr(len(mem)) {
			return 0, fmt.Errorf("%w: region overlaps pool %d", ErrInvalidArgument, p.id)
		}
	}

	slot := c.freeSlot()
	if slot >= maxPoolSlots {
		return 0, fmt.Errorf("%w: too many pools", ErrInvalidArgument)
	}
	c.nextPoolID++
	p := &pool{
		id:    c.nextPoolID,
		slot:  slot,
		data:  mem,
		start: start,
		size:  usable,
		base:  base,
	}
	if slot == len(c.pools) {
		c.pools = append(c.pools, p)
	} else {
		c.pools[slot] = p
	}

	b := p.firstBlock()
	c.initHeader(b, blockSize, blockFreeBit)
	c.insertBlock(b)

	sentinel := c.linkNext(b)
	c.initHeader(sentinel, 0, blockPrevFreeBit)

	c.log.Info("tlsf: pool added", "pool", p.id, "bytes", usable, "block", blockSize)
	return p.id, nil
}

// RemovePool detaches a pool. The pool must be entirely free: removing a pool
// with live blocks fails with ErrPoolInUse and leaves it registered.
func (c *Control) RemovePool(id PoolID) error {
	if c.destroyed {
		return ErrDestroyed
	}
	p := c.lookupPool(id)
	if p == nil {
		return fmt.Errorf("%w: unknown pool %d", ErrInvalidArgument, id)
	}

	b := p.firstBlock()
	if !c.isFree(b) || !c.isLast(c.next(b)) {
		return fmt.Errorf("%w (pool %d)", ErrPoolInUse, id)
	}
	c.removeBlock(b)
	c.pools[p.slot] = nil

	c.log.Info("tlsf: pool removed", "pool", id, "bytes", p.size)
	return nil
}

// Pools lists the registered pools in slot order.
func (c *Control) Pools() []PoolInfo {
	infos := make([]PoolInfo, 0, len(c.pools))
	for _, p := range c.pools {
		if p == nil {
			continue
		}
		infos = append(infos, PoolInfo{ID: p.id, Bytes: p.size, Addr: p.base + uintptr(p.start)})
	}
	return infos
}

func (c *Control) lookupPool(id PoolID) *pool {
	for _, p := range c.pools {
		if p != nil && p.id == id {
			return p
		}
	}
	return nil
}

func (c *Control) freeSlot() int {
	for i, p := range c.pools {
		if p == nil {
			return i
		}
	}
	return len(c.pools)
}

// firstBlock returns the block at the start of p.
func (p *pool) firstBlock() blockRef {
	return blockRef(makeRef(p.slot, p.start))
}
