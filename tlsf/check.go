package tlsf

import "fmt"

// WalkPool calls fn for each block of pool id in address order, stopping
// early when fn returns false. The end sentinel is not reported.
func (c *Control) WalkPool(id PoolID, fn func(BlockInfo) bool) error {
	if c.destroyed {
		return ErrDestroyed
	}
	p := c.lookupPool(id)
	if p == nil {
		return fmt.Errorf("%w: unknown pool %d", ErrInvalidArgument, id)
	}
	for b := p.firstBlock(); !c.isLast(b); b = c.next(b) {
		info := BlockInfo{Ref: toRef(b), Size: c.size(b), Used: !c.isFree(b)}
		if !fn(info) {
			break
		}
	}
	return nil
}

// Check validates every structure the allocator maintains:
//
//   - bitmap bits agree with bucket heads, and first level with second level
//   - each listed block is free, correctly back-linked, and filed under the
//     bucket its size maps to
//   - each pool is exactly partitioned by its blocks, ends in its sentinel,
//     and never has two physically adjacent free blocks
//   - prev-free flags and back-links match the physical chain
//   - the free lists and the pools agree on the number of free blocks
//
// Returns an error wrapping ErrCorrupt describing the first violation.
func (c *Control) Check() error {
	if c.destroyed {
		return ErrDestroyed
	}

	walked := 0
	maxBlocks := 0
	for _, p := range c.pools {
		if p == nil {
			continue
		}
		free, err := c.checkPool(p)
		if err != nil {
			return err
		}
		walked += free
		maxBlocks += p.size / (MinBlockSize + AllocOverhead)
	}

	if c.index.firstLevel>>uint(c.classes.flCount) != 0 {
		return corruptf("first-level bitmap %#x has bits past class %d", c.index.firstLevel, c.classes.flCount)
	}
	listed := 0
	for fl := 0; fl < c.classes.flCount; fl++ {
		slMap := c.index.secondLevel[fl]
		flBit := c.index.firstLevel&(1<<uint(fl)) != 0
		if flBit != (slMap != 0) {
			return corruptf("first-level bit %d is %v but second-level map is %#x", fl, flBit, slMap)
		}
		if slMap>>uint(c.classes.slCount) != 0 {
			return corruptf("second-level bitmap %d (%#x) has bits past %d", fl, slMap, c.classes.slCount)
		}
		for sl := 0; sl < c.classes.slCount; sl++ {
			head := c.heads[fl][sl]
			slBit := slMap&(1<<uint(sl)) != 0
			if slBit != (head != nilBlock) {
				return corruptf("bucket (%d,%d) bit is %v but head is %#x", fl, sl, slBit, uint64(head))
			}
			prev := nilBlock
			for b := head; b != nilBlock; b = c.freeNext(b) {
				if err := c.checkListed(b, prev, fl, sl); err != nil {
					return err
				}
				prev = b
				listed++
				if listed > maxBlocks {
					return corruptf("free lists hold more blocks than the pools can (cycle at bucket (%d,%d))", fl, sl)
				}
			}
		}
	}

	if listed != walked {
		return corruptf("free lists hold %d blocks but pools contain %d free blocks", listed, walked)
	}
	return nil
}

func (c *Control) checkListed(b, prev blockRef, fl, sl int) error {
	if !c.validBlock(b) {
		return corruptf("bucket (%d,%d) links to invalid block %#x", fl, sl, uint64(b))
	}
	if c.freePrev(b) != prev {
		return corruptf("block %#x back-link %#x, want %#x", uint64(b), uint64(c.freePrev(b)), uint64(prev))
	}
	if !c.isFree(b) {
		return corruptf("block %#x in bucket (%d,%d) is not marked free", uint64(b), fl, sl)
	}
	if c.isPrevFree(b) {
		return corruptf("free block %#x follows another free block", uint64(b))
	}
	size := c.size(b)
	if size < MinBlockSize {
		return corruptf("free block %#x is %d bytes, below the minimum", uint64(b), size)
	}
	n := c.next(b)
	if c.isFree(n) {
		return corruptf("free block %#x is followed by free block %#x", uint64(b), uint64(n))
	}
	if !c.isPrevFree(n) {
		return corruptf("block after free block %#x does not record it as free", uint64(b))
	}
	if bfl, bsl := c.classes.mappingInsert(size); bfl != fl || bsl != sl {
		return corruptf("block %#x of %d bytes filed under (%d,%d), belongs in (%d,%d)",
			uint64(b), size, fl, sl, bfl, bsl)
	}
	return nil
}

// checkPool walks p physically and returns its number of free blocks.
func (c *Control) checkPool(p *pool) (int, error) {
	sentinelAt := p.start + p.size - 2*AllocOverhead
	free := 0
	total := 0
	prev := nilBlock
	prevFree := false

	b := p.firstBlock()
	for {
		off := b.offset()
		if off > sentinelAt {
			return 0, corruptf("pool %d: block at %d runs past the sentinel at %d", p.id, off, sentinelAt)
		}
		if c.isPrevFree(b) != prevFree {
			return 0, corruptf("pool %d: block at %d prev-free flag is %v, want %v",
				p.id, off, c.isPrevFree(b), prevFree)
		}
		if prevFree && c.prevPhys(b) != prev {
			return 0, corruptf("pool %d: block at %d back-link %#x, want %#x",
				p.id, off, uint64(c.prevPhys(b)), uint64(prev))
		}
		size := c.size(b)
		if size == 0 {
			if off != sentinelAt {
				return 0, corruptf("pool %d: zero-size block at %d, sentinel expected at %d", p.id, off, sentinelAt)
			}
			if c.isFree(b) {
				return 0, corruptf("pool %d: sentinel marked free", p.id)
			}
			break
		}
		if size%alignSize != 0 || size < MinBlockSize {
			return 0, corruptf("pool %d: block at %d has bad size %d", p.id, off, size)
		}
		isFree := c.isFree(b)
		if isFree && prevFree {
			return 0, corruptf("pool %d: adjacent free blocks at %d", p.id, off)
		}
		if isFree {
			free++
		}
		total += size + AllocOverhead
		prev, prevFree = b, isFree
		b = c.next(b)
	}

	if want := p.size - PoolOverhead; total != want {
		return 0, corruptf("pool %d: blocks cover %d bytes, want %d", p.id, total, want)
	}
	return free, nil
}

// validBlock reports whether b lies on a word boundary inside a live pool,
// before the pool's sentinel.
func (c *Control) validBlock(b blockRef) bool {
	slot := b.slot()
	if slot < 0 || slot >= len(c.pools) || c.pools[slot] == nil {
		return false
	}
	p := c.pools[slot]
	off := b.offset()
	return off >= p.start && off < p.start+p.size-2*AllocOverhead && (off-p.start)%alignSize == 0
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
