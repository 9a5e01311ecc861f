package tlsf

import "github.com/joshuapare/tlsfkit/internal/buf"

// Boundary tags. Every block starts with a size word whose low bits carry the
// block's own free flag and the free flag of the block physically before it.
// When the previous block is free, the word just before the size word holds a
// back-link to it, which is what makes backward coalescing O(1).
//
//	  +-----------------------+
//	0 | back-link (prev free) |  last word of the previous payload
//	8 | size | prevFree | free|  AllocOverhead
//	16| next free / payload   |
//	24| prev free             |
//	  | ...                   |
//	  +-----------------------+

const (
	blockFreeBit     = 1 << 0
	blockPrevFreeBit = 1 << 1
	blockFlagMask    = blockFreeBit | blockPrevFreeBit
)

func (c *Control) load(b blockRef, field int) uint64 {
	return buf.U64LE(c.pools[b.slot()].data, b.offset()+field)
}

func (c *Control) store(b blockRef, field int, v uint64) {
	buf.PutU64LE(c.pools[b.slot()].data, b.offset()+field, v)
}

func (c *Control) size(b blockRef) int {
	return int(c.load(b, sizeOffset) &^ blockFlagMask)
}

func (c *Control) setSize(b blockRef, size int) {
	flags := c.load(b, sizeOffset) & blockFlagMask
	c.store(b, sizeOffset, uint64(size)|flags)
}

// initHeader overwrites the whole size word; the old contents may be payload.
func (c *Control) initHeader(b blockRef, size int, flags uint64) {
	c.store(b, sizeOffset, uint64(size)|flags)
}

func (c *Control) setFlag(b blockRef, flag uint64, on bool) {
	w := c.load(b, sizeOffset)
	if on {
		w |= flag
	} else {
		w &^= flag
	}
	c.store(b, sizeOffset, w)
}

// isLast reports whether b is a pool's end sentinel.
func (c *Control) isLast(b blockRef) bool     { return c.size(b) == 0 }
func (c *Control) isFree(b blockRef) bool     { return c.load(b, sizeOffset)&blockFreeBit != 0 }
func (c *Control) isPrevFree(b blockRef) bool { return c.load(b, sizeOffset)&blockPrevFreeBit != 0 }
func (c *Control) setFree(b blockRef)         { c.setFlag(b, blockFreeBit, true) }
func (c *Control) setUsed(b blockRef)         { c.setFlag(b, blockFreeBit, false) }
func (c *Control) setPrevFree(b blockRef)     { c.setFlag(b, blockPrevFreeBit, true) }
func (c *Control) setPrevUsed(b blockRef)     { c.setFlag(b, blockPrevFreeBit, false) }

func toRef(b blockRef) Ref   { return Ref(b + blockStartOffset) }
func fromRef(r Ref) blockRef { return blockRef(r - blockStartOffset) }

// prevPhys reads the back-link. Only valid while the previous block is free.
func (c *Control) prevPhys(b blockRef) blockRef {
	return blockRef(c.load(b, prevPhysOffset))
}

// next returns the block physically following b. Only valid when b is not
// the end sentinel.
func (c *Control) next(b blockRef) blockRef {
	return b + blockRef(blockStartOffset-AllocOverhead+c.size(b))
}

// linkNext writes b into the back-link of the following block and returns it.
func (c *Control) linkNext(b blockRef) blockRef {
	n := c.next(b)
	c.store(n, prevPhysOffset, uint64(b))
	return n
}

func (c *Control) markAsFree(b blockRef) {
	n := c.linkNext(b)
	c.setPrevFree(n)
	c.setFree(b)
}

func (c *Control) markAsUsed(b blockRef) {
	n := c.next(b)
	c.setPrevUsed(n)
	c.setUsed(b)
}

func (c *Control) canSplit(b blockRef, size int) bool {
	return c.size(b) >= minSplitSize+size
}

// split shrinks b to size and turns the tail into a new free block, which is
// returned without being filed in any bucket. The caller settles the new
// block's prev-free flag.
func (c *Control) split(b blockRef, size int) blockRef {
	rem := b + blockRef(blockStartOffset-AllocOverhead+size)
	remSize := c.size(b) - (size + AllocOverhead)
	c.initHeader(rem, remSize, 0)
	c.setSize(b, size)
	c.markAsFree(rem)
	c.stats.SplitCount++
	return rem
}

// absorb merges b into the block physically before it.
func (c *Control) absorb(prev, b blockRef) blockRef {
	c.setSize(prev, c.size(prev)+c.size(b)+AllocOverhead)
	c.linkNext(prev)
	return prev
}

// mergePrev coalesces b with a free predecessor, returning the merged block.
func (c *Control) mergePrev(b blockRef) blockRef {
	if c.isPrevFree(b) {
		prev := c.prevPhys(b)
		c.removeBlock(prev)
		b = c.absorb(prev, b)
		c.stats.CoalesceBackward++
	}
	return b
}

// mergeNext coalesces b with a free successor. The end sentinel is never
// free, so merging cannot run past a pool.
func (c *Control) mergeNext(b blockRef) blockRef {
	n := c.next(b)
	if c.isFree(n) {
		c.removeBlock(n)
		b = c.absorb(b, n)
		c.stats.CoalesceForward++
	}
	return b
}

// trimFree returns the tail of a free, unlinked block to the free lists.
func (c *Control) trimFree(b blockRef, size int) {
	if c.canSplit(b, size) {
		rem := c.split(b, size)
		c.linkNext(b)
		c.setPrevFree(rem)
		c.insertBlock(rem)
	}
}

// trimUsed returns the tail of a used block to the free lists, merging it
// with a free successor.
func (c *Control) trimUsed(b blockRef, size int) {
	if c.canSplit(b, size) {
		rem := c.split(b, size)
		c.setPrevUsed(rem)
		rem = c.mergeNext(rem)
		c.insertBlock(rem)
	}
}

// trimFreeLeading splits the first gap bytes of a free, unlinked block into
// their own free block and returns the block that follows them.
func (c *Control) trimFreeLeading(b blockRef, gap int) blockRef {
	rem := b
	if c.canSplit(b, gap) {
		rem = c.split(b, gap-AllocOverhead)
		c.setPrevFree(rem)
		c.linkNext(b)
		c.insertBlock(b)
	}
	return rem
}

// prepareUsed trims a located block to size and marks it used.
func (c *Control) prepareUsed(b blockRef, size int) Ref {
	c.trimFree(b, size)
	c.markAsUsed(b)
	return toRef(b)
}
