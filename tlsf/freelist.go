package tlsf

// Free-list links live in the payload of free blocks, so the table itself
// only stores bucket heads.

func (c *Control) freeNext(b blockRef) blockRef { return blockRef(c.load(b, nextFreeOffset)) }
func (c *Control) freePrev(b blockRef) blockRef { return blockRef(c.load(b, prevFreeOffset)) }

func (c *Control) setFreeNext(b, next blockRef) { c.store(b, nextFreeOffset, uint64(next)) }
func (c *Control) setFreePrev(b, prev blockRef) { c.store(b, prevFreeOffset, uint64(prev)) }

// removeFree unlinks b from bucket (fl, sl), clearing the bitmap bits when
// the bucket empties.
func (c *Control) removeFree(b blockRef, fl, sl int) {
	prev := c.freePrev(b)
	next := c.freeNext(b)
	if next != nilBlock {
		c.setFreePrev(next, prev)
	}
	if prev != nilBlock {
		c.setFreeNext(prev, next)
	}
	if c.heads[fl][sl] == b {
		c.heads[fl][sl] = next
		if next == nilBlock {
			c.index.clear(fl, sl)
		}
	}
}

// insertFree pushes b onto the front of bucket (fl, sl).
func (c *Control) insertFree(b blockRef, fl, sl int) {
	current := c.heads[fl][sl]
	c.setFreeNext(b, current)
	c.setFreePrev(b, nilBlock)
	if current != nilBlock {
		c.setFreePrev(current, b)
	}
	c.heads[fl][sl] = b
	c.index.set(fl, sl)
}

// removeBlock unlinks a free block from the bucket its size maps to.
func (c *Control) removeBlock(b blockRef) {
	fl, sl := c.classes.mappingInsert(c.size(b))
	c.removeFree(b, fl, sl)
}

// insertBlock files a free block under the bucket its size maps to.
func (c *Control) insertBlock(b blockRef) {
	fl, sl := c.classes.mappingInsert(c.size(b))
	c.insertFree(b, fl, sl)
}

// locateFree finds and unlinks a free block of at least size bytes.
//
// The bitmap search only inspects classes whose every member is large enough,
// so it never needs to look at a block. When it comes up empty, the bucket
// that size itself rounds down to may still hold a block that fits. The first
// maxExactFitScan blocks of that bucket are tried before giving up.
func (c *Control) locateFree(size int) blockRef {
	if size == 0 {
		return nilBlock
	}
	b := nilBlock
	fl, sl := c.classes.mappingSearch(size)
	if fl < c.classes.flCount {
		if bfl, bsl, ok := c.index.find(fl, sl); ok {
			fl, sl = bfl, bsl
			b = c.heads[fl][sl]
		}
	}
	if b == nilBlock {
		b, fl, sl = c.exactFit(size)
		if b != nilBlock {
			c.stats.ExactFitFallbacks++
		}
	}
	if b != nilBlock {
		c.removeFree(b, fl, sl)
	}
	return b
}

// maxExactFitScan caps the blocks exactFit looks at, so a failing
// allocation stays bounded no matter how long the bucket grows.
const maxExactFitScan = 32

// exactFit scans the head of the round-down bucket of size for a block that
// fits. It is best effort: a fitting block further down the list is missed.
func (c *Control) exactFit(size int) (blockRef, int, int) {
	fl, sl := c.classes.mappingInsert(size)
	if fl >= c.classes.flCount {
		return nilBlock, 0, 0
	}
	b := c.heads[fl][sl]
	for iter := 0; iter < maxExactFitScan; iter++ {
		if b == nilBlock {
			break
		}
		c.stats.ExactFitScanned++
		if c.size(b) >= size {
			return b, fl, sl
		}
		b = c.freeNext(b)
	}
	return nilBlock, 0, 0
}
