package tlsf

import (
	"fmt"

	"github.com/joshuapare/tlsfkit/internal/buf"
)

// gapMinimum is the smallest leading gap that can stand as a free block of
// its own, header included.
const gapMinimum = minSplitSize

// AllocAligned allocates size bytes whose address (see Addr) is a multiple of
// align, which must be a power of two.
//
// The request is over-sized by align plus gapMinimum so that the first aligned
// payload address can always be reached by splitting a whole free block off
// the front. A pushed gap is at most align+24 bytes, which still leaves adjust
// bytes behind it. That keeps the header directly in front of the returned payload,
// so Free and Realloc treat aligned refs like any other. A gap smaller than a
// block is pushed forward to the next aligned address instead.
func (c *Control) AllocAligned(align, size int) (Ref, []byte, error) {
	if c.destroyed {
		return 0, nil, ErrDestroyed
	}
	if !buf.IsPow2(align) {
		return 0, nil, fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidArgument, align)
	}
	if size <= 0 {
		return 0, nil, fmt.Errorf("%w: allocation size %d", ErrInvalidArgument, size)
	}
	c.stats.AlignedAllocCalls++

	adjust := adjustRequestSize(size, alignSize)
	if adjust == 0 || align >= MaxBlockSize {
		return 0, nil, c.outOfMemory("aligned alloc", size)
	}
	alignedSize := adjust
	if align > alignSize {
		alignedSize = adjustRequestSize(adjust+align+gapMinimum, alignSize)
		if alignedSize == 0 {
			return 0, nil, c.outOfMemory("aligned alloc", size)
		}
	}

	b := c.locateFree(alignedSize)
	if b == nilBlock {
		return 0, nil, c.outOfMemory("aligned alloc", size)
	}

	addr := c.addr(toRef(b))
	aligned := buf.AlignAddr(addr, uintptr(align))
	gap := int(aligned - addr)
	if gap != 0 && gap < gapMinimum {
		offset := max(gapMinimum-gap, align)
		aligned = buf.AlignAddr(aligned+uintptr(offset), uintptr(align))
		gap = int(aligned - addr)
	}
	if gap != 0 {
		b = c.trimFreeLeading(b, gap)
	}

	ref := c.prepareUsed(b, adjust)
	return ref, c.payload(ref, size), nil
}
