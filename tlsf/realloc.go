package tlsf

import "fmt"

// Realloc resizes the allocation behind ref to size bytes, preserving the
// first min(old capacity, size) bytes.
//
//   - ref == 0 behaves as Alloc(size).
//   - size == 0 frees ref and returns the zero Ref.
//   - A request that fits the current block shrinks it in place.
//   - A larger request first tries to absorb a free successor; otherwise the
//     data moves to a new block and the old one is freed.
//
// On failure the original allocation is left untouched and still valid.
func (c *Control) Realloc(ref Ref, size int) (Ref, []byte, error) {
	if c.destroyed {
		return 0, nil, ErrDestroyed
	}
	if ref == 0 {
		return c.Alloc(size)
	}
	if size == 0 {
		return 0, nil, c.Free(ref)
	}
	if size < 0 {
		return 0, nil, fmt.Errorf("%w: reallocation size %d", ErrInvalidArgument, size)
	}
	b, err := c.usedBlock(ref)
	if err != nil {
		return 0, nil, err
	}
	c.stats.ReallocCalls++

	adjust := adjustRequestSize(size, alignSize)
	if adjust == 0 {
		return 0, nil, c.outOfMemory("realloc", size)
	}
	current := c.size(b)
	next := c.next(b)
	combined := current + c.size(next) + AllocOverhead

	if adjust > current && (!c.isFree(next) || adjust > combined) {
		moved, out, err := c.Alloc(size)
		if err != nil {
			return 0, nil, err
		}
		copy(out, c.payload(ref, current))
		c.Free(ref) //nolint:errcheck // ref was validated above
		c.stats.ReallocMoved++
		return moved, out, nil
	}

	if adjust > current {
		c.mergeNext(b)
		c.markAsUsed(b)
	}
	c.trimUsed(b, adjust)
	c.stats.ReallocInPlace++
	return ref, c.payload(ref, size), nil
}
