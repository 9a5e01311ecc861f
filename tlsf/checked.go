package tlsf

import "fmt"

// Checked wraps a Control with bookkeeping for debug builds and tests. It
// remembers every live reference it handed out, so freeing or reallocating
// anything else (a double free, a stale ref, a ref from another allocator)
// fails with ErrUsage instead of corrupting the pools. With verify set, the
// whole structure is re-validated with Check after every mutation.
//
// The bookkeeping costs a map entry per live allocation and is not bounded
// time; keep it out of latency-sensitive paths.
type Checked struct {
	c      *Control
	live   map[Ref]int
	verify bool
}

// NewChecked wraps c. Allocations made directly on c are unknown to the wrapper.
func NewChecked(c *Control, verify bool) *Checked {
	return &Checked{
		c:      c,
		live:   make(map[Ref]int),
		verify: verify,
	}
}

// Control returns the wrapped allocator.
func (k *Checked) Control() *Control {
	return k.c
}

// Live returns the number of outstanding allocations.
func (k *Checked) Live() int {
	return len(k.live)
}

// Requested returns the size originally requested for a live ref.
func (k *Checked) Requested(ref Ref) (int, bool) {
	size, ok := k.live[ref]
	return size, ok
}

// Alloc is Control.Alloc with tracking.
//
// If verification fails after the allocation succeeded, the new ref and its
// bytes are returned along with the ErrCorrupt error and stay tracked. Callers
// that discard results on error leak the block; free it first if the pools
// are still worth using.
func (k *Checked) Alloc(size int) (Ref, []byte, error) {
	ref, data, err := k.c.Alloc(size)
	if err != nil {
		return 0, nil, err
	}
	k.live[ref] = size
	return ref, data, k.after("alloc")
}

// AllocAligned is Control.AllocAligned with tracking. Verification failures
// are reported the same way as for Alloc.
func (k *Checked) AllocAligned(align, size int) (Ref, []byte, error) {
	ref, data, err := k.c.AllocAligned(align, size)
	if err != nil {
		return 0, nil, err
	}
	k.live[ref] = size
	return ref, data, k.after("aligned alloc")
}

// Free is Control.Free, rejecting refs that are not live.
func (k *Checked) Free(ref Ref) error {
	if ref == 0 {
		return nil
	}
	if err := k.validate(ref); err != nil {
		return err
	}
	if err := k.c.Free(ref); err != nil {
		return err
	}
	delete(k.live, ref)
	return k.after("free")
}

// Realloc is Control.Realloc, rejecting refs that are not live.
func (k *Checked) Realloc(ref Ref, size int) (Ref, []byte, error) {
	if ref == 0 {
		return k.Alloc(size)
	}
	if err := k.validate(ref); err != nil {
		return 0, nil, err
	}
	moved, data, err := k.c.Realloc(ref, size)
	if err != nil {
		return 0, nil, err
	}
	delete(k.live, ref)
	if moved != 0 {
		k.live[moved] = size
	}
	return moved, data, k.after("realloc")
}

// RemovePool is Control.RemovePool followed by verification.
func (k *Checked) RemovePool(id PoolID) error {
	if err := k.c.RemovePool(id); err != nil {
		return err
	}
	return k.after("remove pool")
}

// validate checks ref against the live set and its header against the pool.
func (k *Checked) validate(ref Ref) error {
	if _, ok := k.live[ref]; !ok {
		return fmt.Errorf("%w: ref %#x is not a live allocation (double free or foreign ref)",
			ErrUsage, uint64(ref))
	}
	b, err := k.c.usedBlock(ref)
	if err != nil {
		return err
	}
	if n := k.c.next(b); k.c.isPrevFree(n) {
		return fmt.Errorf("%w: block after ref %#x records it as free", ErrUsage, uint64(ref))
	}
	return nil
}

func (k *Checked) after(op string) error {
	if !k.verify {
		return nil
	}
	if err := k.c.Check(); err != nil {
		return fmt.Errorf("after %s: %w", op, err)
	}
	return nil
}
