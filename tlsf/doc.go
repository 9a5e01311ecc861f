// Package tlsf implements a Two-Level Segregated Fit allocator over
// caller-supplied byte regions.
//
// # Overview
//
// TLSF gives bounded-time allocation and deallocation with immediate
// coalescing. Free blocks are filed in a grid of segregated lists indexed by
// a first-level class (the most significant bit of the size) and a
// second-level class (the next few bits). Two bitmaps record which lists are
// non-empty, so finding a block that fits is two find-first-set operations
// regardless of how fragmented the pools are.
//
// # Usage Example
//
//	mem := make([]byte, 1<<20)
//	c, err := tlsf.New(mem, nil)
//	if err != nil {
//	    return err
//	}
//
//	ref, buf, err := c.Alloc(256)
//	if err != nil {
//	    return err // errors.Is(err, tlsf.ErrOutOfMemory)
//	}
//	copy(buf, payload)
//
//	ref, buf, err = c.Realloc(ref, 4096)
//	...
//	_ = c.Free(ref)
//
// # References
//
// Allocations are named by Ref, a uint64 holding the pool slot and the payload
// offset inside the pool buffer. The zero Ref is the null reference. Bytes
// returns the payload of a live Ref and Addr its address; AllocAligned
// guarantees alignment of that address.
//
// # Block Layout
//
// Blocks are contiguous inside a pool and carry boundary tags: an 8-byte size
// word with the block's free flag and its predecessor's free flag in the low
// bits, preceded by a back-link that is only maintained while the predecessor
// is free. Free blocks keep their list links in their own payload, so the
// per-allocation overhead is a single word (AllocOverhead).
//
// # Size Classes
//
// With DefaultConfig (32 second-level subdivisions):
//
//	Class 0:   0 -  255 bytes, 8-byte steps
//	Class 1: 256 -  511 bytes, 8-byte steps
//	Class 2: 512 - 1023 bytes, 16-byte steps
//	Class n: 2^(n+7) - 2^(n+8)-1 bytes, 2^(n+2)-byte steps
//
// Requests are rounded up to the next class boundary before searching, so any
// block found is large enough without inspecting it.
//
// # Pools
//
// New registers the first pool; AddPool and RemovePool manage more. Pools
// never grow and never coalesce with each other. The backing memory stays
// owned by the caller; internal/mmfile offers mmap-backed regions.
//
// # Thread Safety
//
// Control instances are not thread-safe. Callers must serialize every call
// against one instance, for example behind a single mutex.
//
// # Safety Layers
//
// Free and Realloc bounds-check refs and reject blocks that are already free.
// Checked adds a live-reference set and optional full Check after every
// mutation for debugging.
package tlsf
