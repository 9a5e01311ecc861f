package tlsf

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory indicates that no free block large enough was found.
	// The engine never retries and never acquires memory on its own.
	ErrOutOfMemory = errors.New("tlsf: no free block large enough")

	// ErrInvalidArgument indicates a request that can never be satisfied as given:
	// a zero or negative size, a non power-of-two alignment, or an unusable pool region.
	ErrInvalidArgument = errors.New("tlsf: invalid argument")

	// ErrUsage indicates a caller contract violation such as freeing a reference
	// that is not a live allocation of this allocator.
	ErrUsage = errors.New("tlsf: usage violation")

	// ErrPoolInUse indicates an attempt to remove a pool that still holds live blocks.
	ErrPoolInUse = fmt.Errorf("%w: pool has live blocks", ErrUsage)

	// ErrCorrupt indicates that Check found the block structures inconsistent.
	ErrCorrupt = errors.New("tlsf: heap structure corrupt")

	// ErrDestroyed indicates use of a Control after Destroy.
	ErrDestroyed = errors.New("tlsf: allocator destroyed")
)
