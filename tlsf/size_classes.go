package tlsf

import (
	"fmt"
	"math/bits"

	"github.com/joshuapare/tlsfkit/internal/buf"
)

// SizeClassConfig defines the second-level subdivision of each first-level
// (power-of-two) size class. More subdivisions mean less internal
// fragmentation at the cost of a larger free-list table.
type SizeClassConfig struct {
	// Name for this configuration (for reports and benchmarks)
	Name string

	// SecondLevelLog2 is log2 of the number of subdivisions per first-level
	// class, between 1 and 5.
	SecondLevelLog2 int
}

// Predefined configurations.
var (
	// ConfigFine: 32 subdivisions, worst-case rounding waste about 3%.
	ConfigFine = SizeClassConfig{Name: "Fine", SecondLevelLog2: 5}

	// ConfigBalanced: 16 subdivisions, about 6% worst-case rounding waste.
	ConfigBalanced = SizeClassConfig{Name: "Balanced", SecondLevelLog2: 4}

	// ConfigCoarse: 8 subdivisions, about 12% worst-case rounding waste.
	ConfigCoarse = SizeClassConfig{Name: "Coarse", SecondLevelLog2: 3}

	// Default configuration (used if none specified).
	DefaultConfig = ConfigFine
)

// sizeClassTable holds the derived geometry of a SizeClassConfig.
//
// Sizes below smallBlockSize share first-level class 0 and are split linearly
// into slCount buckets of alignSize bytes. Above it, the first-level index is
// the position of the most significant bit and the second-level index the
// next slLog2 bits.
type sizeClassTable struct {
	config         SizeClassConfig
	slLog2         int
	slCount        int
	flShift        int
	flCount        int
	smallBlockSize int
}

func newSizeClassTable(config SizeClassConfig) (sizeClassTable, error) {
	if config.SecondLevelLog2 < 1 || config.SecondLevelLog2 > slIndexCountLog2Max {
		return sizeClassTable{}, fmt.Errorf("%w: second-level log2 %d outside [1,%d]",
			ErrInvalidArgument, config.SecondLevelLog2, slIndexCountLog2Max)
	}
	flShift := config.SecondLevelLog2 + alignSizeLog2
	return sizeClassTable{
		config:         config,
		slLog2:         config.SecondLevelLog2,
		slCount:        1 << config.SecondLevelLog2,
		flShift:        flShift,
		flCount:        flIndexMax - flShift + 1,
		smallBlockSize: 1 << flShift,
	}, nil
}

// mappingInsert rounds size down to the class whose range contains it. Used
// to file an existing free block.
func (t *sizeClassTable) mappingInsert(size int) (fl, sl int) {
	if size < t.smallBlockSize {
		return 0, size / (t.smallBlockSize / t.slCount)
	}
	fl = bits.Len(uint(size)) - 1
	sl = (size >> (fl - t.slLog2)) ^ t.slCount
	fl -= t.flShift - 1
	return fl, sl
}

// mappingSearch rounds size up to the first class whose every block is at
// least size bytes. Used for allocation requests.
func (t *sizeClassTable) mappingSearch(size int) (fl, sl int) {
	if size >= t.smallBlockSize {
		round := 1<<(bits.Len(uint(size))-1-t.slLog2) - 1
		size += round
	}
	return t.mappingInsert(size)
}

// classRange returns the half-open byte range [lo, hi) of bucket (fl, sl).
func (t *sizeClassTable) classRange(fl, sl int) (lo, hi int) {
	if fl == 0 {
		step := t.smallBlockSize / t.slCount
		return sl * step, (sl + 1) * step
	}
	base := 1 << (fl + t.flShift - 1)
	step := base >> t.slLog2
	lo = base + sl*step
	return lo, lo + step
}

// adjustRequestSize rounds a request up to align and to MinBlockSize.
// Returns 0 when the request can never be served.
func adjustRequestSize(size, align int) int {
	if size <= 0 || size >= MaxBlockSize {
		return 0
	}
	aligned := buf.AlignUp(size, align)
	if aligned >= MaxBlockSize {
		return 0
	}
	return max(aligned, MinBlockSize)
}
