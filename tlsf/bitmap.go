package tlsf

import "math/bits"

// bitmapIndex records which free-list buckets are non-empty. Bit fl of the
// first-level word is set iff secondLevel[fl] is non-zero; bit sl of
// secondLevel[fl] is set iff bucket (fl, sl) holds at least one block.
type bitmapIndex struct {
	firstLevel  uint32
	secondLevel [flIndexCountMax]uint32
}

func (x *bitmapIndex) set(fl, sl int) {
	x.secondLevel[fl] |= 1 << uint(sl)
	x.firstLevel |= 1 << uint(fl)
}

func (x *bitmapIndex) clear(fl, sl int) {
	x.secondLevel[fl] &^= 1 << uint(sl)
	if x.secondLevel[fl] == 0 {
		x.firstLevel &^= 1 << uint(fl)
	}
}

// find returns the lowest non-empty bucket at or above (fl, sl): first within
// fl itself, then the lowest populated first-level class above fl. Both steps
// are a single find-first-set, so the cost does not depend on pool contents.
func (x *bitmapIndex) find(fl, sl int) (int, int, bool) {
	slMap := x.secondLevel[fl] & (^uint32(0) << uint(sl))
	if slMap == 0 {
		flMap := x.firstLevel & (^uint32(0) << uint(fl+1))
		if flMap == 0 {
			return 0, 0, false
		}
		fl = bits.TrailingZeros32(flMap)
		slMap = x.secondLevel[fl]
	}
	return fl, bits.TrailingZeros32(slMap), true
}
