package tlsf

import "math/bits"

// FreeInfo walks every non-empty bucket once and totals the free space.
// It does not modify anything and costs O(free blocks); it is meant for
// diagnostics, not for allocation decisions.
func (c *Control) FreeInfo() FreeInfo {
	var fi FreeInfo
	for flMap := c.index.firstLevel; flMap != 0; flMap &= flMap - 1 {
		fl := bits.TrailingZeros32(flMap)
		for slMap := c.index.secondLevel[fl]; slMap != 0; slMap &= slMap - 1 {
			sl := bits.TrailingZeros32(slMap)
			for b := c.heads[fl][sl]; b != nilBlock; b = c.freeNext(b) {
				size := c.size(b)
				fi.TotalFree += size
				fi.FreeBlocks++
				if size > fi.LargestFree {
					fi.LargestFree = size
				}
			}
		}
	}
	return fi
}
