// Package buf contains bounds-checked word accessors and alignment helpers
// for code that lays out structures inside plain byte slices.
package buf

import "encoding/binary"

// WordSize is the width of a stored word in bytes.
const WordSize = 8

// U64LE reads a little-endian uint64 from b at off. Returns 0 when the word
// does not fit inside b.
func U64LE(b []byte, off int) uint64 {
	w, ok := Slice(b, off, WordSize)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint64(w)
}

// PutU64LE writes v as a little-endian uint64 into b at off. It reports false,
// leaving b untouched, when the word does not fit.
func PutU64LE(b []byte, off int, v uint64) bool {
	w, ok := Slice(b, off, WordSize)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint64(w, v)
	return true
}
