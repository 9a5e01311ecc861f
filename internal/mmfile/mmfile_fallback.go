//go:build !unix

// Package mmfile provides writable memory regions that can back allocator pools.
package mmfile

import (
	"fmt"
	"os"
)

// Anonymous allocates a zeroed heap region when mmap is not available.
func Anonymous(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid region size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// MapFile loads the file into memory, resized to size bytes. The release func
// writes the region back to the file.
func MapFile(path string, size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("mmfile: invalid region size %d", size)
	}
	data := make([]byte, size)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, err
	}
	copy(data, existing)
	return data, func() error { return os.WriteFile(path, data, 0o600) }, nil
}

// Flush is a no-op without a real mapping; the release func persists the data.
func Flush(data []byte) error {
	return nil
}
