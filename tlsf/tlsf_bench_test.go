package tlsf

import (
	"math/rand"
	"testing"
)

// Benchmark_Control_AllocFree benchmarks a paired alloc and free of a small block.
func Benchmark_Control_AllocFree(b *testing.B) {
	c, err := New(make([]byte, 1<<20), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ref, _, allocErr := c.Alloc(64 + (i%64)*8)
		if allocErr != nil {
			b.Fatal(allocErr)
		}
		if freeErr := c.Free(ref); freeErr != nil {
			b.Fatal(freeErr)
		}
	}
}

// Benchmark_Control_SteadyState benchmarks a fragmented pool with a fixed
// working set, replacing one random block per iteration.
func Benchmark_Control_SteadyState(b *testing.B) {
	for _, cfg := range []SizeClassConfig{ConfigFine, ConfigBalanced, ConfigCoarse} {
		b.Run(cfg.Name, func(b *testing.B) {
			c, err := New(make([]byte, 16<<20), &Config{SizeClasses: &cfg})
			if err != nil {
				b.Fatal(err)
			}
			rng := rand.New(rand.NewSource(1))
			live := make([]Ref, 2048)
			for i := range live {
				if live[i], _, err = c.Alloc(16 + rng.Intn(4096)); err != nil {
					b.Fatal(err)
				}
			}

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				slot := i % len(live)
				if err := c.Free(live[slot]); err != nil {
					b.Fatal(err)
				}
				if live[slot], _, err = c.Alloc(16 + rng.Intn(4096)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// Benchmark_Control_AllocAligned benchmarks page-aligned allocation.
func Benchmark_Control_AllocAligned(b *testing.B) {
	c, err := New(make([]byte, 1<<20), nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for iter := 0; iter < b.N; iter++ {
		ref, _, allocErr := c.AllocAligned(4096, 256)
		if allocErr != nil {
			b.Fatal(allocErr)
		}
		if freeErr := c.Free(ref); freeErr != nil {
			b.Fatal(freeErr)
		}
	}
}
