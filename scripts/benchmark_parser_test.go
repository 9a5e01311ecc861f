package main

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleOutput = `goos: linux
goarch: amd64
pkg: github.com/joshuapare/tlsfkit/tlsf
Benchmark_Control_AllocFree-8            	20000000	        61.3 ns/op	       0 B/op	       0 allocs/op
Benchmark_Control_SteadyState/Fine-8     	 5000000	       200.0 ns/op	       0 B/op	       0 allocs/op
Benchmark_Control_SteadyState/Balanced-8 	 5000000	       160.0 ns/op	       0 B/op	       0 allocs/op
Benchmark_Control_SteadyState/Coarse-8   	 5000000	       250.0 ns/op	      16 B/op	       1 allocs/op
{"Action":"output","Output":"Benchmark_Control_AllocAligned-8 \t 1000000\t 1200 ns/op\t 0 B/op\t 0 allocs/op\n"}
PASS
`

func TestParseBenchmarks(t *testing.T) {
	results := parseBenchmarks(bufio.NewScanner(strings.NewReader(sampleOutput)))
	require.Len(t, results, 5)

	require.Equal(t, "Control_AllocFree", results[0].Benchmark)
	require.Empty(t, results[0].Variant)
	require.Equal(t, 20000000, results[0].Iterations)
	require.InDelta(t, 61.3, results[0].NsPerOp, 1e-9)

	require.Equal(t, "Control_SteadyState", results[3].Benchmark)
	require.Equal(t, "Coarse", results[3].Variant)
	require.Equal(t, int64(16), results[3].BytesPerOp)
	require.Equal(t, int64(1), results[3].AllocsPerOp)

	require.Equal(t, "Control_AllocAligned", results[4].Benchmark)
}

func TestGenerateComparisons(t *testing.T) {
	results := parseBenchmarks(bufio.NewScanner(strings.NewReader(sampleOutput)))
	comps := generateComparisons(results, "Fine")
	require.Len(t, comps, 5)

	var steady []ComparisonResult
	for _, c := range comps {
		if c.Benchmark == "Control_SteadyState" {
			steady = append(steady, c)
		}
	}
	require.Len(t, steady, 3)
	require.True(t, steady[0].IsBaseline)
	require.Equal(t, "Fine", steady[0].Variant)
	require.Equal(t, "Balanced", steady[1].Variant)
	require.InDelta(t, 1.25, steady[1].Relative, 1e-9)
	require.InDelta(t, 0.8, steady[2].Relative, 1e-9)
}

func TestGenerateMarkdownReport(t *testing.T) {
	results := parseBenchmarks(bufio.NewScanner(strings.NewReader(sampleOutput)))
	report := generateMarkdownReport(generateComparisons(results, "Fine"), "Fine",
		time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))

	require.Contains(t, report, "Generated: 2024-01-02 03:04:05")
	require.Contains(t, report, "- **Allocating Go memory**: 1")
	require.Contains(t, report, "| Control_SteadyState | Fine | 200 | *baseline* | 0B | 0 |")
	require.Contains(t, report, "| Control_SteadyState | Balanced | 160 | **1.25x** ✓ | 0B | 0 |")
	require.Contains(t, report, "| Control_SteadyState | Coarse | 250 | 0.80x ✗ | 16B | 1 ✗ |")
	require.Contains(t, report, "| Control_AllocFree | - | 61 | *N/A* |")
}

func TestFormatHelpers(t *testing.T) {
	require.Equal(t, "999", formatNumber(999))
	require.Equal(t, "1.5K", formatNumber(1500))
	require.Equal(t, "2.50M", formatNumber(2500000))
	require.Equal(t, "512B", formatBytes(512))
	require.Equal(t, "2.0KB", formatBytes(2048))
	require.Equal(t, "3.00MB", formatBytes(3*1024*1024))
}
