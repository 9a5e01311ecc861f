package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Benchmark   string // e.g. "Control_SteadyState"
	Variant     string // sub-benchmark, e.g. the size class preset
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult compares one variant of a benchmark against the baseline
// variant of the same benchmark.
type ComparisonResult struct {
	Benchmark   string
	Variant     string
	NsPerOp     float64
	BaselineNs  float64
	Relative    float64 // baseline ns / variant ns; above 1 is faster
	BytesPerOp  int64
	AllocsPerOp int64
	IsBaseline  bool
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	baseline   = flag.String("baseline", "Fine", "Variant every other variant is compared against")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	comparisons := generateComparisons(results, *baseline)
	report := generateMarkdownReport(comparisons, *baseline, time.Now())

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// benchmarkRegex matches lines like
// Benchmark_Control_SteadyState/Fine-8    5000000    212.4 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.Atoi(matches[2])
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)

		var bytesPerOp, allocsPerOp int64
		if matches[4] != "" {
			bytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			allocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		bench, variant := splitName(name)
		results = append(results, BenchmarkResult{
			Name:        name,
			Benchmark:   bench,
			Variant:     variant,
			Iterations:  iterations,
			NsPerOp:     nsPerOp,
			BytesPerOp:  bytesPerOp,
			AllocsPerOp: allocsPerOp,
		})
	}

	return results
}

// splitName turns "Benchmark_Control_SteadyState/Fine-8" into
// ("Control_SteadyState", "Fine"). Benchmarks without sub-benchmarks get an
// empty variant.
func splitName(name string) (string, string) {
	name = strings.TrimPrefix(name, "Benchmark")
	name = strings.TrimPrefix(name, "_")
	if dash := strings.LastIndex(name, "-"); dash > 0 {
		if _, err := strconv.Atoi(name[dash+1:]); err == nil {
			name = name[:dash]
		}
	}
	bench, variant, _ := strings.Cut(name, "/")
	return bench, variant
}

func generateComparisons(results []BenchmarkResult, base string) []ComparisonResult {
	grouped := make(map[string][]BenchmarkResult)
	for _, result := range results {
		grouped[result.Benchmark] = append(grouped[result.Benchmark], result)
	}

	var comparisons []ComparisonResult
	for bench, variants := range grouped {
		baseNs := 0.0
		for _, v := range variants {
			if v.Variant == base {
				baseNs = v.NsPerOp
			}
		}
		for _, v := range variants {
			comp := ComparisonResult{
				Benchmark:   bench,
				Variant:     v.Variant,
				NsPerOp:     v.NsPerOp,
				BaselineNs:  baseNs,
				BytesPerOp:  v.BytesPerOp,
				AllocsPerOp: v.AllocsPerOp,
				IsBaseline:  v.Variant == base,
			}
			if baseNs > 0 && v.NsPerOp > 0 {
				comp.Relative = baseNs / v.NsPerOp
			}
			comparisons = append(comparisons, comp)
		}
	}

	// Sort by benchmark then variant, baseline first
	sort.Slice(comparisons, func(i, j int) bool {
		a, b := comparisons[i], comparisons[j]
		if a.Benchmark != b.Benchmark {
			return a.Benchmark < b.Benchmark
		}
		if a.IsBaseline != b.IsBaseline {
			return a.IsBaseline
		}
		return a.Variant < b.Variant
	})

	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, base string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Benchmark Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format("2006-01-02 15:04:05")))

	allocating := 0
	for _, comp := range comparisons {
		if comp.AllocsPerOp > 0 {
			allocating++
		}
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Total benchmarks**: %d\n", len(comparisons)))
	sb.WriteString(fmt.Sprintf("- **Baseline variant**: %s\n", base))
	sb.WriteString(fmt.Sprintf("- **Allocating Go memory**: %d\n", allocating))
	sb.WriteString("\n")

	sb.WriteString("## Detailed Results\n\n")
	sb.WriteString("| Benchmark | Variant | ns/op | vs baseline | Memory (B/op) | Allocs |\n")
	sb.WriteString("|-----------|---------|-------|-------------|---------------|--------|\n")

	for _, comp := range comparisons {
		variant := comp.Variant
		if variant == "" {
			variant = "-"
		}
		relative := "*N/A*"
		switch {
		case comp.IsBaseline:
			relative = "*baseline*"
		case comp.Relative >= 1.0:
			relative = fmt.Sprintf("**%.2fx** ✓", comp.Relative)
		case comp.Relative > 0:
			relative = fmt.Sprintf("%.2fx ✗", comp.Relative)
		}
		allocIndicator := ""
		if comp.AllocsPerOp > 0 {
			allocIndicator = " ✗"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s%s |\n",
			comp.Benchmark,
			variant,
			formatNumber(comp.NsPerOp),
			relative,
			formatBytes(comp.BytesPerOp),
			formatNumber(float64(comp.AllocsPerOp)),
			allocIndicator,
		))
	}

	sb.WriteString("\n")
	sb.WriteString("## Notes\n\n")
	sb.WriteString("- **vs baseline > 1.0**: the variant is faster than the baseline ✓\n")
	sb.WriteString("- **Allocs**: allocator operations should not allocate Go memory; any non-zero count is flagged ✗\n")

	return sb.String()
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
