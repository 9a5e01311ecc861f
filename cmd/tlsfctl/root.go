package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/tlsfkit/tlsf"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
	noColor bool
	classes string
)

var rootCmd = &cobra.Command{
	Use:   "tlsfctl",
	Short: "Exercise and inspect the TLSF allocator",
	Long: `tlsfctl drives the TLSF allocator with synthetic workloads. It measures
fragmentation over long alloc/free runs, times individual operations across
size classes, and renders the block layout of a pool.`,
	Version: "0.1.0",
}

// numbers formats counts and byte totals with digit grouping.
var numbers = message.NewPrinter(language.English)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().
		StringVar(&classes, "classes", "fine", "Size class preset: fine, balanced or coarse")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprint(os.Stdout, numbers.Sprintf(format, args...))
	}
}

// printError prints an error message
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprint(os.Stdout, numbers.Sprintf(format, args...))
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// newLogger builds the logger handed to the allocator. Pool lifecycle events
// only show up with --verbose.
func newLogger() *slog.Logger {
	if quiet {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// sizeClasses resolves the --classes flag.
func sizeClasses() (tlsf.SizeClassConfig, error) {
	switch strings.ToLower(classes) {
	case "fine", "":
		return tlsf.ConfigFine, nil
	case "balanced":
		return tlsf.ConfigBalanced, nil
	case "coarse":
		return tlsf.ConfigCoarse, nil
	default:
		return tlsf.SizeClassConfig{}, fmt.Errorf("unknown size class preset %q", classes)
	}
}

// newConfig assembles the allocator configuration from the global flags.
func newConfig() (*tlsf.Config, error) {
	sc, err := sizeClasses()
	if err != nil {
		return nil, err
	}
	return &tlsf.Config{SizeClasses: &sc, Logger: newLogger()}, nil
}
