package tlsf

import (
	"io"
	"log/slog"
	"os"
)

// Runtime debug flag for allocation logging - controlled by TLSF_LOG_ALLOC env var.
var logAlloc = os.Getenv("TLSF_LOG_ALLOC") != ""

// newLogger picks the logger for a Control: the configured one, a debug
// handler on stderr when TLSF_LOG_ALLOC is set, or a discarding one.
func newLogger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	if logAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
