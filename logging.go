package archon

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the zerolog.Logger a World logs structural events
// through (allocator page churn, lazily-built graph edges, GC/defrag
// decisions). Output defaults to a human-readable console writer on stderr,
// matching the teacher's development-time logging setup; production
// callers typically pass their own pre-configured zerolog.Logger to
// NewWorld instead of using this helper.
func NewLogger(w io.Writer) zerolog.Logger {
	if w == nil {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// DiscardLogger returns a Logger that drops every event, useful for tests
// and benchmarks that don't want logging overhead.
func DiscardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
