// Package logging configures pgtail's structured logger and provides a
// per-signature rate limiter for noisy log sites (e.g. a flapping
// tailer reconnect loop), since no library in the dependency set
// provides that on top of zerolog.
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger writing to w. When w is a terminal and
// NO_COLOR is unset, output goes through zerolog's ConsoleWriter for
// human-readable, colorized lines; otherwise it emits newline-delimited
// JSON, the shape a log aggregator expects.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	var out io.Writer = w
	if shouldUseConsoleWriter(w) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Default returns a logger writing to stderr at info level, suitable
// for the CLI entrypoint before settings have been loaded.
func Default() zerolog.Logger {
	return New(os.Stderr, zerolog.InfoLevel)
}

func shouldUseConsoleWriter(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
