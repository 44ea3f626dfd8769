// Package shared holds helpers used by both binaries.
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger creates a [log.Logger] writing to w with timestamps enabled.
// The writer defaults to [os.Stderr].
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true})
}

// SetLogLevel parses level and applies it, falling back to info for
// unknown names. It reports whether the name was recognised.
func SetLogLevel(l *log.Logger, level string) bool {
	if level == "" {
		l.SetLevel(log.InfoLevel)
		return true
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		l.SetLevel(log.InfoLevel)
		return false
	}
	l.SetLevel(parsed)
	return true
}
