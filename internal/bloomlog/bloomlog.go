// Package bloomlog provides the leveled, structured diagnostic logger
// used throughout bloomline. It is a thin wrapper over go-kit/log: only
// internal/cli and pipeline import it; filter and filecodec never do,
// keeping logging an external collaborator to them.
package bloomlog

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the leveled logger handed to the pipeline and CLI.
type Logger struct {
	base log.Logger
}

// New builds a Logger writing logfmt lines to w. If debug is false,
// Debug-level events are filtered out before they reach w.
func New(w io.Writer, debug bool) *Logger {
	base := log.NewLogfmtLogger(log.NewSyncWriter(w))
	base = log.With(base, "ts", log.DefaultTimestampUTC)

	min := level.AllowInfo()
	if debug {
		min = level.AllowDebug()
	}
	return &Logger{base: level.NewFilter(base, min)}
}

// Debug logs a per-container trace event. keyvals must be an even-length
// list of alternating keys and values, as in go-kit/log.
func (l *Logger) Debug(keyvals ...interface{}) {
	level.Debug(l.base).Log(keyvals...)
}

// Warn logs a non-fatal condition, such as a per-line stdin read error.
func (l *Logger) Warn(keyvals ...interface{}) {
	level.Warn(l.base).Log(keyvals...)
}

// Error logs a fatal setup or I/O error immediately before the process
// aborts.
func (l *Logger) Error(keyvals ...interface{}) {
	level.Error(l.base).Log(keyvals...)
}
