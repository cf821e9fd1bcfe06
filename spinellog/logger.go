// Package spinellog provides the leveled logger the reader, mux, and
// prefix-handler goroutines use for the observability surface spec.md §6
// calls for: serial bytes in/out, property get/set/is with decoded value,
// packet summaries, and last-status mappings, at four verbosity levels.
//
// The shape — a small named logger wrapped around a backing library,
// constructed once and handed to each component — follows the teacher's
// own newLogger(name, customLogger)/logger.Warningf pattern
// (elektrosoftlab-modbus/tcp_transport.go). The backing library is
// github.com/charmbracelet/log rather than the teacher's bare *log.Logger
// because the spec names exactly four verbosity levels and charmbracelet/log
// exposes exactly those four.
package spinellog

import (
	"io"
	"os"

	charm "github.com/charmbracelet/log"
)

// Logger is the four-level observability surface the core depends on.
// Components accept this interface, never a concrete type, so a caller can
// swap in any backend (or the Discard logger) without touching the core.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

// charmLogger adapts *charm.Logger to the Logger interface.
type charmLogger struct {
	l *charm.Logger
}

// New builds a Logger named prefix, writing to w at the given level.
func New(prefix string, w io.Writer, level charm.Level) Logger {
	l := charm.NewWithOptions(w, charm.Options{
		Prefix:          prefix,
		Level:           level,
		ReportTimestamp: true,
	})
	return &charmLogger{l: l}
}

// Default builds a Logger named prefix, writing to stderr at info level —
// the usual construction for a caller that just wants reasonable output.
func Default(prefix string) Logger {
	return New(prefix, os.Stderr, charm.InfoLevel)
}

func (c *charmLogger) Debug(msg string, kv ...any) { c.l.Debug(msg, kv...) }
func (c *charmLogger) Info(msg string, kv ...any)  { c.l.Info(msg, kv...) }
func (c *charmLogger) Warn(msg string, kv ...any)  { c.l.Warn(msg, kv...) }
func (c *charmLogger) Error(msg string, kv ...any) { c.l.Error(msg, kv...) }
func (c *charmLogger) With(kv ...any) Logger {
	return &charmLogger{l: c.l.With(kv...)}
}

// discardLogger is the default used by components constructed without an
// explicit Logger, so the core never requires a logging dependency at
// runtime.
type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
func (d discardLogger) With(...any) Logger { return d }

// Discard is a Logger that drops everything.
var Discard Logger = discardLogger{}
