// Package qlog defines the small structured-logging interface used
// throughout qdb, plus a github.com/rs/zerolog-backed implementation.
// Callers who don't configure a logger get a no-op implementation, so
// logging is always safe to call and never mandatory to wire up.
package qlog

import "github.com/rs/zerolog"

// Logger is the minimal structured-logging contract qdb depends on.
// Key-value pairs are passed as alternating key, value, key, value...
type Logger interface {
	Debug(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, err error, kv ...any)
}

type noop struct{}

func (noop) Debug(string, ...any)       {}
func (noop) Warn(string, ...any)        {}
func (noop) Error(string, error, ...any) {}

// NoOp is the default logger: every call is a no-op.
var NoOp Logger = noop{}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	z zerolog.Logger
}

// NewZerologLogger wraps z as a Logger.
func NewZerologLogger(z zerolog.Logger) Logger {
	return &zerologLogger{z: z}
}

func (l *zerologLogger) Debug(msg string, kv ...any) {
	event := l.z.Debug()
	applyFields(event, kv)
	event.Msg(msg)
}

func (l *zerologLogger) Warn(msg string, kv ...any) {
	event := l.z.Warn()
	applyFields(event, kv)
	event.Msg(msg)
}

func (l *zerologLogger) Error(msg string, err error, kv ...any) {
	event := l.z.Error().Err(err)
	applyFields(event, kv)
	event.Msg(msg)
}

func applyFields(event *zerolog.Event, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		event.Interface(key, kv[i+1])
	}
}
