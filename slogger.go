// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

// SLogger abstracts the [*slog.Logger] behavior.
//
// By using an abstraction we allow for unit testing and alternative implementations.
//
// This package uses two log levels:
//   - Info for lifecycle events (listener start, source registration and
//     deregistration, session open and close, accept and setup failures,
//     failed deferred actions)
//   - Debug for per-datagram UDP receive records
//
// Raw TCP reads, writes and polls, and breaks, watchpoint matches and
// breakpoint changes, are not logged.
//
// The [*slog.Logger] type satisfies this interface.
type SLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// DefaultSLogger returns the default [SLogger] to use.
//
// The default is a no-op logger that discards all output. This follows the
// library convention of not writing to stdout/stderr unless explicitly configured.
//
// Use a custom [*slog.Logger] for emitting logs.
func DefaultSLogger() SLogger {
	return discardSLogger{}
}

// withSpanID returns an [SLogger] that prepends a "spanID" attribute to
// every Debug/Info call on top of logger.
//
// [*log/slog.Logger] satisfies [SLogger] directly and also exposes
// [log/slog.Logger.With], which is the idiomatic way to attach a span id
// when the caller already holds a concrete *slog.Logger (see
// [NewSpanID]); withSpanID provides the same correlation for any
// [SLogger], including one that isn't a *slog.Logger.
func withSpanID(logger SLogger, spanID string) SLogger {
	return spanLogger{logger: logger, spanID: spanID}
}

// spanLogger implements [SLogger] by injecting a spanID attribute into
// every call it forwards.
type spanLogger struct {
	logger SLogger
	spanID string
}

var _ SLogger = spanLogger{}

func (l spanLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, append([]any{"spanID", l.spanID}, args...)...)
}

func (l spanLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, append([]any{"spanID", l.spanID}, args...)...)
}

// discardSLogger is a no-op [SLogger] that discards all log messages.
type discardSLogger struct{}

var _ SLogger = discardSLogger{}

// Debug implements [SLogger].
func (discardSLogger) Debug(msg string, args ...any) {
	// nothing
}

// Info implements [SLogger].
func (discardSLogger) Info(msg string, args ...any) {
	// nothing
}
