// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 identifying one TCP session's lifetime, from
// accept to close.
//
// Attach the span ID to a session's logger with [log/slog.Logger.With] so
// that every accept/clientRecv/serverRecv/close event for that session
// shares a correlation id, letting a log consumer reconstruct one
// connection's history out of the single shared event stream.
//
// This function panics if the system random number generator fails, which
// should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
