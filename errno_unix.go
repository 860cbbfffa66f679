//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isWouldBlock reports whether err is the "no data/connection currently
// available" condition a non-blocking fd returns, which callers must treat
// as "nothing to do now" rather than a failure.
func isWouldBlock(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return errno == unix.EAGAIN || errno == unix.EWOULDBLOCK
}

// isInterrupted reports whether err is EINTR, the "call was interrupted by
// a signal before any data was transferred" condition. Per §4.3 Failure
// semantics, a receive error with this code is retried rather than
// treated as a failure: the caller should return without tearing anything
// down and let the next readiness notification try again.
func isInterrupted(err error) bool {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return errno == unix.EINTR
}
