// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import "context"

// ReadySet reports which previously-registered file descriptors are ready
// after a [Multiplexer.Wait] call returns.
type ReadySet struct {
	// Readable lists fds ready for reading.
	Readable []int

	// Writable lists fds ready for writing.
	Writable []int
}

// Empty reports whether no fd is ready.
func (r ReadySet) Empty() bool {
	return len(r.Readable) == 0 && len(r.Writable) == 0
}

// Multiplexer waits for readiness on a flat set of file descriptors
// gathered across every registered [EventSource].
//
// The dispatcher rebuilds the fd list on every call — sources come and go
// between steps far more often than within one — so Multiplexer does not
// retain any registration state of its own between Wait calls.
type Multiplexer interface {
	// Wait blocks until at least one fd in readFDs is readable, one fd in
	// writeFDs is writable, timeout elapses, or ctx is done. timeout is in
	// milliseconds; zero means "return immediately with whatever is
	// currently ready" and a negative value waits with no bound. ctx must
	// not be nil.
	//
	// Wait returns [ErrInterrupted] if ctx is done before any fd becomes
	// ready and before timeout elapses, including when ctx is already done
	// on entry (no readiness is reported in that case).
	Wait(ctx context.Context, readFDs, writeFDs []int, timeout int) (ReadySet, error)
}
