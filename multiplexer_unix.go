//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"context"

	"golang.org/x/sys/unix"
)

// pollMultiplexer implements [Multiplexer] on top of unix.Poll.
//
// unix.Poll has no way to wake on context cancellation directly, so Wait
// slices its timeout into short ticks and rechecks ctx.Err() between them —
// the same context-transparent posture the ambient logging and dialing
// layers use, applied to the one blocking call that would otherwise ignore
// an operator interrupt.
type pollMultiplexer struct {
	// tick bounds how long any single unix.Poll call blocks, in
	// milliseconds, so a cancelled ctx is noticed promptly even when the
	// caller asked for a much longer (or infinite) timeout.
	tick int
}

// NewMultiplexer returns the platform [Multiplexer] implementation.
func NewMultiplexer() Multiplexer {
	return &pollMultiplexer{tick: 100}
}

func (m *pollMultiplexer) Wait(ctx context.Context, readFDs, writeFDs []int, timeout int) (ReadySet, error) {
	events := make(map[int]int16)
	var order []int
	for _, fd := range readFDs {
		if _, ok := events[fd]; !ok {
			order = append(order, fd)
		}
		events[fd] |= unix.POLLIN
	}
	for _, fd := range writeFDs {
		if _, ok := events[fd]; !ok {
			order = append(order, fd)
		}
		events[fd] |= unix.POLLOUT
	}

	fds := make([]unix.PollFd, len(order))
	for i, fd := range order {
		fds[i] = unix.PollFd{Fd: int32(fd), Events: events[fd]}
	}

	remaining := timeout
	forever := timeout < 0

	for {
		if err := ctx.Err(); err != nil {
			return ReadySet{}, ErrInterrupted
		}

		wait := m.tick
		if !forever && remaining < wait {
			wait = remaining
		}

		n, err := unix.Poll(fds, wait)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return ReadySet{}, err
		}

		if n > 0 {
			return collectReady(fds), nil
		}

		if !forever {
			remaining -= wait
			if remaining <= 0 {
				return ReadySet{}, nil
			}
		}
	}
}

func collectReady(fds []unix.PollFd) ReadySet {
	var ready ReadySet
	for _, pfd := range fds {
		if pfd.Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			ready.Readable = append(ready.Readable, int(pfd.Fd))
		}
		if pfd.Revents&unix.POLLOUT != 0 {
			ready.Writable = append(ready.Writable, int(pfd.Fd))
		}
	}
	return ready
}
