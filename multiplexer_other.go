//go:build !unix

// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"context"
	"errors"
)

// NewMultiplexer returns the platform [Multiplexer] implementation. Raw-fd
// polling is unix-only; non-unix platforms get a Multiplexer that always
// fails, so a build for one of them fails loudly at runtime rather than
// silently never delivering readiness.
func NewMultiplexer() Multiplexer {
	return unsupportedMultiplexer{}
}

type unsupportedMultiplexer struct{}

func (unsupportedMultiplexer) Wait(ctx context.Context, readFDs, writeFDs []int, timeout int) (ReadySet, error) {
	return ReadySet{}, errors.New("monjon: raw-socket multiplexing is not supported on this platform")
}
