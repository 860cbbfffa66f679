//go:build !unix

// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

func isWouldBlock(err error) bool {
	return false
}

func isInterrupted(err error) bool {
	return false
}
