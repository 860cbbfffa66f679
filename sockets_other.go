//go:build !unix

// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import "errors"

var errUnsupportedPlatform = errors.New("monjon: raw sockets are not supported on this platform")

func listenTCP(host string, port int, backlog int) (int, error) {
	return -1, errUnsupportedPlatform
}

func acceptTCP(listenFD int) (int, string, error) {
	return -1, "", errUnsupportedPlatform
}

func dialTCP(host string, port int) (int, error) {
	return -1, errUnsupportedPlatform
}

func listenUDP(host string, port int) (int, error) {
	return -1, errUnsupportedPlatform
}

func recvFromUDP(fd int, buf []byte) (int, string, error) {
	return 0, "", errUnsupportedPlatform
}

func setNonblocking(fd int) error {
	return errUnsupportedPlatform
}

func boundLocalPort(fd int) (int, error) {
	return 0, errUnsupportedPlatform
}

func closeSocket(fd int) error {
	return errUnsupportedPlatform
}

func readSocket(fd int, buf []byte) (int, error) {
	return 0, errUnsupportedPlatform
}

func writeSocket(fd int, buf []byte) (int, error) {
	return 0, errUnsupportedPlatform
}
