//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"fmt"
	"net"
	"strconv"

	"golang.org/x/sys/unix"
)

// listenTCP opens, binds and listens on host:port, returning the listening
// fd. The fd is set non-blocking so the dispatcher's OnReadable can call
// acceptTCP without risking a stall (§4.2).
func listenTCP(host string, port int, backlog int) (int, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	sa, family, err := resolveSockaddr(addr)
	if err != nil {
		return -1, &BindError{Addr: addr, Err: err}
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, &BindError{Addr: addr, Err: err}
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, &BindError{Addr: addr, Err: err}
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, &BindError{Addr: addr, Err: err}
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, &BindError{Addr: addr, Err: err}
	}
	if err := setNonblocking(fd); err != nil {
		unix.Close(fd)
		return -1, &BindError{Addr: addr, Err: err}
	}
	return fd, nil
}

// acceptTCP accepts one pending connection on a listening fd, returning the
// new fd, non-blocking, and the peer's address string. It returns
// unix.EAGAIN when no connection is pending — a normal condition
// the caller should treat as "nothing to do", not an error worth logging.
func acceptTCP(listenFD int) (int, string, error) {
	nfd, sa, err := unix.Accept(listenFD)
	if err != nil {
		return -1, "", err
	}
	if err := setNonblocking(nfd); err != nil {
		unix.Close(nfd)
		return -1, "", err
	}
	return nfd, sockaddrString(sa), nil
}

// dialTCP connects synchronously to host:port and returns the connected,
// non-blocking fd.
//
// The connect itself is blocking: sessions are constructed from a deferred
// action (acceptPublish.apply) running inside a dispatcher step, which is
// already off the hot accept path. Because the dial completes before the
// session is constructed, a session is never observed in Connecting.
func dialTCP(host string, port int) (int, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	sa, family, err := resolveSockaddr(addr)
	if err != nil {
		return -1, &ConnectError{Addr: addr, Err: err}
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, &ConnectError{Addr: addr, Err: err}
	}
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return -1, &ConnectError{Addr: addr, Err: err}
	}
	if err := setNonblocking(fd); err != nil {
		unix.Close(fd)
		return -1, &ConnectError{Addr: addr, Err: err}
	}
	return fd, nil
}

// listenUDP opens and binds a non-blocking UDP socket on host:port,
// returning the fd. Unlike listenTCP there is no listen(2) call: datagram
// sockets are ready-to-read as soon as they are bound.
func listenUDP(host string, port int) (int, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	sa, family, err := resolveSockaddr(addr)
	if err != nil {
		return -1, &BindError{Addr: addr, Err: err}
	}

	fd, err := unix.Socket(family, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return -1, &BindError{Addr: addr, Err: err}
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, &BindError{Addr: addr, Err: err}
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, &BindError{Addr: addr, Err: err}
	}
	if err := setNonblocking(fd); err != nil {
		unix.Close(fd)
		return -1, &BindError{Addr: addr, Err: err}
	}
	return fd, nil
}

// recvFromUDP reads one datagram from fd, returning its payload and the
// peer's address string.
func recvFromUDP(fd int, buf []byte) (int, string, error) {
	n, sa, err := unix.Recvfrom(fd, buf, 0)
	if err != nil {
		return 0, "", err
	}
	return n, sockaddrString(sa), nil
}

// boundLocalPort returns the port the kernel assigned fd, whether it was
// requested explicitly or left as 0 for the OS to choose (§4.2).
func boundLocalPort(fd int) (int, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return 0, err
	}
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		return addr.Port, nil
	case *unix.SockaddrInet6:
		return addr.Port, nil
	default:
		return 0, fmt.Errorf("unexpected sockaddr type %T", sa)
	}
}

func setNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}

func closeSocket(fd int) error {
	return unix.Close(fd)
}

// readSocket reads up to len(buf) bytes. It returns (0, nil) on a clean
// peer close, and (0, unix.EAGAIN) — surfaced as an ordinary error — when
// no data is currently available on a non-blocking fd.
func readSocket(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// writeSocket writes buf and returns how many bytes were accepted by the
// kernel. A short count is not an error: §5 requires the caller to retain
// the remainder and retry on the next writability notification rather than
// looping here.
func writeSocket(fd int, buf []byte) (int, error) {
	n, err := unix.Write(fd, buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func resolveSockaddr(addr string) (unix.Sockaddr, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, 0, err
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			var sa4 unix.SockaddrInet4
			sa4.Port = port
			copy(sa4.Addr[:], ip4)
			return &sa4, unix.AF_INET, nil
		}
	}
	for _, ip := range ips {
		if ip16 := ip.To16(); ip16 != nil {
			var sa6 unix.SockaddrInet6
			sa6.Port = port
			copy(sa6.Addr[:], ip16)
			return &sa6, unix.AF_INET6, nil
		}
	}
	return nil, 0, fmt.Errorf("no usable address for host %q", host)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch addr := sa.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP(addr.Addr[:])
		return net.JoinHostPort(ip.String(), strconv.Itoa(addr.Port))
	case *unix.SockaddrInet6:
		ip := net.IP(addr.Addr[:])
		return net.JoinHostPort(ip.String(), strconv.Itoa(addr.Port))
	default:
		return "unknown"
	}
}
