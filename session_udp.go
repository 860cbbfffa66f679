// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import "fmt"

// UDPSession represents one demultiplexed datagram flow, identified by the
// peer's (IP, port). A future revision gives it its own outbound socket to
// the listener's configured remote target and forwards datagrams through
// it; see [UDPListener.OnReadable].
type UDPSession struct {
	name int64

	peerAddr string
	listener *UDPListener
	fd       int
}

func (s *UDPSession) Name() int64          { return s.name }
func (s *UDPSession) setName(name int64)   { s.name = name }
func (s *UDPSession) Kind() SourceKind     { return SessionKind }
func (s *UDPSession) State() SourceState   { return Open }
func (s *UDPSession) Sockets() []int       { return []int{s.fd} }
func (s *UDPSession) WriteInterest() []int { return nil }

func (s *UDPSession) String() string {
	return fmt.Sprintf("<UDP Session: %s>", s.peerAddr)
}

func (s *UDPSession) OnReadable(fd int, d *Dispatcher) {}
func (s *UDPSession) OnWritable(fd int, d *Dispatcher) {}
