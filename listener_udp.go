// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"fmt"
	"sync"
)

// UDPListener is structurally present per §9 Open Question (c): UDP is
// specified structurally but the datagram-demultiplexing engine is an
// explicit future extension (§1). It owns one bound datagram socket and
// demultiplexes inbound datagrams by (peer IP, peer port) into per-flow
// [UDPSession] values keyed in flowByPeer, but does not yet relay anything.
type UDPListener struct {
	name int64

	localHost  string
	localPort  int
	remoteHost string
	remotePort int

	logger SLogger

	fd int

	mu         sync.Mutex
	flowByPeer map[string]*UDPSession
}

// NewUDPListener binds a UDP socket on localHost:localPort. Like
// [NewTCPListener], it fails with [ConfigurationError] if no remote target
// is configured.
func NewUDPListener(localHost string, localPort int, remoteHost string, remotePort int, logger SLogger) (*UDPListener, error) {
	if remoteHost == "" && remotePort == 0 {
		return nil, &ConfigurationError{Reason: "UDP listener requires a remote host or port"}
	}
	if logger == nil {
		logger = DefaultSLogger()
	}

	fd, err := listenUDP(localHost, localPort)
	if err != nil {
		return nil, err
	}

	boundPort, err := boundLocalPort(fd)
	if err != nil {
		closeSocket(fd)
		return nil, &BindError{Addr: localHost, Err: err}
	}
	if remotePort == 0 {
		remotePort = boundPort
	}

	l := &UDPListener{
		localHost:  localHost,
		localPort:  boundPort,
		remoteHost: remoteHost,
		remotePort: remotePort,
		logger:     logger,
		fd:         fd,
		flowByPeer: make(map[string]*UDPSession),
	}
	l.logger.Info("udp listener started", "source", l.String())
	return l, nil
}

func (l *UDPListener) Name() int64          { return l.name }
func (l *UDPListener) setName(name int64)   { l.name = name }
func (l *UDPListener) Kind() SourceKind     { return ListenerKind }
func (l *UDPListener) State() SourceState   { return Open }
func (l *UDPListener) Sockets() []int       { return []int{l.fd} }
func (l *UDPListener) WriteInterest() []int { return nil }

func (l *UDPListener) String() string {
	return fmt.Sprintf("<UDP Listener: %d -> %s:%d>", l.localPort, l.remoteHost, l.remotePort)
}

// Addr returns the actual bound local host and port.
func (l *UDPListener) Addr() (string, int) {
	return l.localHost, l.localPort
}

// Flows returns the currently-known per-peer sessions, for diagnostics.
func (l *UDPListener) Flows() []*UDPSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*UDPSession, 0, len(l.flowByPeer))
	for _, s := range l.flowByPeer {
		out = append(out, s)
	}
	return out
}

// OnReadable demultiplexes one pending datagram by (peer IP, peer port),
// creating a [UDPSession] the first time a flow is seen and logging the
// datagram's arrival.
//
// TODO(monjon): implement the datagram relay loop (create a ClientRecv-
// equivalent event and forward the payload through the flow's outbound
// socket); tracked as a deliberate gap per the structural-only UDP scope
// (§1, §9 Open Question (c)).
func (l *UDPListener) OnReadable(fd int, d *Dispatcher) {
	buf := make([]byte, 65535)
	n, peer, err := recvFromUDP(l.fd, buf)
	if err != nil {
		if isWouldBlock(err) {
			return
		}
		l.logger.Info("udp recv failed", "source", l.String(), "error", err.Error())
		return
	}

	l.mu.Lock()
	session, ok := l.flowByPeer[peer]
	if !ok {
		session = &UDPSession{peerAddr: peer, listener: l}
		l.flowByPeer[peer] = session
	}
	l.mu.Unlock()

	l.logger.Debug("udp datagram received", "source", l.String(), "peer", peer, "bytes", n)
	_ = session
}

func (l *UDPListener) OnWritable(fd int, d *Dispatcher) {}

// Close shuts down the listening socket.
func (l *UDPListener) Close() error {
	return closeSocket(l.fd)
}
