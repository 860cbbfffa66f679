// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"fmt"
	"sync"
)

// TCPSession is an [EventSource] proxying bytes between one accepted client
// connection and the dial it opened to the configured remote (§4.3).
//
// A session's sockets move together: Open once both ends are live, Closing
// from the first close trigger, Closed once both fds are released. State
// observations are for diagnostics. A session is never observed in
// Connecting: [newTCPSession] only returns a session once the dial has
// already completed, and the session starts in Open.
type TCPSession struct {
	name int64

	listener   *TCPListener
	clientFD   int
	serverFD   int
	clientAddr string
	remoteHost string
	remotePort int

	config        *Config
	errClassifier ErrClassifier
	logger        SLogger
	spanID        string

	mu           sync.Mutex
	state        SourceState
	clientPend   []byte
	serverPend   []byte
	closeOnce    sync.Once
}

// newTCPSession dials remoteHost:remotePort and, on success, returns a
// session proxying clientFD <-> the new connection. On dial failure, the
// caller is responsible for closing clientFD; no session is returned.
func newTCPSession(listener *TCPListener, clientFD int, clientAddr string, remoteHost string, remotePort int, cfg *Config, logger SLogger) (*TCPSession, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = DefaultSLogger()
	}

	serverFD, err := dialTCP(remoteHost, remotePort)
	if err != nil {
		return nil, err
	}

	spanID := NewSpanID()
	return &TCPSession{
		listener:      listener,
		clientFD:      clientFD,
		serverFD:      serverFD,
		clientAddr:    clientAddr,
		remoteHost:    remoteHost,
		remotePort:    remotePort,
		config:        cfg,
		errClassifier: cfg.ErrClassifier,
		logger:        withSpanID(logger, spanID),
		spanID:        spanID,
		state:         Open,
	}, nil
}

func (s *TCPSession) Name() int64        { return s.name }
func (s *TCPSession) setName(name int64) { s.name = name }
func (s *TCPSession) Kind() SourceKind   { return SessionKind }

// SpanID returns the UUIDv7 assigned to this session at construction,
// shared by every log record this session emits (see [NewSpanID]).
func (s *TCPSession) SpanID() string { return s.spanID }

func (s *TCPSession) State() SourceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *TCPSession) String() string {
	return fmt.Sprintf("<TCP Session: %s -> %s:%d>", s.clientAddr, s.remoteHost, s.remotePort)
}

func (s *TCPSession) Sockets() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Closed {
		return nil
	}
	return []int{s.clientFD, s.serverFD}
}

// WriteInterest returns the peer sockets currently holding a pending short
// write, so the dispatcher's multiplexer query also waits for writability
// on them (§5).
func (s *TCPSession) WriteInterest() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fds []int
	if len(s.serverPend) > 0 {
		fds = append(fds, s.serverFD)
	}
	if len(s.clientPend) > 0 {
		fds = append(fds, s.clientFD)
	}
	return fds
}

// OnReadable reads available bytes from whichever socket fd is and queues
// the corresponding Recv event. A clean peer close (zero-byte read) queues
// a Close event instead. A read interrupted by a signal (EINTR) is
// retried on the next readability notification rather than tearing the
// session down (§4.3 Failure semantics: "any receive error with code
// 'interrupted' is retried, other errors trigger Close").
func (s *TCPSession) OnReadable(fd int, d *Dispatcher) {
	buf := make([]byte, s.config.ReadChunkSize)
	n, err := readSocket(fd, buf)
	if err != nil {
		if isWouldBlock(err) || isInterrupted(err) {
			return
		}
		s.queueClose(d, err)
		return
	}
	if n == 0 {
		s.queueClose(d, nil)
		return
	}

	packet := &Packet{Payload: buf[:n], Session: s}
	if fd == s.clientFD {
		d.QueueEvent(&Event{
			Source: s,
			Kind:   ServerRecv,
			Packet: packet,
			action: &forward{session: s, direction: toServer, packet: packet},
		})
		return
	}
	d.QueueEvent(&Event{
		Source: s,
		Kind:   ClientRecv,
		Packet: packet,
		action: &forward{session: s, direction: toClient, packet: packet},
	})
}

// OnWritable flushes a pending short write on fd, queuing nothing further:
// a successful flush simply clears the backlog WriteInterest was reporting.
func (s *TCPSession) OnWritable(fd int, d *Dispatcher) {
	s.mu.Lock()
	var pend *[]byte
	if fd == s.serverFD {
		pend = &s.serverPend
	} else if fd == s.clientFD {
		pend = &s.clientPend
	} else {
		s.mu.Unlock()
		return
	}
	data := *pend
	s.mu.Unlock()

	if len(data) == 0 {
		return
	}

	n, err := writeSocket(fd, data)
	if err != nil {
		if isWouldBlock(err) {
			return
		}
		s.queueClose(d, err)
		return
	}

	s.mu.Lock()
	*pend = (*pend)[n:]
	s.mu.Unlock()
}

// forward realises a deferred Recv event's side effect: writing the
// packet's (possibly operator-mutated) payload to the opposite peer. A
// short write is retained as pending and retried on the next writability
// notification rather than looped here (§5).
func (s *TCPSession) forward(d *Dispatcher, dir direction, packet *Packet) error {
	fd := s.serverFD
	if dir == toClient {
		fd = s.clientFD
	}

	n, err := writeSocket(fd, packet.Payload)
	if err != nil {
		if isWouldBlock(err) {
			n = 0
		} else {
			s.queueClose(d, err)
			return nil
		}
	}

	if n < len(packet.Payload) {
		remainder := append([]byte(nil), packet.Payload[n:]...)
		s.mu.Lock()
		if dir == toServer {
			s.serverPend = append(s.serverPend, remainder...)
		} else {
			s.clientPend = append(s.clientPend, remainder...)
		}
		s.mu.Unlock()
	}
	return nil
}

// queueClose enqueues a Close event the first time a session's peer goes
// away or an I/O error occurs. Later calls (the other peer closing too) are
// swallowed: close itself is idempotent, and at most one Close event per
// session reaches the front end.
func (s *TCPSession) queueClose(d *Dispatcher, cause error) {
	s.mu.Lock()
	already := s.state == Closing || s.state == Closed
	if !already {
		s.state = Closing
	}
	s.mu.Unlock()
	if already {
		return
	}

	d.QueueEvent(&Event{
		Source:  s,
		Kind:    Close,
		Context: cause,
		action:  &closeSession{session: s},
	})
}

// close releases both sockets and marks the session Closed. Safe to call
// more than once; only the first call has any effect.
func (s *TCPSession) close(d *Dispatcher) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = Closed
		clientFD, serverFD := s.clientFD, s.serverFD
		s.mu.Unlock()

		closeSocket(clientFD)
		closeSocket(serverFD)
		d.DeregisterSource(s)
		s.logger.Info("session closed", "source", s.String())
	})
}
