// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"fmt"
	"sync"
)

// TCPListener is an [EventSource] bound to a local host:port, accepting
// inbound TCP connections and proxying each to a fixed remote host:port
// (§4.2).
type TCPListener struct {
	name int64

	localHost  string
	localPort  int
	remoteHost string
	remotePort int

	config        *Config
	errClassifier ErrClassifier
	logger        SLogger

	fd int

	mu       sync.Mutex
	sessions []*TCPSession
}

// NewTCPListener binds and listens on localHost:localPort, proxying
// accepted connections to remoteHost:remotePort. cfg may be nil, in which
// case [NewConfig] defaults apply. logger receives structured lifecycle
// and I/O events for this listener and every session it spawns.
func NewTCPListener(localHost string, localPort int, remoteHost string, remotePort int, cfg *Config, logger SLogger) (*TCPListener, error) {
	if remoteHost == "" && remotePort == 0 {
		return nil, &ConfigurationError{Reason: "TCP listener requires a remote host or port"}
	}
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = DefaultSLogger()
	}

	fd, err := listenTCP(localHost, localPort, cfg.ListenBacklog)
	if err != nil {
		return nil, err
	}

	boundPort, err := boundLocalPort(fd)
	if err != nil {
		closeSocket(fd)
		return nil, &BindError{Addr: localHost, Err: err}
	}

	// remotePort == 0 mirrors the final local port (§4.2).
	if remotePort == 0 {
		remotePort = boundPort
	}

	l := &TCPListener{
		localHost:     localHost,
		localPort:     boundPort,
		remoteHost:    remoteHost,
		remotePort:    remotePort,
		config:        cfg,
		errClassifier: cfg.ErrClassifier,
		logger:        logger,
		fd:            fd,
	}
	l.logger.Info("listener started", "source", l.String())
	return l, nil
}

// Addr returns the actual bound local host and port, useful after
// constructing a listener with localPort=0.
func (l *TCPListener) Addr() (string, int) {
	return l.localHost, l.localPort
}

func (l *TCPListener) Name() int64         { return l.name }
func (l *TCPListener) setName(name int64)  { l.name = name }
func (l *TCPListener) Kind() SourceKind    { return ListenerKind }
func (l *TCPListener) State() SourceState  { return Open }
func (l *TCPListener) Sockets() []int      { return []int{l.fd} }
func (l *TCPListener) WriteInterest() []int { return nil }

func (l *TCPListener) String() string {
	return fmt.Sprintf("<TCP Listener: %d -> %s:%d>", l.localPort, l.remoteHost, l.remotePort)
}

// Sessions returns the listener's currently-retained sessions, oldest
// first. Closed sessions beyond Config.MaxSessionHistory are evicted when a
// new session is retained; open sessions are never evicted, so the list can
// be longer than the bound (§9 Open Question (a)).
func (l *TCPListener) Sessions() []*TCPSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*TCPSession, len(l.sessions))
	copy(out, l.sessions)
	return out
}

// OnReadable accepts exactly one pending connection on the listening
// socket and queues an Accept [Event] for it (§4.2: "accepts exactly one
// connection per readability notification"). Any further backlog is left
// for the next readability notification, which the listening socket keeps
// reporting until the backlog drains. The session itself is not
// constructed here: that happens in publishAccepted, deferred until the
// event's action runs, so a breakpoint on Accept suspends before the
// session is visible to the operator.
func (l *TCPListener) OnReadable(fd int, d *Dispatcher) {
	clientFD, clientAddr, err := acceptTCP(l.fd)
	if err != nil {
		if isWouldBlock(err) {
			return
		}
		l.logger.Info("accept failed", "source", l.String(), "error", l.errClassifier.Classify(err))
		return
	}

	d.QueueEvent(&Event{
		Source: l,
		Kind:   Accept,
		action: &acceptPublish{listener: l, clientFD: clientFD, clientAddr: clientAddr},
	})
}

func (l *TCPListener) OnWritable(fd int, d *Dispatcher) {}

// publishAccepted dials the remote side for a connection already accepted
// on clientFD, constructs the resulting [TCPSession], registers it with the
// dispatcher, and retains it in the listener's bounded session history.
func (l *TCPListener) publishAccepted(d *Dispatcher, clientFD int, clientAddr string) error {
	session, err := newTCPSession(l, clientFD, clientAddr, l.remoteHost, l.remotePort, l.config, l.logger)
	if err != nil {
		l.logger.Info("session setup failed", "source", l.String(), "peer", clientAddr, "error", l.errClassifier.Classify(err))
		closeSocket(clientFD)
		return nil
	}

	d.RegisterSource(session)
	l.retain(session)
	session.logger.Info("session opened", "source", l.String(), "session", session.String())
	return nil
}

func (l *TCPListener) retain(session *TCPSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessions = append(l.sessions, session)
	l.evictClosedLocked()
}

// evictClosedLocked drops the oldest closed sessions once the retained
// count exceeds MaxSessionHistory. Open sessions are never evicted,
// regardless of count, since that would destroy reachable proxy state
// (§9 Open Question (a)).
func (l *TCPListener) evictClosedLocked() {
	max := l.config.MaxSessionHistory
	if max <= 0 || len(l.sessions) <= max {
		return
	}
	excess := len(l.sessions) - max
	kept := l.sessions[:0]
	dropped := 0
	for _, s := range l.sessions {
		if dropped < excess && s.State() == Closed {
			dropped++
			continue
		}
		kept = append(kept, s)
	}
	l.sessions = kept
}

// Close shuts down the listening socket. Already-open sessions are left
// running; the operator closes those explicitly or they close themselves
// on peer EOF.
func (l *TCPListener) Close() error {
	return closeSocket(l.fd)
}
