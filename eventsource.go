// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

// SourceKind distinguishes the two concrete [EventSource] implementations.
type SourceKind int

const (
	// ListenerKind identifies a [TCPListener] or [UDPListener].
	ListenerKind SourceKind = iota
	// SessionKind identifies a [TCPSession] or [UDPSession].
	SessionKind
)

func (k SourceKind) String() string {
	switch k {
	case ListenerKind:
		return "listener"
	case SessionKind:
		return "session"
	default:
		return "unknown"
	}
}

// SourceState is interpreted per [SourceKind]: a listener is Open for its
// whole life; a session moves Connecting -> Open -> Closing -> Closed
// (§4.3).
type SourceState int

const (
	// Connecting: a session is dialing its server side.
	Connecting SourceState = iota
	// Open: a listener is bound and listening, or a session has both
	// sockets live.
	Open
	// Closing: a session has seen its first close trigger (peer EOF,
	// local close, or I/O error) but has not yet been deregistered.
	Closing
	// Closed: a session's sockets are released and it has been
	// deregistered. No event may be generated for a source in this state.
	Closed
)

func (s SourceState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventSource is the narrow capability interface every participant in the
// dispatcher's world implements — the closed variant {Listener, Session}
// from §9's design notes, replacing a dynamic-dispatch base class.
//
// An EventSource owns zero or more sockets, and turns their readiness into
// [Event] values queued on the [Dispatcher] that registered it.
type EventSource interface {
	// Name is the unique, monotonically-increasing number the dispatcher
	// assigned on registration. Zero before registration.
	Name() int64

	// setName is called exactly once, by [Dispatcher.RegisterSource].
	setName(name int64)

	// Kind reports whether this source is a listener or a session.
	Kind() SourceKind

	// State reports this source's current lifecycle state.
	State() SourceState

	// Sockets returns every file descriptor this source currently owns.
	// The dispatcher indexes these in socketToSource and polls them for
	// readability.
	Sockets() []int

	// WriteInterest returns the subset of Sockets currently holding
	// unflushed write data, so the dispatcher's multiplexer query also
	// waits for writability on them (§5: partial writes are retried on
	// the next readiness notification, not immediately).
	WriteInterest() []int

	// OnReadable is called when fd (one of Sockets) is readable.
	OnReadable(fd int, d *Dispatcher)

	// OnWritable is called when fd (one of WriteInterest) is writable.
	OnWritable(fd int, d *Dispatcher)

	// String returns a human-readable description, e.g.
	// "<TCP Listener: 8080 -> example.com:80>".
	String() string
}
