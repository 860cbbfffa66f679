// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

// EventKind identifies what happened on an [EventSource].
type EventKind int

const (
	// Accept fires when a [TCPListener] accepts an inbound connection.
	Accept EventKind = iota

	// ClientRecv fires when bytes arrive from the server side of a
	// [TCPSession], to be forwarded to the client.
	ClientRecv

	// ServerRecv fires when bytes arrive from the client side of a
	// [TCPSession], to be forwarded to the server.
	ServerRecv

	// Close fires when either side of a session reaches EOF, fails, or is
	// otherwise torn down.
	Close
)

// String implements [fmt.Stringer], returning the CLI token for this kind
// (§6: "accept", "client_recv", "server_recv", "close").
func (k EventKind) String() string {
	switch k {
	case Accept:
		return "accept"
	case ClientRecv:
		return "client_recv"
	case ServerRecv:
		return "server_recv"
	case Close:
		return "close"
	default:
		return "unknown"
	}
}

// ParseEventKind maps a CLI event-kind token to an [EventKind]. It returns
// a [*ConfigurationError] for an unrecognized token, per §7.
func ParseEventKind(token string) (EventKind, error) {
	switch token {
	case "accept":
		return Accept, nil
	case "client_recv":
		return ClientRecv, nil
	case "server_recv":
		return ServerRecv, nil
	case "close":
		return Close, nil
	default:
		return 0, &ConfigurationError{Reason: "unknown event kind '" + token + "'"}
	}
}

// Event is a value produced by an [EventSource] and queued for dispatch.
//
// Every enqueued Event carries exactly one deferred action, which realises
// the event's side effect (accepting a connection, forwarding bytes,
// tearing a session down) the first time — and only the first time — it
// runs.
type Event struct {
	// Source is the event source that produced this event.
	Source EventSource

	// Kind identifies what happened.
	Kind EventKind

	// Packet is the payload for ClientRecv/ServerRecv events; nil for
	// Accept and Close.
	Packet *Packet

	// Context carries diagnostic information that doesn't fit Packet: the
	// error that produced a Close event, or a [ConditionEvaluationError]
	// diagnostic recorded by a fail-open breakpoint.
	Context any

	// action realises this event's side effect. Exactly one call to apply
	// ever happens for a given Event.
	action action
}

// apply runs this event's deferred action exactly once.
func (e *Event) apply(d *Dispatcher) error {
	return e.action.apply(d)
}
