// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

// action is the closed set of deferred actions an [Event] can carry.
//
// This replaces the base-class-plus-closure model: instead of an event
// holding an arbitrary callable that captures mutable source references,
// it holds one of a small fixed set of concrete, inspectable action
// types (§9: "re-architect as a tagged union"). The dispatcher does not
// need to know which one it has beyond calling apply — but having a
// closed set means every side effect an event can cause is named and
// auditable at this file.
type action interface {
	apply(d *Dispatcher) error
}

// acceptPublish constructs the [TCPSession] for a connection a
// [TCPListener] has already accepted, and publishes it to the listener's
// session list and the dispatcher's source table.
//
// Constructing the session (dialing the target) happens here, deferred,
// rather than at accept time, so that a breakpoint on Accept can suspend
// execution before the session exists from the operator's point of view
// (§4.2).
type acceptPublish struct {
	listener   *TCPListener
	clientFD   int
	clientAddr string
}

func (a *acceptPublish) apply(d *Dispatcher) error {
	return a.listener.publishAccepted(d, a.clientFD, a.clientAddr)
}

// direction identifies which peer a Forward action writes to.
type direction int

const (
	// toServer forwards client-received bytes to the server socket.
	toServer direction = iota
	// toClient forwards server-received bytes to the client socket.
	toClient
)

// forward sends a packet's (possibly operator-mutated) payload to the
// opposite peer of the session that produced it.
type forward struct {
	session   *TCPSession
	direction direction
	packet    *Packet
}

func (a *forward) apply(d *Dispatcher) error {
	return a.session.forward(d, a.direction, a.packet)
}

// closeSession tears a session's sockets down and deregisters it from the
// dispatcher. Idempotent: a second close is a no-op (§4.3).
type closeSession struct {
	session *TCPSession
}

func (a *closeSession) apply(d *Dispatcher) error {
	a.session.close(d)
	return nil
}
