// SPDX-License-Identifier: GPL-3.0-or-later

// Package monjon is the event dispatcher and proxy engine at the heart of
// the monjon interactive network-traffic debugger.
//
// # Core Abstraction
//
// A single-threaded, cooperative [Dispatcher] owns every socket in the
// system. It converts raw readability/writability into typed [Event]
// values, queues them in FIFO order, evaluates [Breakpoint]s against each
// one, and either suspends (notifying a front-end [Listener]) or runs the
// event's deferred action to forward bytes, accept a connection, or tear
// a session down.
//
// # Event sources
//
// [TCPListener] and [TCPSession] are the two [EventSource] implementations.
// A listener owns one bound, listening socket and produces Accept events;
// a session owns a connected client/server socket pair and produces
// ClientRecv, ServerRecv, and Close events. Both are registered with the
// dispatcher via [Dispatcher.RegisterSource], which indexes their sockets
// for the [Multiplexer]. [UDPListener]/[UDPSession] are present
// structurally (§4.3/§9(c) of the specification) but the datagram relay
// loop itself is a stub pending a future extension.
//
// # Control model
//
// [Dispatcher.Run] and [Dispatcher.Step] implement run/step/stop debugger
// semantics: Run repeatedly Steps until interrupted or a breakpoint fires;
// Step processes exactly one event, first polling the multiplexer if the
// queue is empty. When a breakpoint matches, Step suspends before running
// the event's deferred action — the action runs on the next Run/Step call,
// giving the operator a chance to inspect or mutate the event's [Packet]
// first.
//
// # Front-end contract
//
// The interactive command surface, any future GUI, and scripted drivers
// are all front-ends: they implement [Listener] and call
// [Dispatcher.SetListener] to receive OnBreak/OnSetBreakpoint/
// OnClearBreakpoint/OnWatch callbacks, and drive the dispatcher with
// Run/Step/Stop. None of that UI is part of this package.
//
// # Observability
//
// All components support structured logging via [SLogger] (compatible
// with [log/slog]). By default, logging is disabled; set a [*slog.Logger]
// to enable it. I/O errors are classified via [ErrClassifier]; the default
// implementation ([DefaultErrClassifier]) maps errno-shaped errors to
// short labels such as "ETIMEDOUT" using github.com/bassosimone/errclass.
// Every [TCPSession] attaches a span id (see [NewSpanID]) to its logger so
// every log record it emits carries a "spanID" field and can be correlated.
//
// Lifecycle records (listener start, source registration and
// deregistration, session open and close, accept or session-setup failure,
// a failed deferred action) use [log/slog.LevelInfo] and carry a "source"
// or "name" field. The only [log/slog.LevelDebug] record is the per-datagram
// record of [UDPListener]. Raw TCP socket reads, writes and polls are not
// logged, and breaks, watchpoint matches and breakpoint changes are reported
// only through [Listener], not logged.
//
// # Concurrency and context
//
// The dispatcher is not concurrent: exactly one event is dispatched at a
// time, on the goroutine that called Run or Step. The only blocking call
// is the [Multiplexer] inside Step. Run and Step are context-transparent:
// they never modify the [context.Context] they receive, and a cancelled
// context is the idiomatic stand-in for the operator's interrupt signal —
// the multiplexer returns [ErrInterrupted] promptly, and Run/Step unwind
// cleanly with no half-dispatched event and no leaked socket.
package monjon
