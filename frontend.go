// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

// Listener is the front-end contract (§4.6): the single callback sink a
// dispatcher reports breakpoint, registry, and watchpoint activity to.
//
// Exactly one Listener is installed at a time ([Dispatcher.SetListener]).
// The core never assumes anything about what consumes these calls — a
// REPL, a GUI, or a scripted driver are all just implementations of this
// interface (§9: "the REPL is one consumer; other front-ends must not need
// to reimplement that coupling").
type Listener interface {
	// OnBreak reports that execution has paused on bp having matched
	// event. event is valid until the next Run or Step call; the listener
	// must not retain it past that point.
	OnBreak(bp *Breakpoint, event *Event)

	// OnSetBreakpoint reports that bp was installed (or replaced an
	// existing breakpoint for the same source/kind).
	OnSetBreakpoint(bp *Breakpoint)

	// OnClearBreakpoint reports that bp was removed from the registry.
	OnClearBreakpoint(bp *Breakpoint)

	// OnWatch reports that watchpoint w matched event, immediately before
	// any OnBreak call for the same step.
	OnWatch(w *Watchpoint, event *Event)
}

// NopListener is a [Listener] that discards every callback. It is useful
// as a default when no front-end is installed yet, and in tests that only
// care about dispatcher-internal state.
type NopListener struct{}

var _ Listener = NopListener{}

func (NopListener) OnBreak(bp *Breakpoint, event *Event)     {}
func (NopListener) OnSetBreakpoint(bp *Breakpoint)           {}
func (NopListener) OnClearBreakpoint(bp *Breakpoint)         {}
func (NopListener) OnWatch(w *Watchpoint, event *Event)      {}
