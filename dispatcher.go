// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"context"
	"sync"
)

// Dispatcher is the single-threaded cooperative loop that owns every
// registered [EventSource], the pending event queue, and the run/step/stop
// control state (§4.5). Exactly one event is ever dispatched at a time;
// there is no internal parallelism.
//
// A Dispatcher is not safe for concurrent use: §5 specifies a
// single-threaded scheduling model, and every public method is expected to
// be called from that one goroutine. The mutex guarding the tables exists
// only so a front-end reading [Dispatcher.Sources]/[Dispatcher.Breakpoints]
// from a different goroutine (e.g. to render a prompt while Run blocks)
// observes a consistent snapshot, not to allow concurrent mutation.
type Dispatcher struct {
	logger SLogger
	config *Config

	mux Multiplexer

	mu             sync.Mutex
	nextSourceName int64
	sources        map[int64]EventSource
	socketToSource map[int]EventSource

	registry *breakpointRegistry
	listener Listener

	queue []*Event

	run bool

	pendingBreak *Event
}

// NewDispatcher constructs a Dispatcher. cfg may be nil, in which case
// [NewConfig] defaults apply. logger receives structured lifecycle events;
// evaluator may be nil, in which case every breakpoint and watchpoint fires
// unconditionally, whatever its condition string (§4.4).
func NewDispatcher(cfg *Config, logger SLogger, evaluator ConditionEvaluator) *Dispatcher {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = DefaultSLogger()
	}
	return &Dispatcher{
		logger:         logger,
		config:         cfg,
		mux:            NewMultiplexer(),
		sources:        make(map[int64]EventSource),
		socketToSource: make(map[int]EventSource),
		registry:       newBreakpointRegistry(evaluator),
		listener:       NopListener{},
	}
}

// RegisterSource assigns s the next monotonic name, indexes its sockets,
// and makes it visible in [Dispatcher.Sources].
func (d *Dispatcher) RegisterSource(s EventSource) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSourceName++
	s.setName(d.nextSourceName)
	d.sources[s.Name()] = s
	for _, fd := range s.Sockets() {
		d.socketToSource[fd] = s
	}
	d.logger.Info("source registered", "name", s.Name(), "source", s.String())
}

// DeregisterSource removes s from the source table and every socket index
// entry pointing at it. Events already queued for s are left in place;
// [Dispatcher.Step] drops them when it notices s is no longer registered
// (§3: "the queue contains only events whose source is still registered;
// stale events must be silently dropped during dispatch").
func (d *Dispatcher) DeregisterSource(s EventSource) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sources[s.Name()]; !ok {
		return
	}
	delete(d.sources, s.Name())
	for fd, owner := range d.socketToSource {
		if owner == s {
			delete(d.socketToSource, fd)
		}
	}
	d.logger.Info("source deregistered", "name", s.Name(), "source", s.String())
}

// SetListener installs the single front-end callback sink. A nil listener
// installs [NopListener].
func (d *Dispatcher) SetListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l == nil {
		l = NopListener{}
	}
	d.listener = l
}

// QueueEvent appends e to the FIFO. Called by event sources from their
// readability/writability handlers.
func (d *Dispatcher) QueueEvent(e *Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, e)
}

// SetBreakpoint installs a breakpoint on (source, kind), replacing and
// notifying-cleared any existing breakpoint for the same pair, and
// notifies the listener of the new breakpoint (§4.4).
func (d *Dispatcher) SetBreakpoint(source EventSource, kind EventKind, condition string) *Breakpoint {
	d.mu.Lock()
	bp, replaced := d.registry.set(source, kind, condition)
	listener := d.listener
	d.mu.Unlock()

	if replaced != nil {
		listener.OnClearBreakpoint(replaced)
	}
	listener.OnSetBreakpoint(bp)
	return bp
}

// ClearBreakpoint removes bp and notifies the listener. A no-op, without
// notification, if bp was already cleared.
func (d *Dispatcher) ClearBreakpoint(bp *Breakpoint) {
	d.mu.Lock()
	removed := d.registry.clear(bp)
	listener := d.listener
	d.mu.Unlock()

	if removed {
		listener.OnClearBreakpoint(bp)
	}
}

// SetWatch installs a watchpoint on (source, kind).
func (d *Dispatcher) SetWatch(source EventSource, kind EventKind, condition string) *Watchpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.setWatch(source, kind, condition)
}

// ClearWatch removes w, reporting whether it was present.
func (d *Dispatcher) ClearWatch(w *Watchpoint) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registry.clearWatch(w)
}

// Sources returns a snapshot of every currently-registered source, keyed
// by assigned name. The returned map is a copy; mutating it has no effect
// on the dispatcher.
func (d *Dispatcher) Sources() map[int64]EventSource {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[int64]EventSource, len(d.sources))
	for k, v := range d.sources {
		out[k] = v
	}
	return out
}

// Breakpoints returns a snapshot of every installed breakpoint, keyed by
// name.
func (d *Dispatcher) Breakpoints() map[int64]*Breakpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[int64]*Breakpoint, len(d.registry.byName))
	for k, v := range d.registry.byName {
		out[k] = v
	}
	return out
}

// PendingBreak returns the event currently stashed at a break, or nil if
// execution is not paused. This is the `e` handle of §6.
func (d *Dispatcher) PendingBreak() *Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pendingBreak
}

// Run sets the run flag and calls Step repeatedly until the flag clears or
// Step reports it was interrupted (§4.5, step 1).
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	d.run = true
	d.mu.Unlock()

	for {
		d.mu.Lock()
		running := d.run
		d.mu.Unlock()
		if !running {
			return nil
		}

		ok, err := d.Step(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}

// Stop clears the run flag. Cooperative: a Step already in flight
// completes before the flag is observed.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.run = false
}

// Step runs one iteration of §4.5's algorithm: poll for readiness only
// while the queue is empty, dequeue one event, drop it if stale, consult
// the breakpoint registry, and either suspend (reporting the break without
// running the event's action) or run the action.
//
// Step returns (false, nil) if the multiplexer reported an operator
// interrupt (ctx done): this is a normal, not an error, condition per §7.
// It returns (false, err) only for errors the multiplexer itself cannot
// recover from.
func (d *Dispatcher) Step(ctx context.Context) (bool, error) {
	if resumed := d.resumePendingBreak(); resumed != nil {
		return d.runAction(resumed)
	}

	for {
		d.mu.Lock()
		empty := len(d.queue) == 0
		d.mu.Unlock()
		if !empty {
			break
		}

		interrupted, err := d.pollOnce(ctx)
		if err != nil {
			return false, err
		}
		if interrupted {
			return false, nil
		}

		d.mu.Lock()
		stillEmpty := len(d.queue) == 0
		d.mu.Unlock()
		if !stillEmpty {
			break
		}
		if err := ctx.Err(); err != nil {
			return false, nil
		}
	}

	d.mu.Lock()
	if len(d.queue) == 0 {
		d.mu.Unlock()
		return true, nil
	}
	event := d.queue[0]
	d.queue = d.queue[1:]
	d.mu.Unlock()

	return d.dispatch(event)
}

// resumePendingBreak clears and returns the stashed break event, if any,
// so the caller dispatches it before touching the multiplexer or the
// queue (§4.5 "Resume semantics").
func (d *Dispatcher) resumePendingBreak() *Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.pendingBreak
	d.pendingBreak = nil
	return e
}

// dispatch realises §4.5 steps b-d for a newly dequeued event: drop it if
// stale, evaluate the breakpoint match, then either evaluate watchpoints
// and suspend, or run the action. A resumed stashed event skips straight
// to runAction instead (§4.5 "Resume semantics").
//
// Watchpoints are evaluated only immediately before an on_break call, never
// on a step that does not break (§9 Open Question (b), breakpoint.go's
// Watchpoint doc comment): they are a non-suspending observer reported
// alongside a break, not a per-event trace.
func (d *Dispatcher) dispatch(event *Event) (bool, error) {
	d.mu.Lock()
	_, registered := d.sources[event.Source.Name()]
	d.mu.Unlock()
	if !registered {
		return true, nil
	}

	d.mu.Lock()
	bp := d.registry.match(event)
	listener := d.listener
	d.mu.Unlock()
	if bp != nil {
		d.mu.Lock()
		fires, condErr := d.registry.fires(bp.Condition, event)
		d.mu.Unlock()
		if condErr != nil {
			event.Context = condErr
		}
		if fires {
			d.mu.Lock()
			watches := d.registry.matchingWatches(event)
			d.run = false
			d.pendingBreak = event
			d.mu.Unlock()
			for _, w := range watches {
				listener.OnWatch(w, event)
			}
			listener.OnBreak(bp, event)
			return true, nil
		}
	}

	return d.runAction(event)
}

// runAction runs event's deferred action exactly once, after first
// checking that its source is still registered (a resumed break event may
// have had its source torn down while execution was suspended). The
// breakpoint registry is deliberately not consulted here: a resumed event
// has already cleared its break and must not re-suspend (§4.5 "Resume
// semantics").
func (d *Dispatcher) runAction(event *Event) (bool, error) {
	d.mu.Lock()
	_, registered := d.sources[event.Source.Name()]
	d.mu.Unlock()
	if !registered {
		return true, nil
	}

	if err := event.apply(d); err != nil {
		d.logger.Info("deferred action failed", "kind", event.Kind.String(), "error", err.Error())
	}
	return true, nil
}

// pollOnce services one multiplexer cycle: gather every socket currently
// owned by a registered source, wait for readiness, and dispatch
// readability/writability callbacks. Returns (true, nil) if the wait was
// interrupted.
func (d *Dispatcher) pollOnce(ctx context.Context) (bool, error) {
	d.mu.Lock()
	var readFDs, writeFDs []int
	fdOwner := make(map[int]EventSource)
	for _, s := range d.sources {
		for _, fd := range s.Sockets() {
			readFDs = append(readFDs, fd)
			fdOwner[fd] = s
		}
		for _, fd := range s.WriteInterest() {
			writeFDs = append(writeFDs, fd)
			fdOwner[fd] = s
		}
	}
	timeoutMs := int(d.config.PollTimeout.Milliseconds())
	d.mu.Unlock()

	ready, err := d.mux.Wait(ctx, readFDs, writeFDs, timeoutMs)
	if err != nil {
		if err == ErrInterrupted {
			return true, nil
		}
		return false, err
	}

	for _, fd := range ready.Readable {
		if s, ok := fdOwner[fd]; ok {
			s.OnReadable(fd, d)
		}
	}
	for _, fd := range ready.Writable {
		if s, ok := fdOwner[fd]; ok {
			s.OnWritable(fd, d)
		}
	}
	return false, nil
}
