// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAction struct {
	called bool
	err    error
}

func (a *fakeAction) apply(d *Dispatcher) error {
	a.called = true
	return a.err
}

type recordingListener struct {
	breaks         []*Event
	setBreakpoints []*Breakpoint
	clearBreaks    []*Breakpoint
	watches        []*Watchpoint
}

func (l *recordingListener) OnBreak(bp *Breakpoint, event *Event) {
	l.breaks = append(l.breaks, event)
}
func (l *recordingListener) OnSetBreakpoint(bp *Breakpoint)   { l.setBreakpoints = append(l.setBreakpoints, bp) }
func (l *recordingListener) OnClearBreakpoint(bp *Breakpoint) { l.clearBreaks = append(l.clearBreaks, bp) }
func (l *recordingListener) OnWatch(w *Watchpoint, event *Event) { l.watches = append(l.watches, w) }

func TestDispatcherRegisterDeregisterRoundtrip(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	src := &fakeSource{}

	d.RegisterSource(src)
	assert.Equal(t, int64(1), src.Name())
	assert.Len(t, d.Sources(), 1)

	d.DeregisterSource(src)
	assert.Empty(t, d.Sources())
}

func TestDispatcherSetClearBreakpointNotifiesListener(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	listener := &recordingListener{}
	d.SetListener(listener)
	src := &fakeSource{}
	d.RegisterSource(src)

	bp := d.SetBreakpoint(src, ServerRecv, "")
	require.Len(t, listener.setBreakpoints, 1)
	assert.Same(t, bp, listener.setBreakpoints[0])

	d.ClearBreakpoint(bp)
	require.Len(t, listener.clearBreaks, 1)
	assert.Same(t, bp, listener.clearBreaks[0])

	assert.Equal(t, d.Sources(), d.Sources())
}

func TestDispatcherStepDropsStaleEvent(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	src := &fakeSource{}
	d.RegisterSource(src)
	action := &fakeAction{}
	d.QueueEvent(&Event{Source: src, Kind: ServerRecv, action: action})

	d.DeregisterSource(src)

	ok, err := d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, action.called, "stale event's action must not run")
}

func TestDispatcherStepRunsActionWithoutBreakpoint(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	src := &fakeSource{}
	d.RegisterSource(src)
	action := &fakeAction{}
	d.QueueEvent(&Event{Source: src, Kind: ServerRecv, action: action})

	ok, err := d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, action.called)
	assert.Nil(t, d.PendingBreak())
}

func TestDispatcherStepSuspendsOnBreakpointWithoutRunningAction(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	listener := &recordingListener{}
	d.SetListener(listener)
	src := &fakeSource{}
	d.RegisterSource(src)
	d.SetBreakpoint(src, ServerRecv, "")

	action := &fakeAction{}
	event := &Event{Source: src, Kind: ServerRecv, action: action}
	d.QueueEvent(event)

	ok, err := d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, action.called, "break must suspend before the deferred action runs")
	require.Len(t, listener.breaks, 1)
	assert.Same(t, event, listener.breaks[0])
	assert.Same(t, event, d.PendingBreak())
}

func TestDispatcherResumeRunsStashedActionFirst(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	d.SetListener(&recordingListener{})
	src := &fakeSource{}
	d.RegisterSource(src)
	d.SetBreakpoint(src, ServerRecv, "")

	action := &fakeAction{}
	d.QueueEvent(&Event{Source: src, Kind: ServerRecv, action: action})
	_, err := d.Step(context.Background())
	require.NoError(t, err)
	require.False(t, action.called)

	other := &fakeAction{}
	d.QueueEvent(&Event{Source: src, Kind: ClientRecv, action: other})

	ok, err := d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, action.called, "resume must dispatch the stashed event before anything newly queued")
	assert.False(t, other.called, "only the stashed event dispatches on the resuming step")
}

func TestDispatcherStepVsRunProcessesOneAtATime(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	src1 := &fakeSource{}
	src2 := &fakeSource{}
	d.RegisterSource(src1)
	d.RegisterSource(src2)

	a1 := &fakeAction{}
	a2 := &fakeAction{}
	d.QueueEvent(&Event{Source: src1, Kind: ServerRecv, action: a1})
	d.QueueEvent(&Event{Source: src2, Kind: ServerRecv, action: a2})

	ok, err := d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, a1.called)
	assert.False(t, a2.called)
	assert.Len(t, d.queue, 1)

	ok, err = d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, a2.called)
	assert.Empty(t, d.queue)
}

func TestDispatcherWatchpointFiresBeforeBreak(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	listener := &recordingListener{}
	d.SetListener(listener)
	src := &fakeSource{}
	d.RegisterSource(src)

	w := d.SetWatch(src, ServerRecv, "")
	d.SetBreakpoint(src, ServerRecv, "")

	event := &Event{Source: src, Kind: ServerRecv, action: &fakeAction{}}
	d.QueueEvent(event)

	_, err := d.Step(context.Background())
	require.NoError(t, err)
	require.Len(t, listener.watches, 1)
	assert.Same(t, w, listener.watches[0])
	require.Len(t, listener.breaks, 1)
}

// TestDispatcherWatchpointDoesNotFireWithoutMatchingBreakpoint exercises §9
// Open Question (b): a watchpoint is a non-suspending observer evaluated
// only immediately before an on_break call, never on a step that does not
// break. With no breakpoint installed on the same (source, kind), the
// event dispatches normally and on_watch must never fire.
func TestDispatcherWatchpointDoesNotFireWithoutMatchingBreakpoint(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	listener := &recordingListener{}
	d.SetListener(listener)
	src := &fakeSource{}
	d.RegisterSource(src)

	d.SetWatch(src, ServerRecv, "")

	action := &fakeAction{}
	event := &Event{Source: src, Kind: ServerRecv, action: action}
	d.QueueEvent(event)

	ok, err := d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, action.called, "no breakpoint installed, so the event's action runs normally")
	assert.Empty(t, listener.watches, "a watchpoint must not fire on a non-breaking step")
	assert.Empty(t, listener.breaks)
}

func TestDispatcherFailingActionDoesNotPropagate(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	src := &fakeSource{}
	d.RegisterSource(src)

	action := &fakeAction{err: errors.New("boom")}
	d.QueueEvent(&Event{Source: src, Kind: ServerRecv, action: action})

	ok, err := d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, action.called)
}

func TestDispatcherRunWithNoSourcesInterruptedReturnsCleanly(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, d.Sources())
	assert.Empty(t, d.Breakpoints())
}

func TestDispatcherStopIsCooperative(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	src := &fakeSource{}
	d.RegisterSource(src)
	d.QueueEvent(&Event{Source: src, Kind: ServerRecv, action: &fakeAction{}})
	d.Stop()

	ok, err := d.Step(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "Step still runs once even though Stop was already called; Stop only affects Run's loop")
}
