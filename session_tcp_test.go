//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// proxiedSetup dials a fresh session through a listener fronting an echo
// server, draining the dispatcher until the session is visible, and
// returns the client-side net.Conn plus the registered dispatcher/session.
func proxiedSetup(t *testing.T) (d *Dispatcher, l *TCPListener, client net.Conn) {
	t.Helper()
	remoteHost, remotePort := startEchoServer(t)

	l, err := NewTCPListener("127.0.0.1", 0, remoteHost, remotePort, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	d = NewDispatcher(nil, nil, nil)
	d.RegisterSource(l)

	localHost, localPort := l.Addr()
	client, err = net.Dial("tcp", net.JoinHostPort(localHost, strconv.Itoa(localPort)))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.Eventually(t, func() bool {
		_, err := d.Step(context.Background())
		require.NoError(t, err)
		return len(l.Sessions()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	return d, l, client
}

func TestTCPSessionTransparentRelay(t *testing.T) {
	d, _, client := proxiedSetup(t)

	_, err := client.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))

	done := make(chan struct{})
	go func() {
		defer close(done)
		n, err := client.Read(buf)
		require.NoError(t, err)
		require.Equal(t, "ping", string(buf[:n]))
	}()

	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
		}
		_, err := d.Step(context.Background())
		require.NoError(t, err)
		return false
	}, 2*time.Second, 5*time.Millisecond)
	<-done
}

func TestTCPSessionServerRecvBreakpointAllowsPayloadMutation(t *testing.T) {
	d, l, client := proxiedSetup(t)
	session := l.Sessions()[0]

	listener := &recordingListener{}
	d.SetListener(listener)
	d.SetBreakpoint(session, ServerRecv, "")

	_, err := client.Write([]byte("hello"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := d.Step(context.Background())
		require.NoError(t, err)
		return len(listener.breaks) == 1
	}, 2*time.Second, 10*time.Millisecond)

	event := d.PendingBreak()
	require.NotNil(t, event)
	require.Equal(t, "hello", string(event.Packet.Payload))

	event.Packet.Payload = []byte("HELLO")

	buf := make([]byte, 16)
	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	done := make(chan struct{})
	go func() {
		defer close(done)
		n, err := client.Read(buf)
		require.NoError(t, err)
		require.Equal(t, "HELLO", string(buf[:n]))
	}()

	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
		}
		_, err := d.Step(context.Background())
		require.NoError(t, err)
		return false
	}, 2*time.Second, 5*time.Millisecond)
	<-done
}

// TestTCPSessionLogsShareSpanID verifies every log record a session
// produces carries the same "spanID" attribute, so a log consumer can
// reconstruct one connection's history out of the shared event stream
// (doc.go's "Observability" section).
func TestTCPSessionLogsShareSpanID(t *testing.T) {
	remoteHost, remotePort := startEchoServer(t)
	logger, records := newCapturingLogger()

	l, err := NewTCPListener("127.0.0.1", 0, remoteHost, remotePort, nil, logger)
	require.NoError(t, err)
	defer l.Close()

	d := NewDispatcher(nil, logger, nil)
	d.RegisterSource(l)

	localHost, localPort := l.Addr()
	client, err := net.Dial("tcp", net.JoinHostPort(localHost, strconv.Itoa(localPort)))
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool {
		_, err := d.Step(context.Background())
		require.NoError(t, err)
		return len(l.Sessions()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	session := l.Sessions()[0]
	opened := findRecord(*records, "session opened")
	require.NotNil(t, opened)
	require.Equal(t, session.SpanID(), recordAttr(opened, "spanID"))

	client.Close()
	require.Eventually(t, func() bool {
		_, err := d.Step(context.Background())
		require.NoError(t, err)
		return session.State() == Closed
	}, 2*time.Second, 10*time.Millisecond)

	closed := findRecord(*records, "session closed")
	require.NotNil(t, closed)
	require.Equal(t, session.SpanID(), recordAttr(closed, "spanID"))
}

func TestTCPSessionPeerCloseTearsDownBothSockets(t *testing.T) {
	d, l, client := proxiedSetup(t)
	session := l.Sessions()[0]

	client.Close()

	require.Eventually(t, func() bool {
		_, err := d.Step(context.Background())
		require.NoError(t, err)
		return session.State() == Closed
	}, 2*time.Second, 10*time.Millisecond)

	_, registered := d.Sources()[session.Name()]
	require.False(t, registered)
	require.Len(t, l.Sessions(), 1, "listener retains history even after the session's sockets are released")
}
