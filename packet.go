// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

// Packet is the payload carried by a ClientRecv or ServerRecv [Event].
//
// A Packet is read-only to downstream consumers — the dispatcher never
// mutates it after construction — but the operator is explicitly permitted
// to replace Payload while execution is suspended on a breakpoint (§6):
// the deferred Forward action re-reads Payload when it finally runs, so a
// mutated buffer is what reaches the peer.
type Packet struct {
	// Payload is the bytes received from the peer.
	Payload []byte

	// Session is the session that produced this packet.
	Session *TCPSession
}
