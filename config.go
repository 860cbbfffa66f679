// SPDX-License-Identifier: GPL-3.0-or-later

package monjon

import "time"

// Config holds common configuration for the dispatcher and the event
// sources it owns.
//
// Pass this to constructor functions to pre-wire dependencies. All fields
// have sensible defaults set by [NewConfig].
type Config struct {
	// ErrClassifier classifies I/O errors for structured logging. The Close
	// event a failed read/write produces carries the unclassified error as
	// its Context.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// ReadChunkSize is the maximum number of bytes read from a socket per
	// readability notification (§6: "default read chunk 8192 bytes").
	//
	// Set by [NewConfig] to 8192.
	ReadChunkSize int

	// ListenBacklog is the backlog passed to listen(2) when constructing a
	// [TCPListener] (§4.2: "a modest backlog (5 is sufficient)").
	//
	// Set by [NewConfig] to 5.
	ListenBacklog int

	// PollTimeout is the "short finite timeout" the dispatcher's step loop
	// passes to the [Multiplexer] while the event queue is empty (§4.5,
	// step 2a).
	//
	// Set by [NewConfig] to 100ms.
	PollTimeout time.Duration

	// MaxSessionHistory bounds how many sessions a [TCPListener] retains in
	// [TCPListener.Sessions]: when a new session is added and the count
	// exceeds the bound, the oldest closed sessions are evicted first. Open
	// sessions are never evicted, so the list exceeds the bound while more
	// than that many sessions are open. Resolves Open Question (a) from §9
	// of the specification.
	//
	// Set by [NewConfig] to 256.
	MaxSessionHistory int
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ErrClassifier:     DefaultErrClassifier,
		TimeNow:           time.Now,
		ReadChunkSize:     8192,
		ListenBacklog:     5,
		PollTimeout:       100 * time.Millisecond,
		MaxSessionHistory: 256,
	}
}
