// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package transport defines the connection abstraction the dispatch node
// depends on and a reference WebSocket implementation of it. The wire
// framing itself (category/method/payload) is split out one layer up, by
// the cmd/ entry points that read Frames; this package only owns bytes in,
// bytes out, and
// per-connection lifecycle.
package transport

import "context"

// Connection is one client link into a node. Implementations must be safe
// for concurrent Send calls from multiple goroutines; Frames is read by a
// single dispatch goroutine per connection.
type Connection interface {
	// Frames returns the channel of inbound request frames. It is closed
	// when the connection is torn down.
	Frames() <-chan []byte
	// Send writes one response or push frame to the client.
	Send(ctx context.Context, frame []byte) error
	// Close tears down the connection.
	Close() error
	// RemoteAddr identifies the peer for logging.
	RemoteAddr() string
	// AuthenticatedID returns the connection's current authenticated
	// identity, or 0 if unauthenticated.
	AuthenticatedID() uint64
	// SetAuthenticatedID transitions the connection's authenticated
	// identity; the dispatch loop calls this when a handler's Process
	// changes the identity it was given.
	SetAuthenticatedID(id uint64)
}

// State tracks the per-connection authentication state the dispatch loop
// mutates across requests, corresponding to the original's client->state.
type State struct {
	AuthenticatedID uint64
	Authenticated   bool
}
