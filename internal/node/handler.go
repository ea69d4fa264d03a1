// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

package node

import "github.com/tomtom215/areanode/internal/store"

// Handler is one (category,method) request's per-worker scratchpad. A
// handler instance is never shared across workers and never shared across
// concurrent requests on the same worker; the node owns exactly one per
// registered key per worker.
type Handler interface {
	// Deserialize reads the request payload. A short or malformed read
	// must return an error; the node converts that into InvalidParameters.
	Deserialize(parameters []byte) error

	// Process executes the request. authID points at the connection's
	// current authenticated identity; Process may read or overwrite it to
	// drive a login/logout transition. tx is nil when the node was built
	// without a database, per spec.md §4.4.
	Process(authID *uint64, tx *store.Context) (ResultCode, error)

	// Serialize writes the success response payload. Only called when
	// Process returned Success.
	Serialize() ([]byte, error)
}

// HandlerFactory constructs one fresh Handler instance. The node calls it
// once per worker at registration time.
type HandlerFactory func() Handler
