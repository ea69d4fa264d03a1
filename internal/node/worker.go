// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

package node

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/areanode/internal/transport"
)

// Request is one inbound frame assigned to a worker. The connection layer
// (out of scope per spec.md §1) is responsible for framing category,
// method, and parameters out of the raw bytes it reads.
type Request struct {
	Conn       transport.Connection
	Category   uint8
	Method     uint8
	Parameters []byte
}

// Pool is a fixed-size set of worker goroutines sharing one inbound
// channel, corresponding to spec.md §5's "fixed pool of workers threads".
type Pool struct {
	node     *Node
	requests chan Request
	workers  []*Worker
}

// NewPool builds a Pool with queue depth backlog and one Worker per
// configured node worker, each added to a suture tree by the caller.
func NewPool(n *Node, backlog int, log zerolog.Logger) *Pool {
	requests := make(chan Request, backlog)
	p := &Pool{node: n, requests: requests}
	p.workers = make([]*Worker, n.workers)
	for i := range p.workers {
		p.workers[i] = &Worker{
			id:       i,
			node:     n,
			requests: requests,
			log:      log.With().Int("worker", i).Logger(),
		}
	}
	return p
}

// Workers returns the pool's suture.Service instances for registration
// with a supervisor tree.
func (p *Pool) Workers() []*Worker { return p.workers }

// Submit enqueues req for processing by whichever worker is free, or
// returns ctx.Err() if ctx is done before the request could be queued.
func (p *Pool) Submit(ctx context.Context, req Request) error {
	select {
	case p.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Worker is one dispatch goroutine, implementing suture.Service.
type Worker struct {
	id       int
	node     *Node
	requests <-chan Request
	log      zerolog.Logger
}

// Serve implements suture.Service.
func (w *Worker) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-w.requests:
			if !ok {
				return nil
			}
			w.handle(ctx, req)
		}
	}
}

func (w *Worker) handle(ctx context.Context, req Request) {
	result, payload := w.node.Dispatch(ctx, w.id, req.Conn, req.Category, req.Method, req.Parameters)
	if result == NoResponse {
		return
	}
	frame := EncodeResponse(result, payload)
	if err := req.Conn.Send(ctx, frame); err != nil {
		w.log.Warn().Err(err).Str("remote", req.Conn.RemoteAddr()).Msg("response delivery failed")
	}
}

// String implements suture.Service.
func (w *Worker) String() string {
	return fmt.Sprintf("node-worker-%d", w.id)
}
