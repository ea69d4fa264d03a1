// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

package broker

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/areanode/internal/transport"
)

// Frame is one inbound broker frame: connection, the framing header
// already peeled off by the listener, and the raw payload.
type Frame struct {
	Conn     transport.Connection
	Category uint8
	Method   uint8
	Payload  []byte
}

// Service runs the broker's single dispatch loop as a suture.Service. The
// broker's handler surface has no worker concept — spec.md §4.5 treats it
// as a trivial override, not a parallel handler table — so one Service
// drains the inbound frame channel.
type Service struct {
	node   *Node
	frames <-chan Frame
	log    zerolog.Logger
}

// NewService builds a broker Service reading from frames.
func NewService(n *Node, frames <-chan Frame, log zerolog.Logger) *Service {
	return &Service{node: n, frames: frames, log: log.With().Str("component", "broker-service").Logger()}
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-s.frames:
			if !ok {
				return nil
			}
			if err := s.node.Dispatch(ctx, f.Conn, f.Category, f.Method, f.Payload); err != nil {
				s.log.Warn().Err(err).Str("remote", f.Conn.RemoteAddr()).Msg("broker dispatch failed")
			}
		}
	}
}

// String implements suture.Service.
func (s *Service) String() string { return "broker-service" }
