// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package broker implements the fan-out switch that routes inter-area
// messages by target area identifier, grounded on the original's
// broker_node: a processor node whose entire handler surface is the
// registration/forward pair described in spec.md §4.5.
package broker

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/areanode/internal/metrics"
	"github.com/tomtom215/areanode/internal/transport"
)

// Node routes frames between registered areas. Unlike node.Node it has no
// (category,method) handler tables: every frame is either a registration
// or a forward, distinguished by the category/method header the caller
// already peeled off.
type Node struct {
	mu       sync.Mutex
	areas    map[uint64][]transport.Connection
	breakers map[uint64]*gobreaker.CircuitBreaker[struct{}]
	log      zerolog.Logger
}

// New constructs an empty broker Node.
func New(log zerolog.Logger) *Node {
	return &Node{
		areas:    make(map[uint64][]transport.Connection),
		breakers: make(map[uint64]*gobreaker.CircuitBreaker[struct{}]),
		log:      log.With().Str("component", "broker").Logger(),
	}
}

func (n *Node) breakerFor(areaID uint64) *gobreaker.CircuitBreaker[struct{}] {
	n.mu.Lock()
	defer n.mu.Unlock()
	if b, ok := n.breakers[areaID]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        fmt.Sprintf("broker-area-%d", areaID),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	n.breakers[areaID] = b
	return b
}

// Register handles category=0,method=0: the payload is exactly the 8-byte
// little-endian area identifier the connection now represents.
func (n *Node) Register(conn transport.Connection, payload []byte) error {
	if len(payload) != 8 {
		return fmt.Errorf("broker: registration payload must be 8 bytes, got %d", len(payload))
	}
	areaID := binary.LittleEndian.Uint64(payload)
	conn.SetAuthenticatedID(areaID)

	n.mu.Lock()
	n.areas[areaID] = append(n.areas[areaID], conn)
	n.mu.Unlock()

	n.log.Info().Uint64("area_id", areaID).Str("remote", conn.RemoteAddr()).Msg("area registered")
	return nil
}

// Forward handles every other frame: the trailing 8 bytes of payload name
// the target area, the remainder is delivered verbatim to every connection
// registered under that area.
func (n *Node) Forward(ctx context.Context, payload []byte) error {
	if len(payload) < 8 {
		return fmt.Errorf("broker: forward payload must carry a trailing area id")
	}
	split := len(payload) - 8
	targetAreaID := binary.LittleEndian.Uint64(payload[split:])
	body := payload[:split]

	n.mu.Lock()
	targets := append([]transport.Connection(nil), n.areas[targetAreaID]...)
	n.mu.Unlock()

	if len(targets) == 0 {
		// No connection has ever registered for this area: a silent drop,
		// matching the original's unconditional send-to-map-entry, which
		// is a no-op against an absent key.
		metrics.BrokerForwards.WithLabelValues("unregistered").Inc()
		return nil
	}

	breaker := n.breakerFor(targetAreaID)
	var sendErr error
	for _, conn := range targets {
		_, sendErr = breaker.Execute(func() (struct{}, error) {
			return struct{}{}, conn.Send(ctx, body)
		})
		if sendErr != nil {
			n.log.Warn().Err(sendErr).Uint64("area_id", targetAreaID).Msg("forward failed")
		}
	}
	if sendErr != nil {
		if sendErr == gobreaker.ErrOpenState {
			metrics.BrokerForwards.WithLabelValues("invalid_server").Inc()
		} else {
			metrics.BrokerForwards.WithLabelValues("error").Inc()
		}
		return sendErr
	}
	metrics.BrokerForwards.WithLabelValues("ok").Inc()
	return nil
}

// IsLinkDown reports whether err indicates a broker link whose circuit
// breaker has tripped open: the error Forward returns without sending,
// counted under the invalid_server label of BrokerForwards.
func IsLinkDown(err error) bool {
	return err == gobreaker.ErrOpenState
}

// OnDisconnect removes conn from whichever area it was registered under,
// the Go equivalent of the original's broker_node::on_disconnect cleanup.
func (n *Node) OnDisconnect(conn transport.Connection) {
	areaID := conn.AuthenticatedID()
	if areaID == 0 {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	sessions := n.areas[areaID]
	for i, c := range sessions {
		if c == conn {
			n.areas[areaID] = append(sessions[:i], sessions[i+1:]...)
			break
		}
	}
	if len(n.areas[areaID]) == 0 {
		delete(n.areas, areaID)
		delete(n.breakers, areaID)
	}
}

// Dispatch is the broker's entire handler surface: category=0,method=0 is
// registration, everything else is a forward. It returns the error from
// Register or Forward and never writes a response frame to conn.
func (n *Node) Dispatch(ctx context.Context, conn transport.Connection, category, method uint8, payload []byte) error {
	if category == 0 && method == 0 {
		return n.Register(conn, payload)
	}
	return n.Forward(ctx, payload)
}
