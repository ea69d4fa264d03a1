// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package node implements the request-dispatch state machine: connection
// authentication state, per-worker handler tables, and the
// deserialize/process/commit/serialize sequence with synchronization-
// conflict retry. It corresponds to processor_node / processor_node_db.
package node

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/areanode/internal/cache"
	"github.com/tomtom215/areanode/internal/metrics"
	"github.com/tomtom215/areanode/internal/store"
	"github.com/tomtom215/areanode/internal/transport"
)

func key(category, method uint8) uint16 {
	return uint16(category)<<8 | uint16(method)
}

// Node dispatches inbound requests to registered handlers, tracks which
// connections are authenticated as which identity, and optionally forwards
// notifications to a broker link for other areas.
type Node struct {
	workers int
	areaID  uint64

	authHandlers   map[uint16][]Handler
	unauthHandlers map[uint16][]Handler

	clientsMu sync.Mutex
	clients   map[uint64][]transport.Connection

	brokerMu sync.Mutex
	broker   transport.Connection

	db  *store.DB
	log zerolog.Logger
}

// New constructs a Node with the given worker count and area identifier.
// db may be nil, in which case Dispatch runs handlers without a
// transaction (spec.md §4.4, "constructed without a context factory").
// areaID of 0 means standalone mode: no broker registration is sent.
func New(workers int, areaID uint64, db *store.DB, log zerolog.Logger) *Node {
	return &Node{
		workers:        workers,
		areaID:         areaID,
		authHandlers:   make(map[uint16][]Handler),
		unauthHandlers: make(map[uint16][]Handler),
		clients:        make(map[uint64][]transport.Connection),
		db:             db,
		log:            log.With().Str("component", "node").Logger(),
	}
}

// RegisterHandler creates one Handler instance per worker for (category,
// method) and files it into the authenticated or unauthenticated table.
func (n *Node) RegisterHandler(category, method uint8, authenticated bool, factory HandlerFactory) {
	table := n.unauthHandlers
	if authenticated {
		table = n.authHandlers
	}
	k := key(category, method)
	instances := make([]Handler, n.workers)
	for i := range instances {
		instances[i] = factory()
	}
	table[k] = instances
}

// AreaID returns the node's configured area identifier.
func (n *Node) AreaID() uint64 { return n.areaID }

func (n *Node) addClient(id uint64, conn transport.Connection) {
	n.clientsMu.Lock()
	defer n.clientsMu.Unlock()
	n.clients[id] = append(n.clients[id], conn)
	metrics.ConnectedClients.Inc()
}

func (n *Node) delClient(id uint64, conn transport.Connection) {
	n.clientsMu.Lock()
	defer n.clientsMu.Unlock()
	sessions := n.clients[id]
	for i, c := range sessions {
		if c == conn {
			n.clients[id] = append(sessions[:i], sessions[i+1:]...)
			metrics.ConnectedClients.Dec()
			break
		}
	}
	if len(n.clients[id]) == 0 {
		delete(n.clients, id)
	}
}

// OnDisconnect removes conn from whatever identity it was authenticated
// as. Transport implementations call this from their connection teardown.
func (n *Node) OnDisconnect(conn transport.Connection) {
	if id := conn.AuthenticatedID(); id != 0 {
		n.delClient(id, conn)
	}
}

// Send delivers notification to every session authenticated as
// recipientID. Enqueue is best-effort and nonblocking per session: a slow
// or dead connection never blocks delivery to the others.
func (n *Node) Send(ctx context.Context, recipientID uint64, notification []byte) {
	n.clientsMu.Lock()
	sessions := append([]transport.Connection(nil), n.clients[recipientID]...)
	n.clientsMu.Unlock()

	for _, conn := range sessions {
		go func(c transport.Connection) {
			if err := c.Send(ctx, notification); err != nil {
				n.log.Warn().Err(err).Str("remote", c.RemoteAddr()).Msg("notification delivery failed")
			}
		}(conn)
	}
}

// SetBrokerConnection registers conn as this node's outbound broker link
// and sends the registration frame (category=0, method=0, payload=area_id)
// per spec.md §4.4 broker linkage.
func (n *Node) SetBrokerConnection(ctx context.Context, conn transport.Connection) error {
	n.brokerMu.Lock()
	n.broker = conn
	n.brokerMu.Unlock()

	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, n.areaID)
	frame := make([]byte, 2+len(payload))
	frame[0], frame[1] = 0, 0
	copy(frame[2:], payload)
	return conn.Send(ctx, frame)
}

// SendToBroker forwards payload to the broker, addressed to targetAreaID
// appended as the trailing 8 little-endian bytes, per spec.md §6.
func (n *Node) SendToBroker(ctx context.Context, targetAreaID uint64, payload []byte) error {
	n.brokerMu.Lock()
	broker := n.broker
	n.brokerMu.Unlock()
	if broker == nil {
		return errors.New("node: no broker connection configured")
	}

	frame := make([]byte, len(payload)+8)
	copy(frame, payload)
	binary.LittleEndian.PutUint64(frame[len(payload):], targetAreaID)
	if err := broker.Send(ctx, frame); err != nil {
		metrics.BrokerForwards.WithLabelValues("error").Inc()
		return fmt.Errorf("node: send to broker: %w", err)
	}
	metrics.BrokerForwards.WithLabelValues("ok").Inc()
	return nil
}

// Dispatch runs the deserialize -> begin transaction -> process -> commit
// -> serialize sequence for one request, returning the result code and the
// success payload (nil for any non-success result). workerNum selects
// which per-worker Handler instance executes the request.
func (n *Node) Dispatch(ctx context.Context, workerNum int, conn transport.Connection, category, method uint8, parameters []byte) (ResultCode, []byte) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.WithLabelValues(fmt.Sprint(category), fmt.Sprint(method)).Observe(time.Since(start).Seconds())
	}()

	startID := conn.AuthenticatedID()
	authID := startID
	k := key(category, method)

	table := n.unauthHandlers
	if authID != 0 {
		table = n.authHandlers
	}
	instances, ok := table[k]
	if !ok {
		n.countRequest(category, method, InvalidRequestType)
		return InvalidRequestType, nil
	}
	handler := instances[workerNum]

	if err := handler.Deserialize(parameters); err != nil {
		n.countRequest(category, method, InvalidParameters)
		return InvalidParameters, nil
	}

	var tx *store.Context
	if n.db != nil {
		var err error
		tx, err = n.db.Begin(ctx)
		if err != nil {
			n.log.Error().Err(err).Msg("begin transaction")
			n.countRequest(category, method, ServerError)
			return ServerError, nil
		}
	}

	result, err := handler.Process(&authID, tx)
	if err != nil {
		if tx != nil {
			_ = tx.Rollback()
		}
		if isSynchronizationConflict(err) {
			metrics.DispatchRetries.WithLabelValues(fmt.Sprint(category), fmt.Sprint(method)).Inc()
			n.countRequest(category, method, RetryLater)
			return RetryLater, nil
		}
		n.log.Error().Err(err).Uint8("category", category).Uint8("method", method).Msg("handler process failed")
		n.countRequest(category, method, ServerError)
		return ServerError, nil
	}

	if tx != nil && !tx.Committed() {
		if err := tx.Commit(); err != nil {
			_ = tx.Rollback()
			if isSynchronizationConflict(err) {
				metrics.DispatchRetries.WithLabelValues(fmt.Sprint(category), fmt.Sprint(method)).Inc()
				n.countRequest(category, method, RetryLater)
				return RetryLater, nil
			}
			n.log.Error().Err(err).Msg("commit transaction")
			n.countRequest(category, method, ServerError)
			return ServerError, nil
		}
	}

	var response []byte
	if result == Success {
		response, err = handler.Serialize()
		if err != nil {
			n.log.Error().Err(err).Msg("serialize response")
			n.countRequest(category, method, ServerError)
			return ServerError, nil
		}
	}

	if authID != startID {
		if authID != 0 {
			n.addClient(authID, conn)
		} else {
			n.delClient(startID, conn)
		}
		conn.SetAuthenticatedID(authID)
	}

	n.countRequest(category, method, result)
	return result, response
}

func (n *Node) countRequest(category, method uint8, result ResultCode) {
	metrics.DispatchRequests.WithLabelValues(fmt.Sprint(category), fmt.Sprint(method), result.String()).Inc()
}

func isSynchronizationConflict(err error) bool {
	return cache.IsSyncError(err) || store.IsConflict(err)
}

// EncodeResponse frames a dispatch outcome as the wire-level response: a
// two-byte big-endian result code followed by the success payload, if any.
func EncodeResponse(result ResultCode, payload []byte) []byte {
	frame := make([]byte, 2+len(payload))
	binary.BigEndian.PutUint16(frame, uint16(result))
	copy(frame[2:], payload)
	return frame
}
