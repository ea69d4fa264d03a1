// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
)

// TCPConnection adapts a raw net.Conn to the Connection interface using a
// 4-byte big-endian length prefix per frame. Inter-node links (a node's
// outbound connection to its broker, and the broker's inbound connections
// from nodes) use this instead of the WebSocket framing that client-facing
// connections use, since there is no HTTP upgrade handshake between nodes.
type TCPConnection struct {
	conn   net.Conn
	frames chan []byte

	stateMu sync.RWMutex
	State   State

	writeMu sync.Mutex
}

const maxFrameSize = 16 << 20

// NewTCPConnection wraps an already-established net.Conn and starts its
// read loop.
func NewTCPConnection(conn net.Conn) *TCPConnection {
	c := &TCPConnection{
		conn:   conn,
		frames: make(chan []byte, 64),
	}
	go c.readLoop()
	return c
}

func (c *TCPConnection) readLoop() {
	defer close(c.frames)
	header := make([]byte, 4)
	for {
		if _, err := io.ReadFull(c.conn, header); err != nil {
			return
		}
		size := binary.BigEndian.Uint32(header)
		if size == 0 || size > maxFrameSize {
			return
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return
		}
		c.frames <- payload
	}
}

// Frames implements Connection.
func (c *TCPConnection) Frames() <-chan []byte { return c.frames }

// Send implements Connection.
func (c *TCPConnection) Send(ctx context.Context, frame []byte) error {
	if len(frame) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds maximum %d", len(frame), maxFrameSize)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(frame)))
	if _, err := c.conn.Write(header); err != nil {
		return err
	}
	_, err := c.conn.Write(frame)
	return err
}

// Close implements Connection.
func (c *TCPConnection) Close() error { return c.conn.Close() }

// RemoteAddr implements Connection.
func (c *TCPConnection) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// AuthenticatedID implements Connection.
func (c *TCPConnection) AuthenticatedID() uint64 {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.State.AuthenticatedID
}

// SetAuthenticatedID implements Connection.
func (c *TCPConnection) SetAuthenticatedID(id uint64) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.State.AuthenticatedID = id
	c.State.Authenticated = id != 0
}
