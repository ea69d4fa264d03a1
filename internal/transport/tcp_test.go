// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

package transport

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestTCPConnectionRoundTripsFrames(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	serverConn := NewTCPConnection(server)
	clientConn := NewTCPConnection(client)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	want := []byte{1, 2, 3, 4, 5}
	if err := clientConn.Send(ctx, want); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case got := <-serverConn.Frames():
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
	}
}

func TestTCPConnectionSetAuthenticatedID(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := NewTCPConnection(server)
	if conn.AuthenticatedID() != 0 {
		t.Fatal("expected zero-value authenticated id")
	}
	conn.SetAuthenticatedID(42)
	if conn.AuthenticatedID() != 42 {
		t.Fatalf("expected 42, got %d", conn.AuthenticatedID())
	}
}

func TestTCPConnectionCloseTerminatesReadLoop(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	conn := NewTCPConnection(server)
	if err := conn.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case _, ok := <-conn.Frames():
		if ok {
			t.Fatal("expected frames channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frames channel to close")
	}
}
