package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/areanode/internal/auth"
)

// Upgrader is shared by every accepted connection, matching the teacher's
// single-instance-per-listener gorilla/websocket convention.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSConnection adapts a *websocket.Conn to the Connection interface. It
// rate-limits inbound frames with golang.org/x/time/rate so one noisy
// client cannot starve the worker pool, and resolves an initial
// authenticated identity from a bearer subprotocol token before the first
// frame reaches dispatch — an addition beyond the base wire protocol,
// which otherwise leaves authentication entirely to request handlers.
type WSConnection struct {
	conn    *websocket.Conn
	limiter *rate.Limiter
	frames  chan []byte

	stateMu sync.RWMutex
	State   State

	writeMu sync.Mutex
}

// NewWSConnection wraps an already-upgraded websocket connection. verifier
// may be nil, in which case no pre-authentication is attempted.
func NewWSConnection(conn *websocket.Conn, framesPerSecond float64, burst int, verifier *auth.Verifier) *WSConnection {
	c := &WSConnection{
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(framesPerSecond), burst),
		frames:  make(chan []byte, burst),
	}
	if verifier != nil {
		if token := conn.Subprotocol(); token != "" {
			if id, err := verifier.VerifyBearer(token); err == nil {
				c.State.AuthenticatedID = id
				c.State.Authenticated = true
			}
		}
	}
	go c.readLoop()
	return c
}

func (c *WSConnection) readLoop() {
	defer close(c.frames)
	for {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.frames <- data
	}
}

// Frames implements Connection.
func (c *WSConnection) Frames() <-chan []byte { return c.frames }

// Send implements Connection.
func (c *WSConnection) Send(ctx context.Context, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, frame)
}

// Close implements Connection.
func (c *WSConnection) Close() error { return c.conn.Close() }

// RemoteAddr implements Connection.
func (c *WSConnection) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// AuthenticatedID implements Connection.
func (c *WSConnection) AuthenticatedID() uint64 {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.State.AuthenticatedID
}

// SetAuthenticatedID implements Connection.
func (c *WSConnection) SetAuthenticatedID(id uint64) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.State.AuthenticatedID = id
	c.State.Authenticated = id != 0
}

// Upgrade accepts an HTTP connection as a WSConnection.
func Upgrade(w http.ResponseWriter, r *http.Request, framesPerSecond float64, burst int, verifier *auth.Verifier) (*WSConnection, error) {
	// Upgrader lists no Subprotocols, so gorilla echoes the one named in
	// the response header; that is what conn.Subprotocol() later reports.
	var header http.Header
	if protocols := websocket.Subprotocols(r); len(protocols) > 0 {
		header = http.Header{"Sec-Websocket-Protocol": {protocols[0]}}
	}
	conn, err := Upgrader.Upgrade(w, r, header)
	if err != nil {
		return nil, fmt.Errorf("upgrade websocket: %w", err)
	}
	return NewWSConnection(conn, framesPerSecond, burst, verifier), nil
}
