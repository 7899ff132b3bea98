package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

// Conn is the socket owned by a session. Implementations must allow
// WriteJSON, Ping and Close to be called from different goroutines.
type Conn interface {
	WriteJSON(v any) error
	Ping() error
	Close() error
	Open() bool
}

// wsConn adapts a gorilla websocket to Conn. Writes are serialized so
// frames sent to one client keep their order.
type wsConn struct {
	ws        *websocket.Conn
	mu        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) WriteJSON(v any) error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Ping() error {
	if c.closed.Load() {
		return ErrConnClosed
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) Open() bool {
	return !c.closed.Load()
}
