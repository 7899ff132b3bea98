package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/skippr/skippr-mcp/internal/protocol"
)

// session is one accepted connection. It exists before registration and
// owns the socket until it is bound to a Client.
type session struct {
	conn         Conn
	connectedAt  time.Time
	alive        atomic.Bool
	lastActivity atomic.Int64

	mu       sync.Mutex
	client   *Client
	stopBeat func()
	closed   bool

	closeOnce sync.Once
}

func newSession(conn Conn, now time.Time) *session {
	s := &session{conn: conn, connectedAt: now}
	s.alive.Store(true)
	s.lastActivity.Store(now.UnixNano())
	return s
}

func (s *session) touch(now time.Time) {
	s.lastActivity.Store(now.UnixNano())
}

func (s *session) bound() *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Client is a registered extension connection bound to one project.
type Client struct {
	ID          string
	ProjectID   string
	Metadata    *protocol.ClientMetadata
	ConnectedAt time.Time

	sess *session
}

// LastActivity is the time of the last inbound envelope.
func (c *Client) LastActivity() time.Time {
	return time.Unix(0, c.sess.lastActivity.Load())
}

// IsAlive reports whether a liveness signal was seen since the last probe.
func (c *Client) IsAlive() bool {
	return c.sess.alive.Load()
}

func (c *Client) conn() Conn {
	return c.sess.conn
}

// Info returns a serializable snapshot of the client.
func (c *Client) Info() ClientInfo {
	return ClientInfo{
		ClientID:     c.ID,
		ProjectID:    c.ProjectID,
		ConnectedAt:  c.ConnectedAt,
		LastActivity: c.LastActivity(),
		Metadata:     c.Metadata,
		IsAlive:      c.IsAlive(),
	}
}

// ClientInfo describes a connected client for introspection tools.
type ClientInfo struct {
	ClientID     string                   `json:"clientId"`
	ProjectID    string                   `json:"projectId"`
	ConnectedAt  time.Time                `json:"connectedAt"`
	LastActivity time.Time                `json:"lastActivity"`
	Metadata     *protocol.ClientMetadata `json:"metadata,omitempty"`
	IsAlive      bool                     `json:"isAlive"`
}
