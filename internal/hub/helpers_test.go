package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

// fakeConn records every frame written to it.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	pings      int
	closed     bool
	failWrites bool
	sent       chan []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{sent: make(chan []byte, 64)}
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.failWrites {
		return errors.New("broken pipe")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.frames = append(c.frames, data)
	select {
	case c.sent <- data:
	default:
	}
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	c.pings++
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *fakeConn) pingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings
}

// next waits for the next written frame and decodes it.
func (c *fakeConn) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-c.sent:
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("no frame written")
		return nil
	}
}

// drain discards frames already written.
func (c *fakeConn) drain() {
	for {
		select {
		case <-c.sent:
		default:
			return
		}
	}
}

type recordedActivity struct {
	mu      sync.Mutex
	entries []activity.ActivityEntry
}

func (r *recordedActivity) LogActivity(_ context.Context, entry *activity.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *recordedActivity) types() []activity.ActivityType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]activity.ActivityType, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.ActivityType)
	}
	return out
}

func newTestHub(t *testing.T, opts Options) (*Hub, *recordedActivity) {
	t.Helper()
	rec := &recordedActivity{}
	if opts.Activity == nil {
		opts.Activity = rec
	}
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = time.Hour
	}
	h := New(opts)
	return h, rec
}

// connect attaches a fake connection and registers it for projectID.
func connect(t *testing.T, h *Hub, projectID string) (*session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	s := h.attach(conn)
	t.Cleanup(func() { h.closeSession(s, reasonClosed) })

	welcome := conn.next(t)
	require.Equal(t, "status", welcome["type"])

	h.handleFrame(s, frame(t, map[string]any{"type": "register", "projectId": projectID}))
	reply := conn.next(t)
	require.Equal(t, "registration_success", reply["type"])
	return s, conn
}

func frame(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
