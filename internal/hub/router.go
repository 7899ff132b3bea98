package hub

import (
	"log/slog"
	"time"

	"github.com/skippr/skippr-mcp/internal/protocol"
)

// SendResult counts per-client outcomes of a fan-out.
type SendResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Router delivers envelopes to registered clients. It never mutates the registry.
type Router struct {
	registry *Registry
	logger   *slog.Logger
	now      func() time.Time
}

// NewRouter creates a router over the given registry.
func NewRouter(registry *Registry, logger *slog.Logger) *Router {
	return &Router{registry: registry, logger: orDiscard(logger), now: time.Now}
}

// SendToClient writes env to one client. It returns false when the client
// is unknown, its socket is not open, or the write fails.
func (r *Router) SendToClient(clientID string, env protocol.Envelope) bool {
	return r.send(clientID, env.Stamped(r.now()))
}

// SendToProject writes env to every client of a project.
func (r *Router) SendToProject(projectID string, env protocol.Envelope) SendResult {
	return r.fanOut(r.registry.ByProject(projectID), env.Stamped(r.now()))
}

// Broadcast writes env to every registered client.
func (r *Router) Broadcast(env protocol.Envelope) SendResult {
	clients := r.registry.All()
	ids := make([]string, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, c.ID)
	}
	return r.fanOut(ids, env.Stamped(r.now()))
}

func (r *Router) fanOut(ids []string, env protocol.Envelope) SendResult {
	var res SendResult
	for _, id := range ids {
		if r.send(id, env) {
			res.Sent++
		} else {
			res.Failed++
		}
	}
	return res
}

func (r *Router) send(clientID string, env protocol.Envelope) bool {
	c, ok := r.registry.Get(clientID)
	if !ok {
		return false
	}
	conn := c.conn()
	if !conn.Open() {
		return false
	}
	if err := conn.WriteJSON(env); err != nil {
		r.logger.Warn("send to client failed", "client_id", clientID, "type", env.Type, "error", err)
		return false
	}
	return true
}
