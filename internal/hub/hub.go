package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/protocol"
)

// IssueSink persists issues received from the extension and deletes them
// once verified.
type IssueSink interface {
	IssueDeleter
	WriteIssue(ctx context.Context, msg *protocol.WriteIssue) error
}

// ActivityRecorder appends hub events to the activity log.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, entry *activity.ActivityEntry) error
}

// Options configures a Hub. Zero values select defaults.
type Options struct {
	Host              string
	Port              int
	HeartbeatInterval time.Duration
	VerifyTimeout     time.Duration
	Version           string
	Issues            IssueSink
	Activity          ActivityRecorder
	Logger            *slog.Logger
}

type closeReason string

const (
	reasonClosed       closeReason = "closed"
	reasonDisconnected closeReason = "disconnected"
	reasonEvicted      closeReason = "evicted"
	reasonShutdown     closeReason = "shutdown"
)

// Hub owns every extension connection: the registry, router, heartbeat
// monitor and verification coordinator, plus the listening socket.
type Hub struct {
	registry  *Registry
	router    *Router
	heartbeat *HeartbeatMonitor
	verifier  *Coordinator
	issues    IssueSink
	activity  ActivityRecorder
	logger    *slog.Logger
	version   string
	upgrader  websocket.Upgrader

	sessionsMu sync.Mutex
	sessions   map[*session]struct{}
	accepting  bool

	serverMu sync.Mutex
	host     string
	port     int
	listener net.Listener
	server   *http.Server
}

// New constructs a hub. The listener is not started until Start.
func New(opts Options) *Hub {
	logger := orDiscard(opts.Logger).With("component", "hub")
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	port := opts.Port
	if port <= 0 {
		port = DefaultPort
	}

	h := &Hub{
		registry:  NewRegistry(),
		issues:    opts.Issues,
		activity:  opts.Activity,
		logger:    logger,
		version:   version,
		sessions:  make(map[*session]struct{}),
		accepting: true,
		host:      opts.Host,
		port:      port,
		upgrader:  websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // browser extensions connect from their own origin
			},
		},
	}
	h.router = NewRouter(h.registry, logger)
	h.heartbeat = NewHeartbeatMonitor(opts.HeartbeatInterval, func(s *session) {
		h.closeSession(s, reasonEvicted)
	}, logger)

	var deleter IssueDeleter
	if opts.Issues != nil {
		deleter = recordingDeleter{sink: opts.Issues, hub: h}
	}
	h.verifier = NewCoordinator(h.router, deleter, opts.VerifyTimeout, logger)
	h.verifier.record = h.record
	return h
}

// SendToClient delivers env to one client.
func (h *Hub) SendToClient(clientID string, env protocol.Envelope) bool {
	return h.router.SendToClient(clientID, env)
}

// SendToProject delivers env to every client of a project.
func (h *Hub) SendToProject(projectID string, env protocol.Envelope) SendResult {
	return h.router.SendToProject(projectID, env)
}

// BroadcastToAll delivers env to every registered client.
func (h *Hub) BroadcastToAll(env protocol.Envelope) SendResult {
	return h.router.Broadcast(env)
}

// VerifyIssueFix asks the project's extension to verify an issue fix and
// waits for its answer.
func (h *Hub) VerifyIssueFix(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	return h.verifier.Verify(ctx, req)
}

// Clients lists registered clients.
func (h *Hub) Clients() []ClientInfo {
	all := h.registry.All()
	infos := make([]ClientInfo, 0, len(all))
	for _, c := range all {
		infos = append(infos, c.Info())
	}
	return infos
}

// Disconnect closes a registered client. It reports false for unknown ids.
func (h *Hub) Disconnect(clientID string) bool {
	c, ok := h.registry.Get(clientID)
	if !ok {
		return false
	}
	h.closeSession(c.sess, reasonDisconnected)
	return true
}

// attach wires a new connection into the hub: heartbeat and welcome.
// It returns nil and closes conn once Stop has begun.
func (h *Hub) attach(conn Conn) *session {
	s := newSession(conn, time.Now())

	h.sessionsMu.Lock()
	if !h.accepting {
		h.sessionsMu.Unlock()
		if err := conn.Close(); err != nil {
			h.logger.Debug("closing connection", "error", err)
		}
		h.logger.Debug("connection refused while stopping")
		return nil
	}
	h.sessions[s] = struct{}{}
	h.sessionsMu.Unlock()

	stop := h.heartbeat.Watch(s)
	s.mu.Lock()
	s.stopBeat = stop
	s.mu.Unlock()

	h.reply(s, protocol.Welcome(h.version).Stamped(time.Now()))
	h.logger.Debug("connection opened")
	return s
}

// handleFrame decodes one inbound frame and dispatches it by type.
func (h *Hub) handleFrame(s *session, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		h.logger.Debug("rejecting inbound frame", "error", err)
		h.reply(s, protocol.ErrorReply(err.Error()))
		return
	}

	if s.bound() != nil {
		s.touch(time.Now())
	}

	switch m := msg.(type) {
	case *protocol.Register:
		h.handleRegister(s, m)
	case *protocol.VerifyIssueResponse:
		h.verifier.Resolve(m)
	case *protocol.WriteIssue:
		h.handleWriteIssue(s, m)
	case *protocol.Ping:
		h.heartbeat.MarkAlive(s)
		h.reply(s, protocol.NewPong(time.Now()))
	case *protocol.Pong:
		h.heartbeat.MarkAlive(s)
	default:
		h.reply(s, protocol.ReceivedReply(msg.MessageType()))
	}
}

func (h *Hub) handleRegister(s *session, m *protocol.Register) {
	client, existing, err := h.register(s, m)
	if err != nil {
		h.logger.Warn("registration rejected", "project_id", m.ProjectID, "error", err)
		h.reply(s, protocol.NewRegistrationError(err.Error()))
		return
	}
	h.reply(s, protocol.NewRegistrationSuccess(client.ID, client.ProjectID, existing))
}

// register binds s to a project. A session stays bound to its first project.
func (h *Hub) register(s *session, m *protocol.Register) (*Client, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, false, ErrConnClosed
	}
	if s.client != nil {
		if s.client.ProjectID != m.ProjectID {
			return nil, false, fmt.Errorf("%w: bound to %q, cannot register for %q",
				ErrProjectConflict, s.client.ProjectID, m.ProjectID)
		}
		return s.client, true, nil
	}

	c := &Client{
		ID:          uuid.NewString(),
		ProjectID:   m.ProjectID,
		Metadata:    m.Metadata,
		ConnectedAt: s.connectedAt,
		sess:        s,
	}
	if err := h.registry.Add(c); err != nil {
		return nil, false, err
	}
	s.client = c
	s.touch(time.Now())

	h.logger.Info("client registered", "client_id", c.ID, "project_id", c.ProjectID, "clients", h.registry.Len())
	h.record(&activity.ActivityEntry{
		ProjectID:    c.ProjectID,
		ClientID:     &c.ID,
		ActivityType: activity.TypeClientRegistered,
		Summary:      "client registered",
		Details:      metadataDetails(m.Metadata),
	})
	return c, false, nil
}

func (h *Hub) handleWriteIssue(s *session, m *protocol.WriteIssue) {
	if h.issues == nil {
		h.reply(s, protocol.ReceivedReply(m.MessageType()))
		return
	}
	if err := h.issues.WriteIssue(context.Background(), m); err != nil {
		h.logger.Warn("failed to save issue", "issue_id", m.IssueID, "error", err)
		h.reply(s, protocol.IssueErrorReply(m.IssueID, err.Error()))
		return
	}
	h.record(&activity.ActivityEntry{
		ProjectID:    m.ProjectID,
		ClientID:     optionalClientID(s),
		ActivityType: activity.TypeIssueWritten,
		Summary:      fmt.Sprintf("issue %s saved: %s", m.IssueID, m.Title),
	})
	h.reply(s, protocol.IssueSavedReply(m.IssueID))
}

// closeSession tears a connection down exactly once: heartbeat, registry, socket.
func (h *Hub) closeSession(s *session, reason closeReason) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		stop, c := s.stopBeat, s.client
		s.mu.Unlock()
		if stop != nil {
			stop()
		}

		h.sessionsMu.Lock()
		delete(h.sessions, s)
		h.sessionsMu.Unlock()

		if err := s.conn.Close(); err != nil {
			h.logger.Debug("closing connection", "error", err)
		}
		if c == nil {
			h.logger.Debug("unregistered connection closed", "reason", string(reason))
			return
		}

		h.registry.Remove(c.ID)
		h.logger.Info("client removed", "client_id", c.ID, "project_id", c.ProjectID, "reason", string(reason), "clients", h.registry.Len())
		typ := activity.TypeClientDisconnected
		if reason == reasonEvicted {
			typ = activity.TypeClientEvicted
		}
		h.record(&activity.ActivityEntry{
			ProjectID:    c.ProjectID,
			ClientID:     &c.ID,
			ActivityType: typ,
			Summary:      "client " + string(reason),
		})
	})
}

func (h *Hub) reply(s *session, v any) {
	if err := s.conn.WriteJSON(v); err != nil && !errors.Is(err, ErrConnClosed) {
		h.logger.Debug("reply failed", "error", err)
	}
}

func (h *Hub) record(entry *activity.ActivityEntry) {
	if h.activity == nil {
		return
	}
	if err := h.activity.LogActivity(context.Background(), entry); err != nil {
		h.logger.Warn("failed to record activity", "type", entry.ActivityType, "error", err)
	}
}

// recordingDeleter logs issue deletions triggered by verified responses.
type recordingDeleter struct {
	sink IssueSink
	hub  *Hub
}

func (d recordingDeleter) DeleteIssue(ctx context.Context, projectID, reviewID, issueID string) error {
	if err := d.sink.DeleteIssue(ctx, projectID, reviewID, issueID); err != nil {
		return err
	}
	d.hub.record(&activity.ActivityEntry{
		ProjectID:    projectID,
		ActivityType: activity.TypeIssueDeleted,
		Summary:      fmt.Sprintf("issue %s deleted after verification", issueID),
	})
	return nil
}

func optionalClientID(s *session) *string {
	if c := s.bound(); c != nil {
		return &c.ID
	}
	return nil
}

func metadataDetails(meta *protocol.ClientMetadata) string {
	if meta == nil {
		return ""
	}
	return formatJSON(meta)
}

func formatJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
