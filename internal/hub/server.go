package hub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// DefaultPort is the extension-facing port when none is configured.
const DefaultPort = 4040

// Status describes the listener and connection counts.
type Status struct {
	Running              bool   `json:"running"`
	Port                 int    `json:"port,omitempty"`
	Address              string `json:"address,omitempty"`
	ConnectedClients     int    `json:"connectedClients"`
	OpenConnections      int    `json:"openConnections"`
	PendingVerifications int    `json:"pendingVerifications"`
}

// RestartResult reports the outcome of Restart without failing the caller.
type RestartResult struct {
	Success bool   `json:"success"`
	Port    int    `json:"port"`
	Message string `json:"message"`
}

// Handler returns the HTTP handler serving websocket upgrades and health.
func (h *Hub) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/", h.ServeHTTP)
	r.Get("/ws", h.ServeHTTP)
	return r
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := h.attach(newWSConn(ws))
	if s == nil {
		return
	}
	defer h.closeSession(s, reasonClosed)

	ws.SetReadLimit(maxMessageSize)
	ws.SetPongHandler(func(string) error {
		h.heartbeat.MarkAlive(s)
		return nil
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "client_id", clientIDOf(s), "error", err)
			}
			return
		}
		h.handleFrame(s, data)
	}
}

// Start binds the listener on port (the configured port when port <= 0) and
// serves in the background. Starting a running hub is a no-op.
func (h *Hub) Start(port int) error {
	h.serverMu.Lock()
	defer h.serverMu.Unlock()

	if h.listener != nil {
		return nil
	}
	if port <= 0 {
		port = h.port
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(h.host, strconv.Itoa(port)))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %d", ErrPortInUse, port)
		}
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	h.sessionsMu.Lock()
	h.accepting = true
	h.sessionsMu.Unlock()

	srv := &http.Server{Handler: h.Handler()}
	h.listener = ln
	h.server = srv
	h.port = ln.Addr().(*net.TCPAddr).Port

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("websocket server error", "error", err)
		}
	}()
	h.logger.Info("websocket server listening", "addr", ln.Addr().String())
	return nil
}

// Stop closes the listener and every open connection.
func (h *Hub) Stop(ctx context.Context) error {
	h.serverMu.Lock()
	srv := h.server
	h.server = nil
	h.listener = nil
	h.serverMu.Unlock()

	if srv == nil {
		return ErrNotRunning
	}

	h.sessionsMu.Lock()
	h.accepting = false
	h.sessionsMu.Unlock()

	shutdownErr := srv.Shutdown(ctx)

	// Upgraded connections are hijacked, so Shutdown does not reach them.
	h.sessionsMu.Lock()
	open := make([]*session, 0, len(h.sessions))
	for s := range h.sessions {
		open = append(open, s)
	}
	h.sessionsMu.Unlock()
	for _, s := range open {
		h.closeSession(s, reasonShutdown)
	}

	if shutdownErr != nil {
		return fmt.Errorf("shutdown websocket server: %w", shutdownErr)
	}
	h.logger.Info("websocket server stopped")
	return nil
}

// Restart stops the listener if running and starts it on port.
func (h *Hub) Restart(ctx context.Context, port int) RestartResult {
	if err := h.Stop(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		h.logger.Warn("stop before restart failed", "error", err)
	}
	if err := h.Start(port); err != nil {
		failedPort := port
		if failedPort <= 0 {
			failedPort = h.Status().Port
		}
		h.logger.Error("websocket restart failed", "port", failedPort, "error", err)
		return RestartResult{Success: false, Port: failedPort, Message: err.Error()}
	}
	status := h.Status()
	return RestartResult{
		Success: true,
		Port:    status.Port,
		Message: fmt.Sprintf("WebSocket server restarted on port %d", status.Port),
	}
}

// Status reports whether the listener runs and how many clients are connected.
func (h *Hub) Status() Status {
	h.serverMu.Lock()
	st := Status{Running: h.listener != nil, Port: h.port}
	if h.listener != nil {
		st.Address = h.listener.Addr().String()
	}
	h.serverMu.Unlock()

	h.sessionsMu.Lock()
	st.OpenConnections = len(h.sessions)
	h.sessionsMu.Unlock()

	st.ConnectedClients = h.registry.Len()
	st.PendingVerifications = h.verifier.PendingCount()
	return st
}
