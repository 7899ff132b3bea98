package testserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/hub"
	"github.com/skippr/skippr-mcp/internal/issues"
	"github.com/skippr/skippr-mcp/internal/mcp"
	"github.com/skippr/skippr-mcp/internal/sqlite"
	"github.com/skippr/skippr-mcp/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer runs the whole stack: SQLite activity log, issue store on a
// temp dir, the extension hub on a free port and MCP over streamable HTTP.
type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Hub    *hub.Hub
	Issues *issues.Store
	Root   string
}

// Options tweaks the hub for a test.
type Options struct {
	HeartbeatInterval time.Duration
	VerifyTimeout     time.Duration
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	root := t.TempDir()
	store := issues.NewStore(root, nil)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)

	extHub := hub.New(hub.Options{
		Host:              "127.0.0.1",
		Port:              freePort(t),
		HeartbeatInterval: opts.HeartbeatInterval,
		VerifyTimeout:     opts.VerifyTimeout,
		Version:           "test",
		Issues:            store,
		Activity:          activitySvc,
	})
	require.NoError(t, extHub.Start(0))

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{Issues: store, Hub: extHub, Activity: activitySvc},
		Version:  "test",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		nil,
	)
	server := httptest.NewServer(transport.NewServer(transport.Options{
		MCP:    mcpHandler,
		Status: func() any { return extHub.Status() },
	}))

	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = extHub.Stop(ctx)
		_ = db.Close()
	})

	return &TestServer{
		Server: server,
		DB:     db,
		Hub:    extHub,
		Issues: store,
		Root:   root,
	}
}

// WebSocketURL is the address extensions dial.
func (ts *TestServer) WebSocketURL() string {
	return "ws://127.0.0.1:" + strconv.Itoa(ts.Hub.Status().Port) + "/ws"
}

// Connect opens an MCP client session against the HTTP endpoint.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-agent", Version: "test"}, nil)
	session, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint: ts.Server.URL + "/mcp",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}
