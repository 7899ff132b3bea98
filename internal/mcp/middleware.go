package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/skippr/skippr-mcp/internal/transport"
)

type contextKey int

const sessionIDKey contextKey = iota

// getSessionID returns the session id stored by sessionMiddleware.
func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// sessionMiddleware tags the context with the caller's session id so traffic
// logs from concurrent agents can be told apart.
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if id := requestSessionID(req); id != "" {
				ctx = context.WithValue(ctx, sessionIDKey, id)
			}
			return next(ctx, method, req)
		}
	}
}

// requestSessionID prefers the HTTP session header, then a session_id in
// _meta (stdio clients), then the SDK session itself.
func requestSessionID(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		if id := extra.Header.Get(transport.SessionHeader); id != "" {
			return id
		}
	}
	if id := metaSessionID(req); id != "" {
		return id
	}
	return safeSessionID(req)
}

// metaSessionID reads _meta.session_id. Notifications such as "initialized"
// carry nil params and GetMeta panics on them.
func metaSessionID(req sdkmcp.Request) (id string) {
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	params := req.GetParams()
	if params == nil {
		return ""
	}
	id, _ = params.GetMeta()["session_id"].(string)
	return id
}
