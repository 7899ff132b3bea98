package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/skippr/skippr-mcp/internal/hub"
)

// Tool names exposed to coding agents.
const (
	ToolListIssues         = "skippr_list_issues"
	ToolGetIssue           = "skippr_get_issue"
	ToolListProjects       = "skippr_list_projects"
	ToolRestartWebSocket   = "skippr_restart_websocket"
	ToolWebSocketStatus    = "skippr_websocket_status"
	ToolSendToClient       = "skippr_send_to_client"
	ToolBroadcastToProject = "skippr_broadcast_to_project"
	ToolBroadcastToAll     = "skippr_broadcast_to_all"
	ToolListClients        = "skippr_list_clients"
	ToolDisconnectClient   = "skippr_disconnect_client"
	ToolVerifyIssueFix     = "skippr_verify_issue_fix"
	ToolRecentActivity     = "skippr_recent_activity"
)

// registerTools binds every tool to its handler method.
func registerTools(server *sdkmcp.Server, h *Handler) {
	addTool(server, ToolListIssues,
		"List issues captured by the Skippr extension, optionally filtered by project, review, severity, agent type or resolved status",
		h.ListIssues)
	addTool(server, ToolGetIssue,
		"Get one issue with its raw markdown (Details, Agent Prompt and optional Ticket sections)",
		h.GetIssue)
	addTool(server, ToolListProjects,
		"List projects that have stored issues",
		func(ctx context.Context, _ EmptyParams) (ListProjectsResponse, error) { return h.ListProjects(ctx) })

	addTool(server, ToolRestartWebSocket,
		"Restart the WebSocket server the browser extension connects to, optionally on another port",
		h.RestartWebSocket)
	addTool(server, ToolWebSocketStatus,
		"Report whether the WebSocket server is running, its port and the number of connected clients",
		func(ctx context.Context, _ EmptyParams) (hub.Status, error) { return h.WebSocketStatus(ctx) })

	addTool(server, ToolSendToClient,
		"Send a notification, command, data or status message to one connected client",
		h.SendToClient)
	addTool(server, ToolBroadcastToProject,
		"Send a message to every client registered for a project",
		h.BroadcastToProject)
	addTool(server, ToolBroadcastToAll,
		"Send a message to every registered client",
		h.BroadcastToAll)
	addTool(server, ToolListClients,
		"List connected extension clients with their project and liveness",
		func(ctx context.Context, _ EmptyParams) (ListClientsResponse, error) { return h.ListClients(ctx) })
	addTool(server, ToolDisconnectClient,
		"Close the connection of one client",
		h.DisconnectClient)

	addTool(server, ToolVerifyIssueFix,
		"Ask the browser extension to check whether an issue is fixed and wait for its verdict. A verified issue is deleted from the store",
		h.VerifyIssueFix)
	addTool(server, ToolRecentActivity,
		"List recent hub activity (registrations, disconnects, verifications, issue writes) newest first",
		h.RecentActivity)
}

// addTool adapts a handler method to the SDK tool signature. Errors become
// tool results with IsError set so the agent can read them.
func addTool[In, Out any](server *sdkmcp.Server, name, description string, fn func(context.Context, In) (Out, error)) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, Out, error) {
			out, err := fn(ctx, in)
			return nil, out, err
		})
}
