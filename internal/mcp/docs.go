package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `skippr-mcp connects coding agents to the Skippr browser extension.

The extension reviews a running web app and records issues. Each issue is stored as a
markdown file under ~/.skippr/projects/<projectId>/reviews/<reviewId>/issues/<issueId>.md
with YAML frontmatter (id, reviewId, title, severity, resolved, agentTypes) and sections
"Details", "Agent Prompt" and an optional "Ticket".

Default workflow:
1) Discover: skippr_list_projects, then skippr_list_issues (filter by severity, agentType, resolved).
2) Read: skippr_get_issue returns the raw markdown. Follow the "Agent Prompt" section.
3) Fix the code.
4) Verify: skippr_verify_issue_fix asks the extension connected for that project to re-check
   the issue. It waits up to 5 minutes by default. A verified issue is deleted from disk.
   If success is false, read error/message: usually no extension is connected for the project.

Connection tools:
- skippr_websocket_status / skippr_list_clients: is an extension connected, for which project.
- skippr_restart_websocket: rebind the extension socket (default port 4040).
- skippr_send_to_client / skippr_broadcast_to_project / skippr_broadcast_to_all: push a
  {"type": "notification"|"command"|"data"|"status", "payload": {...}} message.
- skippr_recent_activity: registrations, disconnects, verifications and issue writes.

Docs:
- skippr://docs/index
- skippr://docs/extension-protocol
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "skippr://docs/index",
		Name:        "docs_index",
		Title:       "skippr-mcp docs index",
		Description: "Entry point: the issue files, the tools and the verification loop.",
		Content: `# skippr-mcp

## Issues

Issues live under ` + "`~/.skippr/projects/<projectId>/reviews/<reviewId>/issues/<issueId>.md`" + `.
Frontmatter fields:

- ` + "`id`, `reviewId`" + `: UUIDs.
- ` + "`severity`" + `: critical, high, medium, low or info.
- ` + "`agentTypes`" + `: any of ux, a11y, pm, pmm, legal, content, users.
- ` + "`resolved`" + `: whether the reviewer marked it resolved.
- ` + "`elementMetadata`" + `: CSS selector and optional bounding box ([x, y, width, height]).

## Verification loop

1. Fix the issue in code.
2. Call ` + "`skippr_verify_issue_fix`" + ` with projectId, issueId and reviewId.
3. The extension re-checks the page and answers with ` + "`verified`" + ` and reasoning.
4. When verified, the issue file is removed. Otherwise keep iterating.

Only one verdict is accepted per request. If no extension is connected for the
project the call returns immediately with success=false.
`,
	},
	{
		URI:         "skippr://docs/extension-protocol",
		Name:        "docs_extension_protocol",
		Title:       "Extension WebSocket protocol",
		Description: "Messages exchanged with the browser extension over the WebSocket hub.",
		Content: `# Extension protocol

All frames are JSON text.

## From the extension

- ` + "`{\"type\":\"register\",\"projectId\":\"...\",\"metadata\":{...}}`" + `: bind the connection to a project.
  A connection stays bound to its first project.
- ` + "`{\"type\":\"write_issue\", ...}`" + `: store an issue.
- ` + "`{\"type\":\"verify_issue_response\",\"requestId\":\"...\",\"success\":true,\"verified\":true}`" + `: answer a verification command.
- ` + "`ping`/`pong`" + `: liveness.

## To the extension

Envelopes ` + "`{\"type\":...,\"payload\":...,\"timestamp\":...,\"messageId\":...}`" + ` where type is
notification, command, data or status. Verification uses a command with action
` + "`verify_issue_fix`" + ` and a requestId that the response must echo.

Connections that miss a heartbeat interval (30s) are closed.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
