package mcp

import (
	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/hub"
	"github.com/skippr/skippr-mcp/internal/issues"
	"github.com/skippr/skippr-mcp/internal/protocol"
)

type EmptyParams struct{}

type ListIssuesParams struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"Only list issues of this project"`
	ReviewID  string `json:"reviewId,omitempty" jsonschema:"Filter by review ID (UUID)"`
	Severity  string `json:"severity,omitempty" jsonschema:"Filter by severity: critical, high, medium, low or info"`
	AgentType string `json:"agentType,omitempty" jsonschema:"Filter by agent type: ux, a11y, pm, pmm, legal, content or users"`
	Resolved  *bool  `json:"resolved,omitempty" jsonschema:"Filter by resolved status"`
}

type GetIssueParams struct {
	ProjectID string `json:"projectId" jsonschema:"Project identifier"`
	ReviewID  string `json:"reviewId" jsonschema:"Review ID (UUID)"`
	IssueID   string `json:"issueId" jsonschema:"Issue ID (UUID)"`
}

type RestartWebSocketParams struct {
	Port int `json:"port,omitempty" jsonschema:"Port for the WebSocket server (defaults to the configured port, 4040 unless overridden)"`
}

type SendToClientParams struct {
	ClientID string         `json:"clientId" jsonschema:"The client ID to send the message to"`
	Message  map[string]any `json:"message" jsonschema:"Envelope with type (notification, command, data or status) and payload"`
}

type BroadcastToProjectParams struct {
	ProjectID string         `json:"projectId" jsonschema:"The project ID to broadcast to"`
	Message   map[string]any `json:"message" jsonschema:"Envelope with type (notification, command, data or status) and payload"`
}

type BroadcastToAllParams struct {
	Message map[string]any `json:"message" jsonschema:"Envelope with type (notification, command, data or status) and payload"`
}

type DisconnectClientParams struct {
	ClientID string `json:"clientId" jsonschema:"The client ID to disconnect"`
}

type VerifyIssueFixParams struct {
	ProjectID string `json:"projectId" jsonschema:"The project ID containing the issue"`
	IssueID   string `json:"issueId" jsonschema:"The issue ID to verify"`
	ReviewID  string `json:"reviewId,omitempty" jsonschema:"Review ID for the issue"`
	Timeout   int    `json:"timeout,omitempty" jsonschema:"Timeout in milliseconds (default: 300000, max: 86400000)"`
}

type RecentActivityParams struct {
	ProjectID string `json:"projectId,omitempty" jsonschema:"Only entries for this project"`
	ClientID  string `json:"clientId,omitempty" jsonschema:"Only entries for this client"`
	RequestID string `json:"requestId,omitempty" jsonschema:"Only entries for this verification request"`
	Type      string `json:"type,omitempty" jsonschema:"Only entries of this activity type"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum number of entries (default 50)"`
	Offset    int    `json:"offset,omitempty" jsonschema:"Offset for pagination"`
}

type ListIssuesResponse struct {
	Issues     []issues.Summary `json:"issues"`
	TotalCount int              `json:"totalCount"`
}

type ListProjectsResponse struct {
	Projects   []string                `json:"projects"`
	Details    []issues.ProjectSummary `json:"details"`
	TotalCount int                     `json:"totalCount"`
}

type SendToClientResponse struct {
	Success  bool   `json:"success"`
	ClientID string `json:"clientId"`
	Message  string `json:"message"`
}

type BroadcastResponse struct {
	ProjectID string `json:"projectId,omitempty"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Message   string `json:"message"`
}

type ListClientsResponse struct {
	TotalClients int              `json:"totalClients"`
	Clients      []hub.ClientInfo `json:"clients"`
}

type DisconnectClientResponse struct {
	Success  bool   `json:"success"`
	ClientID string `json:"clientId"`
	Message  string `json:"message"`
}

// VerifyIssueFixResponse reports both verdicts and failures; Success is false
// when no verdict was obtained.
type VerifyIssueFixResponse struct {
	Success   bool           `json:"success"`
	ProjectID string         `json:"projectId"`
	IssueID   string         `json:"issueId"`
	RequestID string         `json:"requestId,omitempty"`
	Verified  bool           `json:"verified"`
	Reasoning string         `json:"reasoning,omitempty"`
	Error     string         `json:"error,omitempty"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type RecentActivityResponse struct {
	Entries []activity.ActivityEntry `json:"entries"`
	Count   int                      `json:"count"`
}

// messageEnvelope validates a caller-supplied message as an outbound envelope.
func messageEnvelope(msg map[string]any) (protocol.Envelope, error) {
	data, err := marshalJSON(msg)
	if err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.ParseEnvelope(data)
}
