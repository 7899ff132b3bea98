package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/hub"
	"github.com/skippr/skippr-mcp/internal/issues"
	"github.com/skippr/skippr-mcp/internal/protocol"
)

// maxVerifyTimeoutMs caps agent-supplied verification timeouts at one day.
const maxVerifyTimeoutMs = int(24 * time.Hour / time.Millisecond)

// IssueService defines issue store operations needed by MCP.
type IssueService interface {
	List(ctx context.Context, filter issues.ListFilter) ([]issues.Summary, error)
	Read(ctx context.Context, projectID, reviewID, issueID string) (*issues.Issue, error)
	ListProjects(ctx context.Context) ([]issues.ProjectSummary, error)
}

// HubService defines the extension hub operations needed by MCP.
type HubService interface {
	Status() hub.Status
	Restart(ctx context.Context, port int) hub.RestartResult
	SendToClient(clientID string, env protocol.Envelope) bool
	SendToProject(projectID string, env protocol.Envelope) hub.SendResult
	BroadcastToAll(env protocol.Envelope) hub.SendResult
	Clients() []hub.ClientInfo
	Disconnect(clientID string) bool
	VerifyIssueFix(ctx context.Context, req hub.VerifyRequest) (*hub.VerifyResult, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// Handler implements the MCP tools on top of the domain services.
type Handler struct {
	issues   IssueService
	hub      HubService
	activity ActivityService
	logger   *slog.Logger
}

// NewHandler creates a new MCP handler.
func NewHandler(issueSvc IssueService, hubSvc HubService, activitySvc ActivityService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		issues:   issueSvc,
		hub:      hubSvc,
		activity: activitySvc,
		logger:   logger,
	}
}

func (h *Handler) ListIssues(ctx context.Context, req ListIssuesParams) (ListIssuesResponse, error) {
	list, err := h.issues.List(ctx, issues.ListFilter{
		ProjectID: req.ProjectID,
		ReviewID:  req.ReviewID,
		Severity:  issues.Severity(req.Severity),
		AgentType: issues.AgentType(req.AgentType),
		Resolved:  req.Resolved,
	})
	if err != nil {
		return ListIssuesResponse{}, mapError(err)
	}
	out := make([]issues.Summary, 0, len(list))
	for _, s := range list {
		if s.AgentTypes == nil {
			s.AgentTypes = []issues.AgentType{}
		}
		out = append(out, s)
	}
	return ListIssuesResponse{Issues: out, TotalCount: len(out)}, nil
}

func (h *Handler) GetIssue(ctx context.Context, req GetIssueParams) (issues.Issue, error) {
	issue, err := h.issues.Read(ctx, req.ProjectID, req.ReviewID, req.IssueID)
	if err != nil {
		return issues.Issue{}, mapError(err)
	}
	if issue.AgentTypes == nil {
		issue.AgentTypes = []issues.AgentType{}
	}
	return *issue, nil
}

func (h *Handler) ListProjects(ctx context.Context) (ListProjectsResponse, error) {
	details, err := h.issues.ListProjects(ctx)
	if err != nil {
		return ListProjectsResponse{}, mapError(err)
	}
	if details == nil {
		details = []issues.ProjectSummary{}
	}
	ids := make([]string, 0, len(details))
	for _, p := range details {
		ids = append(ids, p.ProjectID)
	}
	return ListProjectsResponse{Projects: ids, Details: details, TotalCount: len(ids)}, nil
}

func (h *Handler) RestartWebSocket(ctx context.Context, req RestartWebSocketParams) (hub.RestartResult, error) {
	if req.Port < 0 || req.Port > 65535 {
		return hub.RestartResult{}, &APIError{Code: "INVALID_PORT", Message: fmt.Sprintf("port %d is out of range", req.Port)}
	}
	return h.hub.Restart(ctx, req.Port), nil
}

func (h *Handler) WebSocketStatus(context.Context) (hub.Status, error) {
	return h.hub.Status(), nil
}

func (h *Handler) SendToClient(_ context.Context, req SendToClientParams) (SendToClientResponse, error) {
	env, err := messageEnvelope(req.Message)
	if err != nil {
		return SendToClientResponse{}, mapError(err)
	}
	resp := SendToClientResponse{ClientID: req.ClientID}
	resp.Success = h.hub.SendToClient(req.ClientID, env)
	if resp.Success {
		resp.Message = "Message sent successfully"
	} else {
		resp.Message = "Failed to send message (client may be disconnected)"
	}
	return resp, nil
}

func (h *Handler) BroadcastToProject(_ context.Context, req BroadcastToProjectParams) (BroadcastResponse, error) {
	env, err := messageEnvelope(req.Message)
	if err != nil {
		return BroadcastResponse{}, mapError(err)
	}
	res := h.hub.SendToProject(req.ProjectID, env)
	return BroadcastResponse{
		ProjectID: req.ProjectID,
		Sent:      res.Sent,
		Failed:    res.Failed,
		Message:   broadcastMessage(res),
	}, nil
}

func (h *Handler) BroadcastToAll(_ context.Context, req BroadcastToAllParams) (BroadcastResponse, error) {
	env, err := messageEnvelope(req.Message)
	if err != nil {
		return BroadcastResponse{}, mapError(err)
	}
	res := h.hub.BroadcastToAll(env)
	return BroadcastResponse{Sent: res.Sent, Failed: res.Failed, Message: broadcastMessage(res)}, nil
}

func (h *Handler) ListClients(context.Context) (ListClientsResponse, error) {
	clients := h.hub.Clients()
	if clients == nil {
		clients = []hub.ClientInfo{}
	}
	return ListClientsResponse{TotalClients: len(clients), Clients: clients}, nil
}

func (h *Handler) DisconnectClient(_ context.Context, req DisconnectClientParams) (DisconnectClientResponse, error) {
	resp := DisconnectClientResponse{ClientID: req.ClientID}
	resp.Success = h.hub.Disconnect(req.ClientID)
	if resp.Success {
		resp.Message = "Client disconnected successfully"
	} else {
		resp.Message = "Client not found"
	}
	return resp, nil
}

// VerifyIssueFix never fails the tool call: a missing verdict is reported in
// the response with Success false.
func (h *Handler) VerifyIssueFix(ctx context.Context, req VerifyIssueFixParams) (VerifyIssueFixResponse, error) {
	resp := VerifyIssueFixResponse{ProjectID: req.ProjectID, IssueID: req.IssueID}
	if req.Timeout < 0 || req.Timeout > maxVerifyTimeoutMs {
		return failedVerification(resp, fmt.Errorf("timeout must be between 0 and %d ms, got %d", maxVerifyTimeoutMs, req.Timeout)), nil
	}

	result, err := h.hub.VerifyIssueFix(ctx, hub.VerifyRequest{
		ProjectID: req.ProjectID,
		IssueID:   req.IssueID,
		ReviewID:  req.ReviewID,
		Timeout:   time.Duration(req.Timeout) * time.Millisecond,
	})
	if err != nil {
		h.logger.Info("issue verification failed", "project_id", req.ProjectID, "issue_id", req.IssueID, "error", err)
		return failedVerification(resp, err), nil
	}

	resp.Success = true
	resp.RequestID = result.RequestID
	resp.Verified = result.Verified
	resp.Reasoning = result.Reasoning
	resp.Error = result.Error
	resp.Message = result.Message
	resp.Details = result.Details
	return resp, nil
}

func (h *Handler) RecentActivity(ctx context.Context, req RecentActivityParams) (RecentActivityResponse, error) {
	opts := activity.ListActivityOptions{
		ProjectID: req.ProjectID,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if req.ClientID != "" {
		opts.ClientID = &req.ClientID
	}
	if req.RequestID != "" {
		opts.RequestID = &req.RequestID
	}
	if req.Type != "" {
		typ := activity.ActivityType(req.Type)
		opts.ActivityType = &typ
	}
	entries, err := h.activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return RecentActivityResponse{}, mapError(err)
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	return RecentActivityResponse{Entries: entries, Count: len(entries)}, nil
}

func failedVerification(resp VerifyIssueFixResponse, err error) VerifyIssueFixResponse {
	msg := err.Error()
	switch {
	case errors.Is(err, context.Canceled):
		msg = "verification was cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "verification deadline exceeded"
	}
	resp.Success = false
	resp.Error = msg
	resp.Message = "Failed to verify issue fix: " + msg
	return resp
}

func broadcastMessage(res hub.SendResult) string {
	return fmt.Sprintf("Broadcast sent to %d clients, %d failed", res.Sent, res.Failed)
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrMalformed, err)
	}
	return data, nil
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
