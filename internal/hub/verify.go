package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/protocol"
)

// DefaultVerifyTimeout bounds a verification request when the caller gives none.
const DefaultVerifyTimeout = 300 * time.Second

// IssueDeleter removes the issue artifact once a fix is verified.
type IssueDeleter interface {
	DeleteIssue(ctx context.Context, projectID, reviewID, issueID string) error
}

// VerifyRequest asks the project's clients to verify an issue fix.
type VerifyRequest struct {
	ProjectID string
	IssueID   string
	ReviewID  string
	Timeout   time.Duration
}

// VerifyResult is the extension's verdict for one request.
type VerifyResult struct {
	RequestID string         `json:"requestId"`
	ProjectID string         `json:"projectId"`
	IssueID   string         `json:"issueId"`
	ReviewID  string         `json:"reviewId,omitempty"`
	Success   bool           `json:"success"`
	Verified  bool           `json:"verified"`
	Message   string         `json:"message,omitempty"`
	Reasoning string         `json:"reasoning,omitempty"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type verifyOutcome struct {
	result *VerifyResult
	err    error
}

// pendingVerification is settled exactly once: whoever removes it from the
// coordinator table owns delivery.
type pendingVerification struct {
	requestID string
	req       VerifyRequest
	timer     *time.Timer
	done      chan verifyOutcome
}

// Coordinator runs correlated verify_issue_fix exchanges over the router.
type Coordinator struct {
	router   *Router
	deleter  IssueDeleter
	record   func(*activity.ActivityEntry)
	logger   *slog.Logger
	fallback time.Duration

	mu      sync.Mutex
	pending map[string]*pendingVerification
}

// NewCoordinator creates a coordinator. deleter may be nil.
func NewCoordinator(router *Router, deleter IssueDeleter, defaultTimeout time.Duration, logger *slog.Logger) *Coordinator {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultVerifyTimeout
	}
	return &Coordinator{
		router:   router,
		deleter:  deleter,
		record:   func(*activity.ActivityEntry) {},
		logger:   orDiscard(logger),
		fallback: defaultTimeout,
		pending:  make(map[string]*pendingVerification),
	}
}

// Verify sends the request to every client of the project and waits for the
// first matching response, the timeout, or ctx cancellation.
func (c *Coordinator) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	p, err := c.begin(req)
	if err != nil {
		return nil, err
	}

	select {
	case out := <-p.done:
		return out.result, out.err
	case <-ctx.Done():
		if c.take(p.requestID) != nil {
			return nil, ctx.Err()
		}
		// Settled concurrently; the outcome is already buffered.
		out := <-p.done
		return out.result, out.err
	}
}

// begin registers the pending entry before sending so that a fast response
// cannot miss it; the timer is armed only once a client received the command.
func (c *Coordinator) begin(req VerifyRequest) (*pendingVerification, error) {
	if req.Timeout <= 0 {
		req.Timeout = c.fallback
	}
	p := &pendingVerification{
		requestID: uuid.NewString(),
		req:       req,
		done:      make(chan verifyOutcome, 1),
	}

	c.mu.Lock()
	c.pending[p.requestID] = p
	c.mu.Unlock()

	res := c.router.SendToProject(req.ProjectID,
		protocol.VerifyIssueFixCommand(req.ProjectID, req.IssueID, req.ReviewID, p.requestID))
	if res.Sent == 0 {
		c.take(p.requestID)
		return nil, fmt.Errorf("%w for project %s", ErrNoClients, req.ProjectID)
	}

	c.mu.Lock()
	if _, ok := c.pending[p.requestID]; ok {
		p.timer = time.AfterFunc(req.Timeout, func() { c.expire(p.requestID) })
	}
	c.mu.Unlock()

	c.logger.Info("verification requested", "request_id", p.requestID, "project_id", req.ProjectID,
		"issue_id", req.IssueID, "sent", res.Sent, "failed", res.Failed)
	c.record(&activity.ActivityEntry{
		ProjectID:    req.ProjectID,
		RequestID:    &p.requestID,
		ActivityType: activity.TypeVerificationRequested,
		Summary:      fmt.Sprintf("verification of issue %s sent to %d client(s)", req.IssueID, res.Sent),
	})
	return p, nil
}

// Resolve matches a response to its pending request. Unknown or late
// responses are discarded and reported as false.
func (c *Coordinator) Resolve(resp *protocol.VerifyIssueResponse) bool {
	p := c.take(resp.RequestID)
	if p == nil {
		c.logger.Debug("discarding unmatched verification response", "request_id", resp.RequestID)
		return false
	}

	reviewID := p.req.ReviewID
	if reviewID == "" {
		reviewID = resp.ReviewID
	}
	result := &VerifyResult{
		RequestID: resp.RequestID,
		ProjectID: resp.ProjectID,
		IssueID:   resp.IssueID,
		ReviewID:  reviewID,
		Success:   resp.Success,
		Verified:  resp.Verified,
		Message:   resp.Message,
		Reasoning: resp.Reasoning,
		Error:     resp.Error,
		Details:   resp.Details,
	}
	p.done <- verifyOutcome{result: result}

	c.logger.Info("verification resolved", "request_id", resp.RequestID, "issue_id", resp.IssueID, "verified", resp.Verified)
	c.record(&activity.ActivityEntry{
		ProjectID:    p.req.ProjectID,
		RequestID:    &p.requestID,
		ActivityType: activity.TypeVerificationResolved,
		Summary:      fmt.Sprintf("issue %s verified=%t", resp.IssueID, resp.Verified),
	})

	if resp.Verified && c.deleter != nil {
		if err := c.deleter.DeleteIssue(context.Background(), p.req.ProjectID, reviewID, p.req.IssueID); err != nil {
			c.logger.Warn("could not delete verified issue", "issue_id", p.req.IssueID, "error", err)
		}
	}
	return true
}

// PendingCount returns the number of unsettled requests.
func (c *Coordinator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coordinator) expire(requestID string) {
	p := c.take(requestID)
	if p == nil {
		return
	}
	p.done <- verifyOutcome{err: fmt.Errorf("%w: no response after %s for issue %s",
		ErrVerificationTimeout, p.req.Timeout, p.req.IssueID)}

	c.logger.Warn("verification timed out", "request_id", requestID, "issue_id", p.req.IssueID, "timeout", p.req.Timeout)
	c.record(&activity.ActivityEntry{
		ProjectID:    p.req.ProjectID,
		RequestID:    &p.requestID,
		ActivityType: activity.TypeVerificationTimedOut,
		Summary:      fmt.Sprintf("no response for issue %s after %s", p.req.IssueID, p.req.Timeout),
	})
}

// take removes and returns the pending entry, stopping its timer. Only the
// first caller for a request id gets a non-nil result.
func (c *Coordinator) take(requestID string) *pendingVerification {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.pending[requestID]
	if !ok {
		return nil
	}
	delete(c.pending, requestID)
	if p.timer != nil {
		p.timer.Stop()
	}
	return p
}
