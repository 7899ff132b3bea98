package hub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type verifyCall struct {
	result *VerifyResult
	err    error
}

func startVerify(ctx context.Context, h *Hub, req VerifyRequest) <-chan verifyCall {
	out := make(chan verifyCall, 1)
	go func() {
		res, err := h.VerifyIssueFix(ctx, req)
		out <- verifyCall{result: res, err: err}
	}()
	return out
}

func awaitVerify(t *testing.T, ch <-chan verifyCall) verifyCall {
	t.Helper()
	select {
	case call := <-ch:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("verification did not return")
		return verifyCall{}
	}
}

// commandRequestID reads the verify_issue_fix command written to conn.
func commandRequestID(t *testing.T, conn *fakeConn) string {
	t.Helper()
	cmd := conn.next(t)
	require.Equal(t, "command", cmd["type"])
	payload, ok := cmd["payload"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "verify_issue_fix", payload["action"])
	requestID, _ := payload["requestId"].(string)
	require.NotEmpty(t, requestID)
	return requestID
}

func TestVerify_NoClients(t *testing.T) {
	h, rec := newTestHub(t, Options{})

	_, err := h.VerifyIssueFix(context.Background(), VerifyRequest{ProjectID: "p1", IssueID: "i1"})
	require.ErrorIs(t, err, ErrNoClients)
	require.Zero(t, h.Status().PendingVerifications)
	require.Empty(t, rec.types())
}

func TestVerify_ResolvedAndDeleted(t *testing.T) {
	store := &mocks.IssueStore{}
	store.On("DeleteIssue", mock.Anything, "p1", "r1", "i1").Return(nil).Once()
	h, rec := newTestHub(t, Options{Issues: store})
	s, conn := connect(t, h, "p1")

	calls := startVerify(context.Background(), h, VerifyRequest{ProjectID: "p1", IssueID: "i1", ReviewID: "r1"})
	requestID := commandRequestID(t, conn)
	require.Equal(t, 1, h.Status().PendingVerifications)

	h.handleFrame(s, frame(t, map[string]any{
		"type":      "verify_issue_response",
		"requestId": requestID,
		"projectId": "p1",
		"issueId":   "i1",
		"success":   true,
		"verified":  true,
		"reasoning": "contrast now passes",
	}))

	call := awaitVerify(t, calls)
	require.NoError(t, call.err)
	require.Equal(t, requestID, call.result.RequestID)
	require.True(t, call.result.Verified)
	require.Equal(t, "contrast now passes", call.result.Reasoning)
	require.Equal(t, "r1", call.result.ReviewID)
	require.Zero(t, h.Status().PendingVerifications)

	// A duplicate answer finds nothing pending.
	h.handleFrame(s, frame(t, map[string]any{
		"type":      "verify_issue_response",
		"requestId": requestID,
		"projectId": "p1",
		"issueId":   "i1",
		"success":   true,
		"verified":  true,
	}))
	store.AssertNumberOfCalls(t, "DeleteIssue", 1)
	store.AssertExpectations(t)

	require.Contains(t, rec.types(), activity.TypeVerificationRequested)
	require.Contains(t, rec.types(), activity.TypeVerificationResolved)
	require.Contains(t, rec.types(), activity.TypeIssueDeleted)
}

func TestVerify_NotVerifiedKeepsIssue(t *testing.T) {
	store := &mocks.IssueStore{}
	h, _ := newTestHub(t, Options{Issues: store})
	s, conn := connect(t, h, "p1")

	calls := startVerify(context.Background(), h, VerifyRequest{ProjectID: "p1", IssueID: "i1"})
	requestID := commandRequestID(t, conn)

	h.handleFrame(s, frame(t, map[string]any{
		"type":      "verify_issue_response",
		"requestId": requestID,
		"projectId": "p1",
		"issueId":   "i1",
		"success":   true,
		"verified":  false,
		"message":   "still broken",
	}))

	call := awaitVerify(t, calls)
	require.NoError(t, call.err)
	require.False(t, call.result.Verified)
	require.Equal(t, "still broken", call.result.Message)
	store.AssertNotCalled(t, "DeleteIssue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_DeleteUsesResponseReviewID(t *testing.T) {
	store := &mocks.IssueStore{}
	store.On("DeleteIssue", mock.Anything, "p1", "r9", "i1").Return(errors.New("gone")).Once()
	h, rec := newTestHub(t, Options{Issues: store})
	s, conn := connect(t, h, "p1")

	calls := startVerify(context.Background(), h, VerifyRequest{ProjectID: "p1", IssueID: "i1"})
	requestID := commandRequestID(t, conn)

	h.handleFrame(s, frame(t, map[string]any{
		"type":      "verify_issue_response",
		"requestId": requestID,
		"projectId": "p1",
		"issueId":   "i1",
		"reviewId":  "r9",
		"success":   true,
		"verified":  true,
	}))

	call := awaitVerify(t, calls)
	require.NoError(t, call.err, "a failed delete does not fail the verification")
	require.Equal(t, "r9", call.result.ReviewID)
	store.AssertExpectations(t)
	require.NotContains(t, rec.types(), activity.TypeIssueDeleted)
}

func TestVerify_Timeout(t *testing.T) {
	h, rec := newTestHub(t, Options{})
	_, conn := connect(t, h, "p1")

	calls := startVerify(context.Background(), h, VerifyRequest{ProjectID: "p1", IssueID: "i1", Timeout: 50 * time.Millisecond})
	commandRequestID(t, conn)

	call := awaitVerify(t, calls)
	require.ErrorIs(t, call.err, ErrVerificationTimeout)
	require.Nil(t, call.result)
	require.Zero(t, h.Status().PendingVerifications)
	require.Contains(t, rec.types(), activity.TypeVerificationTimedOut)
}

func TestVerify_LateResponseDiscarded(t *testing.T) {
	store := &mocks.IssueStore{}
	h, _ := newTestHub(t, Options{Issues: store})
	s, conn := connect(t, h, "p1")

	calls := startVerify(context.Background(), h, VerifyRequest{ProjectID: "p1", IssueID: "i1", Timeout: 20 * time.Millisecond})
	requestID := commandRequestID(t, conn)
	require.ErrorIs(t, awaitVerify(t, calls).err, ErrVerificationTimeout)

	h.handleFrame(s, frame(t, map[string]any{
		"type":      "verify_issue_response",
		"requestId": requestID,
		"projectId": "p1",
		"issueId":   "i1",
		"success":   true,
		"verified":  true,
	}))
	store.AssertNotCalled(t, "DeleteIssue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_ContextCancel(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	_, conn := connect(t, h, "p1")

	ctx, cancel := context.WithCancel(context.Background())
	calls := startVerify(ctx, h, VerifyRequest{ProjectID: "p1", IssueID: "i1"})
	commandRequestID(t, conn)

	cancel()
	call := awaitVerify(t, calls)
	require.ErrorIs(t, call.err, context.Canceled)
	require.Zero(t, h.Status().PendingVerifications)
}

func TestVerify_ConcurrentRequestsCorrelated(t *testing.T) {
	h, _ := newTestHub(t, Options{})
	s, conn := connect(t, h, "p1")

	first := startVerify(context.Background(), h, VerifyRequest{ProjectID: "p1", IssueID: "i1"})
	firstID := commandRequestID(t, conn)
	second := startVerify(context.Background(), h, VerifyRequest{ProjectID: "p1", IssueID: "i2"})
	secondID := commandRequestID(t, conn)
	require.NotEqual(t, firstID, secondID)

	respond := func(requestID, issueID string, verified bool) {
		h.handleFrame(s, frame(t, map[string]any{
			"type":      "verify_issue_response",
			"requestId": requestID,
			"projectId": "p1",
			"issueId":   issueID,
			"success":   true,
			"verified":  verified,
		}))
	}
	respond(secondID, "i2", true)
	respond(firstID, "i1", false)

	one := awaitVerify(t, first)
	two := awaitVerify(t, second)
	require.NoError(t, one.err)
	require.NoError(t, two.err)
	require.Equal(t, "i1", one.result.IssueID)
	require.False(t, one.result.Verified)
	require.Equal(t, "i2", two.result.IssueID)
	require.True(t, two.result.Verified)
}

func TestVerify_DefaultTimeoutApplied(t *testing.T) {
	c := NewCoordinator(NewRouter(NewRegistry(), nil), nil, 0, nil)
	require.Equal(t, DefaultVerifyTimeout, c.fallback)
}
