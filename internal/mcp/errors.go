package mcp

import (
	"errors"
	"fmt"

	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/hub"
	"github.com/skippr/skippr-mcp/internal/issues"
	"github.com/skippr/skippr-mcp/internal/protocol"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RecoveryHint != "" {
		msg += " (" + e.RecoveryHint + ")"
	}
	return msg
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, issues.ErrIssueNotFound):
		return &APIError{Code: "ISSUE_NOT_FOUND", Message: err.Error(), RecoveryHint: "Call skippr_list_issues to find valid ids"}
	case errors.Is(err, issues.ErrInvalidIssue):
		return &APIError{Code: "INVALID_ISSUE", Message: err.Error(), RecoveryHint: "reviewId and issueId must be UUIDs"}
	case errors.Is(err, protocol.ErrUnknownEnvelopeType):
		return &APIError{Code: "INVALID_MESSAGE", Message: err.Error(), RecoveryHint: "Use type notification, command, data or status"}
	case errors.Is(err, protocol.ErrMalformed), errors.Is(err, protocol.ErrInvalidPayload):
		return &APIError{Code: "INVALID_MESSAGE", Message: err.Error(), RecoveryHint: "Send {\"type\": ..., \"payload\": {...}}"}
	case errors.Is(err, hub.ErrNoClients):
		return &APIError{Code: "NO_CLIENTS", Message: err.Error(), RecoveryHint: "Open the project in the browser extension"}
	case errors.Is(err, hub.ErrVerificationTimeout):
		return &APIError{Code: "VERIFICATION_TIMEOUT", Message: err.Error()}
	case errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	default:
		return nil
	}
}
