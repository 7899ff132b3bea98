package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnvelopeType is the closed set of server-to-client application message types.
type EnvelopeType string

const (
	EnvelopeNotification EnvelopeType = "notification"
	EnvelopeCommand      EnvelopeType = "command"
	EnvelopeData         EnvelopeType = "data"
	EnvelopeStatus       EnvelopeType = "status"
)

// Valid reports whether t is one of the known envelope types.
func (t EnvelopeType) Valid() bool {
	switch t {
	case EnvelopeNotification, EnvelopeCommand, EnvelopeData, EnvelopeStatus:
		return true
	}
	return false
}

// Envelope is the outbound wire unit.
type Envelope struct {
	Type      EnvelopeType `json:"type"`
	Payload   any          `json:"payload"`
	Timestamp int64        `json:"timestamp,omitempty"`
	MessageID string       `json:"messageId,omitempty"`
}

// Stamped returns a copy with timestamp and message id filled in when absent.
func (e Envelope) Stamped(now time.Time) Envelope {
	if e.Timestamp == 0 {
		e.Timestamp = now.UnixMilli()
	}
	if e.MessageID == "" {
		e.MessageID = uuid.NewString()
	}
	return e
}

// NotificationPayload is shown to the user by the extension.
type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level,omitempty"`
}

// CommandPayload asks the extension to perform an action.
type CommandPayload struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// DataPayload carries arbitrary data to the extension.
type DataPayload struct {
	Data     any    `json:"data"`
	DataType string `json:"dataType,omitempty"`
}

// StatusPayload reports server state to the extension.
type StatusPayload struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ActionVerifyIssueFix is the command action for verification requests.
const ActionVerifyIssueFix = "verify_issue_fix"

// VerifyIssueFixPayload is the command payload correlated by RequestID.
type VerifyIssueFixPayload struct {
	Action    string `json:"action"`
	ProjectID string `json:"projectId"`
	IssueID   string `json:"issueId"`
	ReviewID  string `json:"reviewId,omitempty"`
	RequestID string `json:"requestId"`
}

// VerifyIssueFixCommand builds the command envelope for one verification request.
func VerifyIssueFixCommand(projectID, issueID, reviewID, requestID string) Envelope {
	return Envelope{
		Type: EnvelopeCommand,
		Payload: VerifyIssueFixPayload{
			Action:    ActionVerifyIssueFix,
			ProjectID: projectID,
			IssueID:   issueID,
			ReviewID:  reviewID,
			RequestID: requestID,
		},
	}
}

// ParseEnvelope validates an outbound envelope supplied by a caller outside the hub.
func ParseEnvelope(data []byte) (Envelope, error) {
	var raw struct {
		Type      EnvelopeType    `json:"type"`
		Payload   json.RawMessage `json:"payload"`
		Timestamp int64           `json:"timestamp"`
		MessageID string          `json:"messageId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !raw.Type.Valid() {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEnvelopeType, raw.Type)
	}
	if len(raw.Payload) == 0 || string(raw.Payload) == "null" {
		return Envelope{}, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}

	env := Envelope{Type: raw.Type, Timestamp: raw.Timestamp, MessageID: raw.MessageID}
	switch raw.Type {
	case EnvelopeNotification:
		var p NotificationPayload
		if err := decodeInto(raw.Payload, &p); err != nil {
			return Envelope{}, err
		}
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Message) == "" {
			return Envelope{}, fmt.Errorf("%w: notification requires title and message", ErrInvalidPayload)
		}
		switch p.Level {
		case "", "info", "warning", "error":
		default:
			return Envelope{}, fmt.Errorf("%w: unknown notification level %q", ErrInvalidPayload, p.Level)
		}
		env.Payload = p
	case EnvelopeCommand:
		// Commands keep their raw shape so action-specific fields survive.
		var p map[string]any
		if err := decodeInto(raw.Payload, &p); err != nil {
			return Envelope{}, err
		}
		if action, _ := p["action"].(string); strings.TrimSpace(action) == "" {
			return Envelope{}, fmt.Errorf("%w: command requires action", ErrInvalidPayload)
		}
		env.Payload = p
	case EnvelopeData:
		var p DataPayload
		if err := decodeInto(raw.Payload, &p); err != nil {
			return Envelope{}, err
		}
		env.Payload = p
	case EnvelopeStatus:
		var p StatusPayload
		if err := decodeInto(raw.Payload, &p); err != nil {
			return Envelope{}, err
		}
		if strings.TrimSpace(p.Status) == "" {
			return Envelope{}, fmt.Errorf("%w: status requires status", ErrInvalidPayload)
		}
		env.Payload = p
	}
	return env, nil
}
