package protocol

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Inbound message types sent by the browser extension.
const (
	TypeRegister            = "register"
	TypeWriteIssue          = "write_issue"
	TypeVerifyIssueResponse = "verify_issue_response"
	TypePing                = "ping"
	TypePong                = "pong"
)

// Inbound is a decoded client-to-server message.
type Inbound interface {
	MessageType() string
}

// ClientMetadata describes the connecting extension instance.
type ClientMetadata struct {
	ExtensionVersion string `json:"extensionVersion,omitempty" yaml:"extensionVersion,omitempty"`
	BrowserInfo      string `json:"browserInfo,omitempty" yaml:"browserInfo,omitempty"`
	Environment      string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// Register binds a connection to a project.
type Register struct {
	ProjectID string          `json:"projectId"`
	Metadata  *ClientMetadata `json:"metadata,omitempty"`
}

func (*Register) MessageType() string { return TypeRegister }

// ElementMetadata locates the DOM element an issue refers to.
type ElementMetadata struct {
	Selector    string    `json:"selector" yaml:"selector"`
	BoundingBox []float64 `json:"bounding_box,omitempty" yaml:"bounding_box,omitempty"`
}

// WriteIssue carries a full issue captured by the extension.
type WriteIssue struct {
	ProjectID       string           `json:"projectId"`
	ReviewID        string           `json:"reviewId"`
	IssueID         string           `json:"issueId"`
	Title           string           `json:"title"`
	Severity        string           `json:"severity"`
	Resolved        *bool            `json:"resolved,omitempty"`
	AgentTypes      []string         `json:"agentTypes"`
	ElementMetadata *ElementMetadata `json:"elementMetadata,omitempty"`
	Details         string           `json:"details"`
	AgentPrompt     string           `json:"agentPrompt"`
	Ticket          string           `json:"ticket,omitempty"`
	Timestamp       int64            `json:"timestamp"`
}

func (*WriteIssue) MessageType() string { return TypeWriteIssue }

// VerifyIssueResponse answers a verify_issue_fix command.
type VerifyIssueResponse struct {
	RequestID string         `json:"requestId"`
	ProjectID string         `json:"projectId"`
	IssueID   string         `json:"issueId"`
	ReviewID  string         `json:"reviewId,omitempty"`
	Success   bool           `json:"success"`
	Verified  bool           `json:"verified,omitempty"`
	Message   string         `json:"message,omitempty"`
	Reasoning string         `json:"reasoning,omitempty"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

func (*VerifyIssueResponse) MessageType() string { return TypeVerifyIssueResponse }

// Ping is an application-level liveness probe from the client.
type Ping struct{}

func (*Ping) MessageType() string { return TypePing }

// Pong is an application-level liveness answer from the client.
type Pong struct{}

func (*Pong) MessageType() string { return TypePong }

// Passthrough is any message whose type the hub does not interpret.
type Passthrough struct {
	Type string
	Raw  json.RawMessage
}

func (p *Passthrough) MessageType() string { return p.Type }

// Decode parses one text frame into its typed variant.
func Decode(data []byte) (Inbound, error) {
	var header struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if header.Type == nil || strings.TrimSpace(*header.Type) == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch *header.Type {
	case TypeRegister:
		var msg Register
		if err := decodeInto(data, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.ProjectID) == "" {
			return nil, fmt.Errorf("%w: projectId is required", ErrInvalidPayload)
		}
		return &msg, nil
	case TypeWriteIssue:
		var msg WriteIssue
		if err := decodeInto(data, &msg); err != nil {
			return nil, err
		}
		if err := msg.validate(); err != nil {
			return nil, err
		}
		return &msg, nil
	case TypeVerifyIssueResponse:
		return decodeVerifyResponse(data)
	case TypePing:
		return &Ping{}, nil
	case TypePong:
		return &Pong{}, nil
	default:
		return &Passthrough{Type: *header.Type, Raw: json.RawMessage(data)}, nil
	}
}

func decodeInto(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func decodeVerifyResponse(data []byte) (Inbound, error) {
	var probe struct {
		Success *bool `json:"success"`
	}
	if err := decodeInto(data, &probe); err != nil {
		return nil, err
	}
	var msg VerifyIssueResponse
	if err := decodeInto(data, &msg); err != nil {
		return nil, err
	}
	missing := missingFields(map[string]string{
		"requestId": msg.RequestID,
		"projectId": msg.ProjectID,
		"issueId":   msg.IssueID,
	})
	if probe.Success == nil {
		missing = append(missing, "success")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	return &msg, nil
}

func (m *WriteIssue) validate() error {
	missing := missingFields(map[string]string{
		"projectId":   m.ProjectID,
		"reviewId":    m.ReviewID,
		"issueId":     m.IssueID,
		"title":       m.Title,
		"severity":    m.Severity,
		"details":     m.Details,
		"agentPrompt": m.AgentPrompt,
	})
	if m.AgentTypes == nil {
		missing = append(missing, "agentTypes")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	return nil
}

// missingFields returns the sorted names of blank required fields.
func missingFields(fields map[string]string) []string {
	var missing []string
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}
