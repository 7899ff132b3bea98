package protocol

import "time"

// Reply types and statuses written directly to a single connection.
const (
	TypeRegistrationSuccess = "registration_success"
	TypeRegistrationError   = "registration_error"

	StatusSuccess  = "success"
	StatusError    = "error"
	StatusReceived = "received"
)

type RegistrationSuccess struct {
	Type      string `json:"type"`
	ClientID  string `json:"clientId"`
	ProjectID string `json:"projectId"`
	Message   string `json:"message"`
}

type RegistrationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type PongReply struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// StatusReply acknowledges a message that has no dedicated reply type.
type StatusReply struct {
	Status  string `json:"status"`
	IssueID string `json:"issueId,omitempty"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

func NewRegistrationSuccess(clientID, projectID string, existing bool) RegistrationSuccess {
	msg := "Registered for project " + projectID
	if existing {
		msg = "Already registered for project " + projectID
	}
	return RegistrationSuccess{
		Type:      TypeRegistrationSuccess,
		ClientID:  clientID,
		ProjectID: projectID,
		Message:   msg,
	}
}

func NewRegistrationError(message string) RegistrationError {
	return RegistrationError{Type: TypeRegistrationError, Message: message}
}

func NewPong(now time.Time) PongReply {
	return PongReply{Type: TypePong, Timestamp: now.UnixMilli()}
}

func ErrorReply(message string) StatusReply {
	return StatusReply{Status: StatusError, Message: message}
}

func ReceivedReply(msgType string) StatusReply {
	return StatusReply{Status: StatusReceived, Type: msgType, Message: "Message received"}
}

func IssueSavedReply(issueID string) StatusReply {
	return StatusReply{Status: StatusSuccess, IssueID: issueID, Message: "Issue saved successfully"}
}

func IssueErrorReply(issueID, message string) StatusReply {
	return StatusReply{Status: StatusError, IssueID: issueID, Message: message}
}

// Welcome is sent once on every new connection before registration.
func Welcome(serverVersion string) Envelope {
	return Envelope{
		Type: EnvelopeStatus,
		Payload: StatusPayload{
			Status: "connected",
			Details: map[string]any{
				"message":       "Connected to Skippr MCP WebSocket server",
				"instructions":  "Send {\"type\":\"register\",\"projectId\":\"<id>\"} to receive project messages",
				"serverVersion": serverVersion,
			},
		},
	}
}
