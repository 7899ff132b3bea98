package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeClientRegistered      ActivityType = "client_registered"
	TypeClientDisconnected    ActivityType = "client_disconnected"
	TypeClientEvicted         ActivityType = "client_evicted"
	TypeVerificationRequested ActivityType = "verification_requested"
	TypeVerificationResolved  ActivityType = "verification_resolved"
	TypeVerificationTimedOut  ActivityType = "verification_timed_out"
	TypeIssueWritten          ActivityType = "issue_written"
	TypeIssueDeleted          ActivityType = "issue_deleted"
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool {
	switch t {
	case TypeClientRegistered, TypeClientDisconnected, TypeClientEvicted,
		TypeVerificationRequested, TypeVerificationResolved, TypeVerificationTimedOut,
		TypeIssueWritten, TypeIssueDeleted:
		return true
	}
	return false
}

// ActivityEntry represents an event in the activity log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ProjectID    string       `json:"project_id"`
	ClientID     *string      `json:"client_id,omitempty"`
	RequestID    *string      `json:"request_id,omitempty"`
	ActivityType ActivityType `json:"type"`
	Summary      string       `json:"summary"`
	Details      string       `json:"details,omitempty"` // JSON string
	CreatedAt    time.Time    `json:"created_at"`
}
