package issues

import "errors"

var (
	// ErrIssueNotFound indicates no issue file exists for the given ids.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrInvalidIssue indicates an issue or lookup that fails validation.
	ErrInvalidIssue = errors.New("invalid issue")
)
