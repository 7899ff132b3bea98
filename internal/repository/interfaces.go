package repository

import (
	"context"

	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/issues"
	"github.com/skippr/skippr-mcp/internal/protocol"
)

// ActivityRepository manages activity log persistence
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
	List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}

// IssueStore manages issue files written by the extension
type IssueStore interface {
	WriteIssue(ctx context.Context, msg *protocol.WriteIssue) error
	DeleteIssue(ctx context.Context, projectID, reviewID, issueID string) error
	Read(ctx context.Context, projectID, reviewID, issueID string) (*issues.Issue, error)
	List(ctx context.Context, filter issues.ListFilter) ([]issues.Summary, error)
	ListProjects(ctx context.Context) ([]issues.ProjectSummary, error)
}
