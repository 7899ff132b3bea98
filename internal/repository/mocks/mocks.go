package mocks

import (
	"context"

	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/issues"
	"github.com/skippr/skippr-mcp/internal/protocol"
	"github.com/stretchr/testify/mock"
)

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// IssueStore is a mock for repository.IssueStore.
type IssueStore struct {
	mock.Mock
}

func (m *IssueStore) WriteIssue(ctx context.Context, msg *protocol.WriteIssue) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *IssueStore) DeleteIssue(ctx context.Context, projectID, reviewID, issueID string) error {
	args := m.Called(ctx, projectID, reviewID, issueID)
	return args.Error(0)
}

func (m *IssueStore) Read(ctx context.Context, projectID, reviewID, issueID string) (*issues.Issue, error) {
	args := m.Called(ctx, projectID, reviewID, issueID)
	if issue, ok := args.Get(0).(*issues.Issue); ok {
		return issue, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IssueStore) List(ctx context.Context, filter issues.ListFilter) ([]issues.Summary, error) {
	args := m.Called(ctx, filter)
	if list, ok := args.Get(0).([]issues.Summary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IssueStore) ListProjects(ctx context.Context) ([]issues.ProjectSummary, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]issues.ProjectSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
