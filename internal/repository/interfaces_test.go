package repository_test

import (
	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/hub"
	"github.com/skippr/skippr-mcp/internal/issues"
	"github.com/skippr/skippr-mcp/internal/repository"
	"github.com/skippr/skippr-mcp/internal/repository/mocks"
	"github.com/skippr/skippr-mcp/internal/sqlite"
)

var (
	_ repository.ActivityRepository = (*sqlite.ActivityRepository)(nil)
	_ repository.ActivityRepository = (*mocks.ActivityRepository)(nil)
	_ activity.Repository           = (repository.ActivityRepository)(nil)

	_ repository.IssueStore = (*issues.Store)(nil)
	_ repository.IssueStore = (*mocks.IssueStore)(nil)
	_ hub.IssueSink         = (repository.IssueStore)(nil)
)
