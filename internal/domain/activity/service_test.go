package activity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/skippr/skippr-mcp/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestActivityService_LogAndList(t *testing.T) {
	ctx := context.Background()

	repo := &mocks.ActivityRepository{}
	entry := &activity.ActivityEntry{
		ProjectID:    "proj1",
		ActivityType: activity.TypeClientRegistered,
		Summary:      "client registered",
	}

	repo.On("Log", ctx, entry).Return(nil)
	repo.On("List", ctx, activity.ListActivityOptions{ProjectID: "proj1", Limit: 50}).Return([]activity.ActivityEntry{*entry}, nil)

	svc := activity.NewService(repo, nil)
	require.NoError(t, svc.LogActivity(ctx, entry))
	require.False(t, entry.CreatedAt.IsZero())

	entries, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{ProjectID: "proj1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	repo.AssertExpectations(t)
}

func TestActivityService_RejectsInvalidEntries(t *testing.T) {
	svc := activity.NewService(&mocks.ActivityRepository{}, nil)

	require.ErrorIs(t, svc.LogActivity(context.Background(), nil), activity.ErrInvalidInput)
	err := svc.LogActivity(context.Background(), &activity.ActivityEntry{ActivityType: "bogus"})
	require.ErrorIs(t, err, activity.ErrInvalidInput)

	bogus := activity.ActivityType("bogus")
	_, err = svc.GetRecentActivity(context.Background(), activity.ListActivityOptions{ActivityType: &bogus})
	require.ErrorIs(t, err, activity.ErrInvalidInput)
}

func TestActivityService_ClampsLimit(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	repo.On("List", ctx, mock.MatchedBy(func(opts activity.ListActivityOptions) bool {
		return opts.Limit == 500 && opts.Offset == 0
	})).Return([]activity.ActivityEntry{}, nil)

	svc := activity.NewService(repo, nil)
	_, err := svc.GetRecentActivity(ctx, activity.ListActivityOptions{Limit: 10000, Offset: -3})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestActivityService_WrapsRepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ActivityRepository{}
	boom := errors.New("disk full")
	repo.On("Log", ctx, mock.Anything).Return(boom)

	svc := activity.NewService(repo, nil)
	err := svc.LogActivity(ctx, &activity.ActivityEntry{ActivityType: activity.TypeIssueWritten})
	require.ErrorIs(t, err, boom)
}
