package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/skippr/skippr-mcp/internal/domain/activity"
	"github.com/stretchr/testify/require"
)

func TestActivityRepository_LogList(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	entry1 := &activity.ActivityEntry{
		ProjectID:    "p1",
		ActivityType: activity.TypeClientRegistered,
		Summary:      "client registered",
		Details:      `{"extensionVersion":"1.0.0"}`,
		CreatedAt:    base,
	}
	entry2 := &activity.ActivityEntry{
		ProjectID:    "p1",
		ActivityType: activity.TypeIssueWritten,
		Summary:      "issue saved",
		CreatedAt:    base.Add(time.Second),
	}

	require.NoError(t, repo.Log(ctx, entry1))
	require.NoError(t, repo.Log(ctx, entry2))
	require.NotZero(t, entry1.ID)

	entries, err := repo.List(ctx, activity.ListActivityOptions{ProjectID: "p1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, entry2.ActivityType, entries[0].ActivityType)
	require.Equal(t, entry1.ActivityType, entries[1].ActivityType)
	require.Equal(t, entry1.Details, entries[1].Details)
	require.True(t, base.Equal(entries[1].CreatedAt))
}

func TestActivityRepository_Filters(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	repo := NewActivityRepository(db)
	clientID := "c1"
	requestID := "req1"
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		ProjectID:    "p1",
		ClientID:     &clientID,
		ActivityType: activity.TypeClientRegistered,
		Summary:      "client registered",
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		ProjectID:    "p1",
		RequestID:    &requestID,
		ActivityType: activity.TypeVerificationRequested,
		Summary:      "verification requested",
	}))
	require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
		ProjectID:    "p2",
		ActivityType: activity.TypeIssueDeleted,
		Summary:      "issue deleted",
	}))

	entries, err := repo.List(ctx, activity.ListActivityOptions{ClientID: &clientID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, clientID, *entries[0].ClientID)
	require.Nil(t, entries[0].RequestID)

	entries, err = repo.List(ctx, activity.ListActivityOptions{RequestID: &requestID})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	typ := activity.TypeIssueDeleted
	entries, err = repo.List(ctx, activity.ListActivityOptions{ActivityType: &typ})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "p2", entries[0].ProjectID)

	entries, err = repo.List(ctx, activity.ListActivityOptions{ProjectID: "missing"})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestActivityRepository_Pagination(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Log(ctx, &activity.ActivityEntry{
			ProjectID:    "p1",
			ActivityType: activity.TypeIssueWritten,
			Summary:      "issue saved",
			CreatedAt:    base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, err := repo.List(ctx, activity.ListActivityOptions{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, int64(4), page[0].ID)
	require.Equal(t, int64(3), page[1].ID)

	tail, err := repo.List(ctx, activity.ListActivityOptions{Offset: 3})
	require.NoError(t, err)
	require.Len(t, tail, 2)

	since := base.Add(3 * time.Second)
	recent, err := repo.List(ctx, activity.ListActivityOptions{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 2)
}
