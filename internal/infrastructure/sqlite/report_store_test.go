package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/discussions/internal/profanity"
)

func TestReportStore_SaveAndList(t *testing.T) {
	store := setupTestDB(t).ReportStore()
	ctx := context.Background()

	reports := []*profanity.Report{
		{PostID: "abc", PostType: "thread", CourseID: "course-v1:edX+DemoX+Demo_Course", Terms: []string{"darn"}, CreatedAt: time.Now()},
		{PostID: "def", PostType: "comment", CourseID: "course-v1:edX+Other+2025", Terms: []string{"heck"}, CreatedAt: time.Now()},
	}
	for _, r := range reports {
		require.NoError(t, store.SaveReport(ctx, r))
		require.Greater(t, r.ID, int64(0))
	}

	all, err := store.ListReports(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "def", all[0].PostID)

	demo, err := store.ListReports(ctx, "course-v1:edX+DemoX+Demo_Course")
	require.NoError(t, err)
	require.Len(t, demo, 1)
	require.Equal(t, []string{"darn"}, demo[0].Terms)
	require.Equal(t, "thread", demo[0].PostType)
}
