package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/sites"
)

func TestBuilder_WithSite(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	NewBuilder(t, db).
		WithOptedInSite("example.com").
		WithSite("off.example.com", SiteDisabled(), SiteValue(ForumNotificationsKey, true)).
		WithSite("bare.example.com", NoConfiguration()).
		Build()

	repo := db.SiteRepository()
	site, err := repo.FindSiteByDomain(ctx, "example.com")
	require.NoError(t, err)
	cfg, err := repo.FindConfiguration(ctx, site.ID)
	require.NoError(t, err)
	require.True(t, cfg.BoolValue(ForumNotificationsKey, false))

	off, err := repo.FindSiteByDomain(ctx, "off.example.com")
	require.NoError(t, err)
	cfg, err = repo.FindConfiguration(ctx, off.ID)
	require.NoError(t, err)
	require.False(t, cfg.BoolValue(ForumNotificationsKey, false), "disabled configuration hides its values")

	bare, err := repo.FindSiteByDomain(ctx, "bare.example.com")
	require.NoError(t, err)
	_, err = repo.FindConfiguration(ctx, bare.ID)
	require.ErrorIs(t, err, sites.ErrConfigurationNotFound)
}

func TestBuilder_WithDemoCourse(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	NewBuilder(t, db).WithDemoCourse().Build()

	key, err := course.ParseCourseKey(DemoCourseID)
	require.NoError(t, err)
	blocks, err := db.CourseRepository().ListBlocks(ctx, key, course.CategoryDiscussion)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, "discussion1", blocks[0].DiscussionID)

	_, err = db.SettingsRepository().FindSettings(ctx, key)
	require.ErrorIs(t, err, discussion.ErrSettingsNotFound, "builder does not publish")
}

func TestComment_InheritsThread(t *testing.T) {
	thread := Thread("t1", Commentable("discussion1"), Author(7))
	comment := Comment("c1", thread, Body("darn"))

	require.Equal(t, discussion.PostTypeComment, comment.Type)
	require.Equal(t, DemoCourseID, comment.CourseID)
	require.Equal(t, "discussion1", comment.CommentableID)
	require.Equal(t, "darn", comment.Body)
	require.Same(t, thread, comment.Thread)

	payload := Payload(comment)
	require.Equal(t, int64(2), payload.User.ID)
}
