package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/modulestore"
)

func createDemoCourse(t *testing.T, repo modulestore.Repository) course.CourseKey {
	t.Helper()
	key := demoCourseKey(t)
	now := time.Now()
	err := repo.CreateCourse(context.Background(),
		&modulestore.Course{Key: key, DisplayName: "Demo", CreatedAt: now},
		&modulestore.Block{Location: key.RootUsageKey(), Category: course.CategoryCourse, CreatedAt: now},
	)
	require.NoError(t, err)
	return key
}

func TestCourseRepository_CreateCourse(t *testing.T) {
	repo := setupTestDB(t).CourseRepository()
	ctx := context.Background()
	key := createDemoCourse(t, repo)

	c, err := repo.FindCourse(ctx, key)
	require.NoError(t, err)
	require.Equal(t, key, c.Key)
	require.Equal(t, "Demo", c.DisplayName)

	root, err := repo.FindBlock(ctx, key.RootUsageKey())
	require.NoError(t, err)
	require.Nil(t, root.Parent)
	require.Equal(t, course.CategoryCourse, root.Category)

	courses, err := repo.ListCourses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
}

func TestCourseRepository_DuplicateCourse(t *testing.T) {
	repo := setupTestDB(t).CourseRepository()
	key := createDemoCourse(t, repo)

	err := repo.CreateCourse(context.Background(),
		&modulestore.Course{Key: key, CreatedAt: time.Now()},
		&modulestore.Block{Location: key.RootUsageKey(), Category: course.CategoryCourse, CreatedAt: time.Now()},
	)
	require.ErrorIs(t, err, modulestore.ErrCourseExists)
}

func TestCourseRepository_NotFound(t *testing.T) {
	repo := setupTestDB(t).CourseRepository()
	ctx := context.Background()
	key := demoCourseKey(t)

	_, err := repo.FindCourse(ctx, key)
	require.ErrorIs(t, err, modulestore.ErrCourseNotFound)

	_, err = repo.FindBlock(ctx, key.RootUsageKey())
	require.ErrorIs(t, err, modulestore.ErrBlockNotFound)
}

func TestCourseRepository_Blocks(t *testing.T) {
	repo := setupTestDB(t).CourseRepository()
	ctx := context.Background()
	key := createDemoCourse(t, repo)
	root := key.RootUsageKey()

	blocks := []*modulestore.Block{
		{Location: key.MakeUsageKey("chapter", "week1"), Parent: &root, Category: "chapter", DisplayName: "Week 1", CreatedAt: time.Now()},
		{Location: key.MakeUsageKey(course.CategoryDiscussion, "d2"), Parent: &root, Category: course.CategoryDiscussion, DiscussionID: "discussion2", CreatedAt: time.Now()},
		{Location: key.MakeUsageKey(course.CategoryDiscussion, "d1"), Parent: &root, Category: course.CategoryDiscussion, DiscussionID: "discussion1", CreatedAt: time.Now()},
	}
	for _, b := range blocks {
		require.NoError(t, repo.CreateBlock(ctx, b))
	}

	err := repo.CreateBlock(ctx, blocks[0])
	require.ErrorIs(t, err, modulestore.ErrBlockExists)

	all, err := repo.ListBlocks(ctx, key, "")
	require.NoError(t, err)
	require.Len(t, all, 4)

	discussions, err := repo.ListBlocks(ctx, key, course.CategoryDiscussion)
	require.NoError(t, err)
	require.Len(t, discussions, 2)
	require.Equal(t, "discussion2", discussions[0].DiscussionID, "blocks come back in creation order")
	require.Equal(t, root, *discussions[0].Parent)

	chapter, err := repo.FindBlock(ctx, blocks[0].Location)
	require.NoError(t, err)
	require.Empty(t, chapter.DiscussionID)
	require.Equal(t, "Week 1", chapter.DisplayName)
}

func TestCourseRepository_BlockRequiresCourse(t *testing.T) {
	repo := setupTestDB(t).CourseRepository()
	key := demoCourseKey(t)

	err := repo.CreateBlock(context.Background(), &modulestore.Block{
		Location:  key.MakeUsageKey(course.CategoryDiscussion, "orphan"),
		Category:  course.CategoryDiscussion,
		CreatedAt: time.Now(),
	})
	require.Error(t, err, "foreign keys should reject a block without a course")
}
