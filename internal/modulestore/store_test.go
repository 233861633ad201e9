package modulestore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/requestcache"
	"github.com/zjrosen/discussions/internal/signals"
)

// memRepository is an in-memory Repository for store tests.
type memRepository struct {
	mu        sync.Mutex
	courses   map[course.CourseKey]*Course
	blocks    []*Block
	listCalls int
}

func newMemRepository() *memRepository {
	return &memRepository{courses: map[course.CourseKey]*Course{}}
}

func (r *memRepository) CreateCourse(_ context.Context, c *Course, root *Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[c.Key]; ok {
		return ErrCourseExists
	}
	r.courses[c.Key] = c
	r.blocks = append(r.blocks, root)
	return nil
}

func (r *memRepository) FindCourse(_ context.Context, key course.CourseKey) (*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[key]
	if !ok {
		return nil, &CourseNotFoundError{Key: key}
	}
	return c, nil
}

func (r *memRepository) ListCourses(context.Context) ([]*Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, c)
	}
	return out, nil
}

func (r *memRepository) CreateBlock(_ context.Context, b *Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.blocks {
		if existing.Location == b.Location {
			return ErrBlockExists
		}
	}
	r.blocks = append(r.blocks, b)
	return nil
}

func (r *memRepository) FindBlock(_ context.Context, location course.UsageKey) (*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.blocks {
		if b.Location == location {
			return b, nil
		}
	}
	return nil, &BlockNotFoundError{Location: location}
}

func (r *memRepository) ListBlocks(_ context.Context, key course.CourseKey, category string) ([]*Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []*Block
	for _, b := range r.blocks {
		if b.Location.Course == key && (category == "" || b.Category == category) {
			out = append(out, b)
		}
	}
	return out, nil
}

type publishRecorder struct {
	mu   sync.Mutex
	keys []course.CourseKey
}

func (p *publishRecorder) receive(_ context.Context, payload CoursePublishedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, payload.CourseKey)
	return nil
}

func (p *publishRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

func setupStore(t *testing.T) (*Store, *memRepository, *publishRecorder) {
	t.Helper()
	repo := newMemRepository()
	sig := signals.New[CoursePublishedPayload](SignalCoursePublished)
	t.Cleanup(sig.Close)

	rec := &publishRecorder{}
	sig.Connect("test.recorder", rec.receive)

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewStore(repo, sig, WithClock(func() time.Time { return fixed }))
	return store, repo, rec
}

func TestStore_CreateCourse_StoresRootAndPublishes(t *testing.T) {
	store, repo, rec := setupStore(t)
	ctx := context.Background()

	c, err := store.CreateCourse(ctx, "edX", "DemoX", "Demo_Course")
	require.NoError(t, err)
	require.Equal(t, "course-v1:edX+DemoX+Demo_Course", c.Key.String())

	root, err := repo.FindBlock(ctx, c.Key.RootUsageKey())
	require.NoError(t, err)
	require.Equal(t, course.CategoryCourse, root.Category)
	require.Nil(t, root.Parent)

	require.Equal(t, []course.CourseKey{c.Key}, rec.keys)
}

func TestStore_CreateCourse_Duplicate(t *testing.T) {
	store, _, rec := setupStore(t)
	ctx := context.Background()

	_, err := store.CreateCourse(ctx, "edX", "DemoX", "Demo_Course")
	require.NoError(t, err)
	_, err = store.CreateCourse(ctx, "edX", "DemoX", "Demo_Course")
	require.ErrorIs(t, err, ErrCourseExists)
	require.Equal(t, 1, rec.count())
}

func TestStore_CreateCourse_InvalidKey(t *testing.T) {
	store, _, rec := setupStore(t)

	_, err := store.CreateCourse(context.Background(), "ed X", "DemoX", "Demo_Course")
	var keyErr *course.InvalidKeyError
	require.ErrorAs(t, err, &keyErr)
	require.Zero(t, rec.count())
}

func TestStore_CreateItem(t *testing.T) {
	store, _, rec := setupStore(t)
	ctx := context.Background()
	c, err := store.CreateCourse(ctx, "edX", "DemoX", "Demo_Course")
	require.NoError(t, err)

	t.Run("discussion defaults discussion id to name", func(t *testing.T) {
		b, err := store.CreateItem(ctx, ItemInput{
			Parent:   c.Key.RootUsageKey(),
			Category: course.CategoryDiscussion,
			Name:     "intro",
		})
		require.NoError(t, err)
		require.Equal(t, "intro", b.DiscussionID)
		require.Equal(t, "block-v1:edX+DemoX+Demo_Course+type@discussion+block@intro", b.Location.String())
		require.Equal(t, c.Key.RootUsageKey(), *b.Parent)
	})

	t.Run("generated name has no dashes", func(t *testing.T) {
		b, err := store.CreateItem(ctx, ItemInput{
			Parent:       c.Key.RootUsageKey(),
			Category:     course.CategoryDiscussion,
			DiscussionID: "discussion1",
		})
		require.NoError(t, err)
		require.Len(t, b.Location.BlockID, 32)
		require.NotContains(t, b.Location.BlockID, "-")
		require.Equal(t, "discussion1", b.DiscussionID)
	})

	t.Run("non discussion keeps empty discussion id", func(t *testing.T) {
		b, err := store.CreateItem(ctx, ItemInput{Parent: c.Key.RootUsageKey(), Category: "chapter", Name: "week1"})
		require.NoError(t, err)
		require.Empty(t, b.DiscussionID)
	})

	t.Run("missing parent", func(t *testing.T) {
		_, err := store.CreateItem(ctx, ItemInput{
			Parent:   c.Key.MakeUsageKey("chapter", "missing"),
			Category: course.CategoryDiscussion,
		})
		require.ErrorIs(t, err, ErrBlockNotFound)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := store.CreateItem(ctx, ItemInput{
			Parent:   c.Key.RootUsageKey(),
			Category: course.CategoryDiscussion,
			Name:     "a+b",
		})
		var keyErr *course.InvalidKeyError
		require.ErrorAs(t, err, &keyErr)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := store.CreateItem(ctx, ItemInput{Parent: c.Key.RootUsageKey()})
		require.Error(t, err)
	})

	// one publish for the course plus one per created item
	require.Equal(t, 4, rec.count())
}

func TestStore_BulkOperations_PublishesOnce(t *testing.T) {
	store, _, rec := setupStore(t)
	ctx := context.Background()
	key, err := course.NewCourseKey("edX", "DemoX", "Demo_Course")
	require.NoError(t, err)

	err = store.BulkOperations(ctx, key, func(ctx context.Context) error {
		if _, err := store.CreateCourse(ctx, "edX", "DemoX", "Demo_Course"); err != nil {
			return err
		}
		return store.BulkOperations(ctx, key, func(ctx context.Context) error {
			for _, name := range []string{"a", "b"} {
				if _, err := store.CreateItem(ctx, ItemInput{Parent: key.RootUsageKey(), Category: course.CategoryDiscussion, Name: name}); err != nil {
					return err
				}
			}
			require.Zero(t, rec.count())
			return nil
		})
	})
	require.NoError(t, err)
	require.Equal(t, 1, rec.count())
}

func TestStore_BulkOperations_NoChangesNoPublish(t *testing.T) {
	store, _, rec := setupStore(t)
	key, err := course.NewCourseKey("edX", "DemoX", "Demo_Course")
	require.NoError(t, err)

	boom := errors.New("aborted")
	err = store.BulkOperations(context.Background(), key, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Zero(t, rec.count())
}

func TestStore_DiscussionBlocks_RequestCached(t *testing.T) {
	store, repo, _ := setupStore(t)
	ctx := requestcache.WithRegistry(context.Background(), requestcache.New())

	c, err := store.CreateCourse(ctx, "edX", "DemoX", "Demo_Course")
	require.NoError(t, err)

	blocks, err := store.DiscussionBlocks(ctx, c.Key)
	require.NoError(t, err)
	require.Empty(t, blocks)

	_, err = store.CreateItem(ctx, ItemInput{Parent: c.Key.RootUsageKey(), Category: course.CategoryDiscussion, Name: "d1"})
	require.NoError(t, err)

	blocks, err = store.DiscussionBlocks(ctx, c.Key)
	require.NoError(t, err)
	require.Empty(t, blocks, "cached result should be served within the request")
	require.Equal(t, 1, repo.listCalls)

	requestcache.ClearCache(ctx, NamespaceDiscussionBlocks)

	blocks, err = store.DiscussionBlocks(ctx, c.Key)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, 2, repo.listCalls)
}

func TestStore_DiscussionBlocks_NoRegistry(t *testing.T) {
	store, repo, _ := setupStore(t)
	ctx := context.Background()

	c, err := store.CreateCourse(ctx, "edX", "DemoX", "Demo_Course")
	require.NoError(t, err)

	for range 3 {
		_, err := store.DiscussionBlocks(ctx, c.Key)
		require.NoError(t, err)
	}
	require.Equal(t, 3, repo.listCalls)
}
