package modulestore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/requestcache"
	"github.com/zjrosen/discussions/internal/signals"
)

// SignalCoursePublished is the name of the publish signal.
const SignalCoursePublished = "course_published"

// NamespaceDiscussionBlocks is the request cache namespace of DiscussionBlocks.
const NamespaceDiscussionBlocks = "modulestore.discussion_blocks"

// CoursePublishedPayload is sent after a course changes.
type CoursePublishedPayload struct {
	Sender    string
	CourseKey course.CourseKey
}

// ItemInput describes a block to add under Parent.
type ItemInput struct {
	Parent      course.UsageKey
	Category    string
	Name        string
	DisplayName string
	// DiscussionID defaults to the block name for discussion blocks.
	DiscussionID string
}

type bulkState struct {
	depth int
	dirty bool
}

// Store is the course structure API. Every mutation publishes the course
// unless it runs inside BulkOperations.
type Store struct {
	repo      Repository
	published *signals.Signal[CoursePublishedPayload]
	now       func() time.Time
	newName   func() string

	mu   sync.Mutex
	bulk map[course.CourseKey]*bulkState
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNameGenerator overrides the generator of default block names.
func WithNameGenerator(fn func() string) Option {
	return func(s *Store) { s.newName = fn }
}

// NewStore creates a Store that emits on published.
func NewStore(repo Repository, published *signals.Signal[CoursePublishedPayload], opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		published: published,
		now:       time.Now,
		newName:   func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
		bulk:      make(map[course.CourseKey]*bulkState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CoursePublished returns the signal the store emits on.
func (s *Store) CoursePublished() *signals.Signal[CoursePublishedPayload] {
	return s.published
}

// CreateCourse stores a new course with its root block and publishes it.
func (s *Store) CreateCourse(ctx context.Context, org, courseName, run string) (*Course, error) {
	key, err := course.NewCourseKey(org, courseName, run)
	if err != nil {
		return nil, err
	}
	now := s.now()
	c := &Course{Key: key, DisplayName: courseName, CreatedAt: now}
	root := &Block{
		Location:    key.RootUsageKey(),
		Category:    course.CategoryCourse,
		DisplayName: courseName,
		CreatedAt:   now,
	}
	if err := s.repo.CreateCourse(ctx, c, root); err != nil {
		return nil, fmt.Errorf("creating course %s: %w", key, err)
	}
	log.Info(log.CatModulestore, "course created", "course_id", key.String())

	s.Publish(ctx, key)
	return c, nil
}

// CreateItem adds a block under an existing parent and publishes its course.
func (s *Store) CreateItem(ctx context.Context, in ItemInput) (*Block, error) {
	if in.Category == "" {
		return nil, fmt.Errorf("creating item under %s: category is required", in.Parent)
	}
	name := in.Name
	if name == "" {
		name = s.newName()
	}
	location, err := course.NewUsageKey(in.Parent.Course, in.Category, name)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.FindBlock(ctx, in.Parent); err != nil {
		return nil, err
	}

	parent := in.Parent
	b := &Block{
		Location:     location,
		Parent:       &parent,
		Category:     in.Category,
		DisplayName:  in.DisplayName,
		DiscussionID: in.DiscussionID,
		CreatedAt:    s.now(),
	}
	if b.IsDiscussion() && b.DiscussionID == "" {
		b.DiscussionID = name
	}
	if err := s.repo.CreateBlock(ctx, b); err != nil {
		return nil, fmt.Errorf("creating item %s: %w", b.Location, err)
	}
	log.Info(log.CatModulestore, "item created", "location", b.Location.String(), "category", b.Category)

	s.Publish(ctx, in.Parent.Course)
	return b, nil
}

// Publish emits course_published for key, or marks the course dirty when
// a bulk operation is open on it. Receiver failures are logged.
func (s *Store) Publish(ctx context.Context, key course.CourseKey) {
	s.mu.Lock()
	if st, ok := s.bulk[key]; ok {
		st.dirty = true
		depth := st.depth
		s.mu.Unlock()
		log.Debug(log.CatModulestore, "publish deferred", "course_id", key.String(), "depth", depth)
		return
	}
	s.mu.Unlock()
	s.emit(ctx, key)
}

func (s *Store) emit(ctx context.Context, key course.CourseKey) {
	if s.published == nil {
		return
	}
	responses := s.published.SendRobust(ctx, CoursePublishedPayload{Sender: "modulestore", CourseKey: key})
	failed := 0
	for _, r := range responses {
		if r.Err != nil {
			failed++
		}
	}
	log.Info(log.CatModulestore, "course published", "course_id", key.String(), "receivers", len(responses), "failed", failed)
}

// BulkOperations runs fn with publishes for key suppressed and publishes
// once at the end of the outermost call if anything changed. Calls nest.
func (s *Store) BulkOperations(ctx context.Context, key course.CourseKey, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	st, ok := s.bulk[key]
	if !ok {
		st = &bulkState{}
		s.bulk[key] = st
	}
	st.depth++
	s.mu.Unlock()

	err := fn(ctx)

	s.mu.Lock()
	st.depth--
	outermost := st.depth == 0
	dirty := st.dirty
	if outermost {
		delete(s.bulk, key)
	}
	s.mu.Unlock()

	if outermost && dirty {
		s.emit(ctx, key)
	}
	return err
}

// Course returns the course stored under key.
func (s *Store) Course(ctx context.Context, key course.CourseKey) (*Course, error) {
	return s.repo.FindCourse(ctx, key)
}

// Courses lists every course.
func (s *Store) Courses(ctx context.Context) ([]*Course, error) {
	return s.repo.ListCourses(ctx)
}

// Blocks lists every block of a course.
func (s *Store) Blocks(ctx context.Context, key course.CourseKey) ([]*Block, error) {
	return s.repo.ListBlocks(ctx, key, "")
}

// DiscussionBlocks lists the inline discussion blocks of a course. The
// result is memoized in the request cache carried by ctx.
func (s *Store) DiscussionBlocks(ctx context.Context, key course.CourseKey) ([]*Block, error) {
	return requestcache.Memoize(ctx, NamespaceDiscussionBlocks, key.String(), func(ctx context.Context) ([]*Block, error) {
		log.Debug(log.CatModulestore, "loading discussion blocks", "course_id", key.String())
		return s.repo.ListBlocks(ctx, key, course.CategoryDiscussion)
	})
}
