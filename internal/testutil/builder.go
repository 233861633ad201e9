package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/infrastructure/sqlite"
	"github.com/zjrosen/discussions/internal/modulestore"
	"github.com/zjrosen/discussions/internal/sites"
)

type testingT interface {
	require.TestingT
	Helper()
}

type blockData struct {
	courseID     string
	category     string
	name         string
	discussionID string
}

// Builder accumulates test data and inserts it through the repositories.
// Rows are written directly. No signal is sent, so inserting a course
// does not create its discussion settings.
type Builder struct {
	t       testingT
	db      *sqlite.DB
	sites   []siteData
	courses []string
	blocks  []blockData
}

// NewBuilder creates a builder for the given test database.
func NewBuilder(t testingT, db *sqlite.DB) *Builder {
	t.Helper()
	return &Builder{t: t, db: db}
}

// WithSite adds a site. Unless NoConfiguration is given it gets an
// enabled configuration holding the SiteValue options.
func (b *Builder) WithSite(domain string, opts ...SiteOption) *Builder {
	s := siteData{domain: domain, name: domain, values: make(map[string]any)}
	for _, opt := range opts {
		opt(&s)
	}
	b.sites = append(b.sites, s)
	return b
}

// WithCourse adds a course run with its root block.
func (b *Builder) WithCourse(courseID string) *Builder {
	b.courses = append(b.courses, courseID)
	return b
}

// WithDiscussion adds a discussion block named name under the course root.
func (b *Builder) WithDiscussion(courseID, name, discussionID string) *Builder {
	b.blocks = append(b.blocks, blockData{courseID: courseID, category: course.CategoryDiscussion, name: name, discussionID: discussionID})
	return b
}

// Build inserts all accumulated data into the database.
func (b *Builder) Build() {
	b.t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	siteRepo := b.db.SiteRepository()
	for _, s := range b.sites {
		site := &sites.Site{Domain: s.domain, Name: s.name}
		require.NoError(b.t, siteRepo.CreateSite(ctx, site))
		if s.noConfig {
			continue
		}
		cfg := sites.NewConfiguration(site.ID)
		cfg.Enabled = !s.disabled
		for k, v := range s.values {
			cfg.Set(k, v)
		}
		require.NoError(b.t, siteRepo.SaveConfiguration(ctx, cfg))
	}

	courseRepo := b.db.CourseRepository()
	for _, id := range b.courses {
		key, err := course.ParseCourseKey(id)
		require.NoError(b.t, err)
		root := &modulestore.Block{Location: key.RootUsageKey(), Category: course.CategoryCourse, CreatedAt: now}
		require.NoError(b.t, courseRepo.CreateCourse(ctx, &modulestore.Course{Key: key, DisplayName: key.Course, CreatedAt: now}, root))
	}
	for _, blk := range b.blocks {
		key, err := course.ParseCourseKey(blk.courseID)
		require.NoError(b.t, err)
		parent := key.RootUsageKey()
		require.NoError(b.t, courseRepo.CreateBlock(ctx, &modulestore.Block{
			Location:     key.MakeUsageKey(blk.category, blk.name),
			Parent:       &parent,
			Category:     blk.category,
			DiscussionID: blk.discussionID,
			CreatedAt:    now,
		}))
	}
}
