package testutil

import (
	"time"

	"github.com/zjrosen/discussions/internal/discussion"
)

// PostOption configures a post built by Thread or Comment.
type PostOption func(*discussion.Post)

// Title sets the post title.
func Title(title string) PostOption {
	return func(p *discussion.Post) { p.Title = title }
}

// Body sets the post body.
func Body(body string) PostOption {
	return func(p *discussion.Post) { p.Body = body }
}

// Author sets the author user id.
func Author(userID int64) PostOption {
	return func(p *discussion.Post) { p.UserID = userID }
}

// InCourse sets the course id.
func InCourse(courseID string) PostOption {
	return func(p *discussion.Post) { p.CourseID = courseID }
}

// Commentable sets the discussion id the post belongs to.
func Commentable(id string) PostOption {
	return func(p *discussion.Post) { p.CommentableID = id }
}

// CreatedAt sets the creation time.
func CreatedAt(t time.Time) PostOption {
	return func(p *discussion.Post) { p.CreatedAt = t }
}

// Thread builds a thread in DemoCourseID by user 1.
func Thread(id string, opts ...PostOption) *discussion.Post {
	p := &discussion.Post{
		ID:        id,
		Type:      discussion.PostTypeThread,
		Title:     id,
		CourseID:  DemoCourseID,
		UserID:    1,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Comment builds a comment on thread by user 2, in the thread's course.
func Comment(id string, thread *discussion.Post, opts ...PostOption) *discussion.Post {
	p := &discussion.Post{
		ID:        id,
		Type:      discussion.PostTypeComment,
		Body:      id,
		UserID:    2,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Thread:    thread,
	}
	if thread != nil {
		p.CourseID = thread.CourseID
		p.CommentableID = thread.CommentableID
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Payload wraps post as sent by its author.
func Payload(post *discussion.Post) discussion.PostPayload {
	return discussion.PostPayload{
		Sender: "testutil",
		User:   discussion.User{ID: post.UserID},
		Post:   post,
	}
}

// siteData holds a site to be inserted.
type siteData struct {
	domain   string
	name     string
	noConfig bool
	disabled bool
	values   map[string]any
}

// SiteOption configures a site during builder setup.
type SiteOption func(*siteData)

// SiteName sets the display name.
func SiteName(name string) SiteOption {
	return func(s *siteData) { s.name = name }
}

// SiteValue stores one configuration value.
func SiteValue(key string, value any) SiteOption {
	return func(s *siteData) { s.values[key] = value }
}

// SiteDisabled stores the configuration switched off.
func SiteDisabled() SiteOption {
	return func(s *siteData) { s.disabled = true }
}

// NoConfiguration inserts the site without a configuration record.
func NoConfiguration() SiteOption {
	return func(s *siteData) { s.noConfig = true }
}
