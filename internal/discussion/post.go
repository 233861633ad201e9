// Package discussion holds the forum records signals carry, the set of
// discussion signals, and per-course discussion settings.
package discussion

import "time"

// PostType distinguishes threads from comments.
type PostType string

const (
	PostTypeThread  PostType = "thread"
	PostTypeComment PostType = "comment"
)

// User is the acting user of a forum event.
type User struct {
	ID       int64
	Username string
}

// Post is a thread or a comment as reported by the forum service.
// Comments carry their parent thread.
type Post struct {
	ID            string
	Type          PostType
	Title         string
	Body          string
	CourseID      string
	UserID        int64
	CommentableID string
	CreatedAt     time.Time
	Thread        *Post
}

// PostPayload is the payload of every thread and comment signal.
type PostPayload struct {
	Sender string
	User   User
	Post   *Post
}
