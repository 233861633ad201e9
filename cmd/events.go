package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zjrosen/discussions/internal/app"
	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/modulestore"
	"github.com/zjrosen/discussions/internal/presentation"
)

// eventSender identifies CLI dispatches in signal payloads.
const eventSender = "discussions-cli"

// event is one line of the listen stream.
//
//	{"signal":"comment_created","domain":"example.com","user":{"id":8},
//	 "post":{"id":"c1","type":"comment","course_id":"course-v1:edX+DemoX+Demo_Course",
//	         "user_id":8,"body":"...","thread":{"id":"t1","user_id":7}}}
//	{"signal":"course_published","course_id":"course-v1:edX+DemoX+Demo_Course"}
type event struct {
	Signal   string     `json:"signal"`
	Sender   string     `json:"sender,omitempty"`
	Domain   string     `json:"domain,omitempty"`
	User     eventUser  `json:"user"`
	Post     *eventPost `json:"post,omitempty"`
	CourseID string     `json:"course_id,omitempty"`
}

type eventUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type eventPost struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title,omitempty"`
	Body          string     `json:"body,omitempty"`
	CourseID      string     `json:"course_id"`
	UserID        int64      `json:"user_id"`
	CommentableID string     `json:"commentable_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	Thread        *eventPost `json:"thread,omitempty"`
}

func (p *eventPost) toDomain() *discussion.Post {
	if p == nil {
		return nil
	}
	return &discussion.Post{
		ID:            p.ID,
		Type:          discussion.PostType(p.Type),
		Title:         p.Title,
		Body:          p.Body,
		CourseID:      p.CourseID,
		UserID:        p.UserID,
		CommentableID: p.CommentableID,
		CreatedAt:     p.CreatedAt,
		Thread:        p.Thread.toDomain(),
	}
}

func decodeEvent(line []byte) (event, error) {
	var ev event
	if err := json.Unmarshal(line, &ev); err != nil {
		return ev, fmt.Errorf("decoding event: %w", err)
	}
	if ev.Signal == "" {
		return ev, fmt.Errorf("decoding event: signal is required")
	}
	return ev, nil
}

// dispatchEvent sends ev in its own request context and reports the outcome.
func dispatchEvent(ctx context.Context, a *app.App, ev event) presentation.DispatchDTO {
	out := presentation.DispatchDTO{Signal: ev.Signal}
	reqCtx := a.RequestContext(ctx, ev.Domain)

	if ev.Signal == modulestore.SignalCoursePublished {
		key, err := course.ParseCourseKey(ev.CourseID)
		if err != nil {
			out.Error = err.Error()
			return out
		}
		a.Modulestore.Publish(reqCtx, key)
		return out
	}

	if ev.Post == nil {
		out.Error = "post is required"
		return out
	}
	post := ev.Post.toDomain()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	out.PostID = post.ID

	sender := ev.Sender
	if sender == "" {
		sender = eventSender
	}
	payload := discussion.PostPayload{
		Sender: sender,
		User:   discussion.User{ID: ev.User.ID, Username: ev.User.Username},
		Post:   post,
	}
	if err := a.Dispatch(reqCtx, ev.Signal, payload); err != nil {
		out.Error = err.Error()
	}
	return out
}
