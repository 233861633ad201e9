// Package notify turns new forum comments into outbox notifications for
// the author of the thread being answered.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/sites"
)

// TopicResponseNotification is the topic of comment-on-thread notifications.
const TopicResponseNotification = "discussion.response_notification"

const defaultListLimit = 50

var (
	// ErrNotFound indicates a notification record was not found.
	ErrNotFound = errors.New("notification not found")
	// ErrConflict indicates a write collided with an existing dedupe key.
	ErrConflict = errors.New("notification conflict")
	// ErrStoreNotConfigured indicates the service has no store.
	ErrStoreNotConfigured = errors.New("notification store is not configured")
)

// Notification is one queued message for a recipient.
type Notification struct {
	ID              string
	RecipientUserID int64
	Topic           string
	PayloadJSON     string
	DedupeKey       string
	SiteID          int64
	CreatedAt       time.Time
}

// Store persists the notification outbox.
type Store interface {
	// FindByDedupeKey returns ErrNotFound when no row matches.
	FindByDedupeKey(ctx context.Context, recipientUserID int64, dedupeKey string) (*Notification, error)
	// PutNotification returns ErrConflict on a duplicate dedupe key.
	PutNotification(ctx context.Context, n *Notification) error
	// ListByRecipient returns the newest notifications first.
	ListByRecipient(ctx context.Context, recipientUserID int64, limit int) ([]*Notification, error)
}

// MessageContext is the template context of a response notification.
type MessageContext struct {
	CourseID            string `json:"course_id"`
	CommentID           string `json:"comment_id"`
	CommentBody         string `json:"comment_body"`
	CommentAuthorID     int64  `json:"comment_author_id"`
	CommentCreatedAt    string `json:"comment_created_at"`
	ThreadID            string `json:"thread_id"`
	ThreadTitle         string `json:"thread_title"`
	ThreadAuthorID      int64  `json:"thread_author_id"`
	ThreadCreatedAt     string `json:"thread_created_at"`
	ThreadCommentableID string `json:"thread_commentable_id"`
	SiteID              int64  `json:"site_id"`
}

// BuildMessageContext collects the fields of a comment and its thread.
// comment.Thread must be set.
func BuildMessageContext(comment *discussion.Post, site *sites.Site) MessageContext {
	thread := comment.Thread
	mc := MessageContext{
		CourseID:            comment.CourseID,
		CommentID:           comment.ID,
		CommentBody:         comment.Body,
		CommentAuthorID:     comment.UserID,
		CommentCreatedAt:    formatTime(comment.CreatedAt),
		ThreadID:            thread.ID,
		ThreadTitle:         thread.Title,
		ThreadAuthorID:      thread.UserID,
		ThreadCreatedAt:     formatTime(thread.CreatedAt),
		ThreadCommentableID: thread.CommentableID,
	}
	if site != nil {
		mc.SiteID = site.ID
	}
	return mc
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Service queues response notifications.
type Service struct {
	store Store
	clock func() time.Time
	newID func() string
}

// NewService creates a Service. Nil clock and id generator default to
// time.Now and uuid.NewString.
func NewService(store Store, clock func() time.Time, newID func() string) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return &Service{store: store, clock: clock, newID: newID}
}

// SendMessage queues a response notification for the author of the
// thread comment belongs to. Comments without a thread and comments
// written by the thread author are skipped.
func (s *Service) SendMessage(ctx context.Context, comment *discussion.Post, site *sites.Site) error {
	if s == nil || s.store == nil {
		return ErrStoreNotConfigured
	}
	if comment == nil || comment.Thread == nil {
		log.Info(log.CatNotify, "skipping notification, comment has no thread", "comment_id", postID(comment))
		return nil
	}
	if comment.UserID == comment.Thread.UserID {
		log.Info(log.CatNotify, "skipping notification, author answered own thread", "comment_id", comment.ID)
		return nil
	}

	payload, err := json.Marshal(BuildMessageContext(comment, site))
	if err != nil {
		return fmt.Errorf("encoding message context: %w", err)
	}

	n := &Notification{
		ID:              s.newID(),
		RecipientUserID: comment.Thread.UserID,
		Topic:           TopicResponseNotification,
		PayloadJSON:     string(payload),
		DedupeKey:       "comment:" + comment.ID,
		CreatedAt:       s.clock().UTC(),
	}
	if site != nil {
		n.SiteID = site.ID
	}

	_, err = s.put(ctx, n)
	if err != nil {
		return err
	}
	log.Info(log.CatNotify, "response notification queued", "comment_id", comment.ID,
		"thread_id", comment.Thread.ID, "recipient", strconv.FormatInt(n.RecipientUserID, 10), "site", site.String())
	return nil
}

// put stores n unless the recipient already holds its dedupe key, in
// which case the existing row is returned.
func (s *Service) put(ctx context.Context, n *Notification) (*Notification, error) {
	existing, err := s.store.FindByDedupeKey(ctx, n.RecipientUserID, n.DedupeKey)
	if err == nil {
		log.Debug(log.CatNotify, "notification already queued", "dedupe_key", n.DedupeKey)
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.store.PutNotification(ctx, n); err != nil {
		if !errors.Is(err, ErrConflict) {
			return nil, err
		}
		existing, lookupErr := s.store.FindByDedupeKey(ctx, n.RecipientUserID, n.DedupeKey)
		if lookupErr != nil {
			return nil, err
		}
		return existing, nil
	}
	return n, nil
}

// ListOutbox returns the newest notifications queued for recipient.
func (s *Service) ListOutbox(ctx context.Context, recipientUserID int64, limit int) ([]*Notification, error) {
	if s == nil || s.store == nil {
		return nil, ErrStoreNotConfigured
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.store.ListByRecipient(ctx, recipientUserID, limit)
}

func postID(p *discussion.Post) string {
	if p == nil {
		return ""
	}
	return p.ID
}
