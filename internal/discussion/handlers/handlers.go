// Package handlers connects the side effects of forum and course events
// to their signals: response notifications on new comments, profanity
// screening of posts, and the discussion-id map on course publish.
package handlers

import (
	"context"
	"errors"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/profanity"
	"github.com/zjrosen/discussions/internal/sites"
)

// EnableForumNotificationsForSiteKey is the site configuration value
// that turns response notifications on.
const EnableForumNotificationsForSiteKey = "enable_forum_notifications"

// SiteResolver resolves the site of the current request. A nil site with
// a nil error means there is none.
type SiteResolver interface {
	CurrentSite(ctx context.Context) (*sites.Site, error)
}

// SiteConfigurationLookup loads a site's configuration record.
type SiteConfigurationLookup interface {
	Configuration(ctx context.Context, site *sites.Site) (*sites.Configuration, error)
}

// MessageSender delivers the response notification of a comment.
type MessageSender interface {
	SendMessage(ctx context.Context, comment *discussion.Post, site *sites.Site) error
}

// CourseFlagChecker reports whether a course-scoped flag is on.
type CourseFlagChecker interface {
	IsEnabled(courseID string) bool
}

// ProfanityChecker screens post content.
type ProfanityChecker interface {
	CheckForProfanityAndReport(ctx context.Context, check profanity.Check) (*profanity.Result, error)
}

// DiscussionMapUpdater rebuilds a course's discussion-id map.
type DiscussionMapUpdater interface {
	UpdateDiscussionsMap(ctx context.Context, key course.CourseKey) error
}

// NotificationHandler sends response notifications for new comments on
// sites that opted in.
type NotificationHandler struct {
	sites   SiteResolver
	configs SiteConfigurationLookup
	sender  MessageSender
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(sites SiteResolver, configs SiteConfigurationLookup, sender MessageSender) *NotificationHandler {
	return &NotificationHandler{sites: sites, configs: configs, sender: sender}
}

// HandleCommentCreated is the comment_created receiver.
func (h *NotificationHandler) HandleCommentCreated(ctx context.Context, p discussion.PostPayload) error {
	postID := payloadPostID(p)

	site, err := h.sites.CurrentSite(ctx)
	if err != nil {
		return err
	}
	if site == nil {
		log.Info(log.CatNotify, "No current site, not sending notification about new thread", "post_id", postID)
		return nil
	}

	cfg, err := h.configs.Configuration(ctx, site)
	if errors.Is(err, sites.ErrConfigurationNotFound) {
		log.Info(log.CatNotify, "No site configuration, not sending notification about new thread", "post_id", postID, "site", site.Domain)
		return nil
	}
	if err != nil {
		return err
	}

	if !cfg.BoolValue(EnableForumNotificationsForSiteKey, false) {
		log.Info(log.CatNotify, "Discussion notifications not enabled for site, not sending notification about new thread",
			"post_id", postID, "site", site.Domain)
		return nil
	}

	return h.sender.SendMessage(ctx, p.Post, site)
}

// ProfanityHandler screens posts of courses with the checker flag on.
type ProfanityHandler struct {
	flag    CourseFlagChecker
	checker ProfanityChecker
}

// NewProfanityHandler creates a ProfanityHandler.
func NewProfanityHandler(flag CourseFlagChecker, checker ProfanityChecker) *ProfanityHandler {
	return &ProfanityHandler{flag: flag, checker: checker}
}

// HandlePost is the receiver for thread and comment creation and edits.
func (h *ProfanityHandler) HandlePost(ctx context.Context, p discussion.PostPayload) error {
	if p.Post == nil {
		log.Warn(log.CatProfanity, "post event without post", "sender", p.Sender)
		return nil
	}
	if !h.flag.IsEnabled(p.Post.CourseID) {
		log.Debug(log.CatProfanity, "profanity checker disabled for course", "course_id", p.Post.CourseID, "post_id", p.Post.ID)
		return nil
	}

	_, err := h.checker.CheckForProfanityAndReport(ctx, profanity.Check{
		PostID:    p.Post.ID,
		PostTitle: p.Post.Title,
		PostBody:  p.Post.Body,
		PostType:  string(p.Post.Type),
		CourseID:  p.Post.CourseID,
	})
	return err
}

func payloadPostID(p discussion.PostPayload) string {
	if p.Post == nil {
		return ""
	}
	return p.Post.ID
}
