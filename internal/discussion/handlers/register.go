package handlers

import (
	"time"

	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/log"
	"github.com/zjrosen/discussions/internal/modulestore"
	"github.com/zjrosen/discussions/internal/signals"
)

// Receiver uids. Connecting twice under the same uid is a no-op.
const (
	UIDSendMessage          = "discussion.handlers.send_message"
	UIDProfanityPrefix      = "discussion.handlers.profanity."
	UIDUpdateDiscussionsMap = "discussion.handlers.update_discussions_map"
)

// Deps are the collaborators of the handlers. A family whose
// collaborators are nil is not connected.
type Deps struct {
	Sites   SiteResolver
	Configs SiteConfigurationLookup
	Sender  MessageSender

	ProfanityFlag CourseFlagChecker
	Profanity     ProfanityChecker

	MapUpdater         DiscussionMapUpdater
	CoursePublishDelay time.Duration
}

// Registered holds the connected handlers.
type Registered struct {
	Notification  *NotificationHandler
	Profanity     *ProfanityHandler
	CoursePublish *CoursePublishHandler
}

// Close drains delayed course publish updates.
func (r *Registered) Close() {
	if r != nil && r.CoursePublish != nil {
		r.CoursePublish.Close()
	}
}

// Register connects every handler family with its collaborators to sigs
// and coursePublished.
func Register(sigs *discussion.Signals, coursePublished *signals.Signal[modulestore.CoursePublishedPayload], deps Deps) *Registered {
	r := &Registered{}

	if deps.Sites != nil && deps.Configs != nil && deps.Sender != nil {
		r.Notification = NewNotificationHandler(deps.Sites, deps.Configs, deps.Sender)
		sigs.CommentCreated.Connect(UIDSendMessage, r.Notification.HandleCommentCreated)
	} else {
		log.Warn(log.CatSignal, "notification handler not connected")
	}

	if deps.ProfanityFlag != nil && deps.Profanity != nil {
		r.Profanity = NewProfanityHandler(deps.ProfanityFlag, deps.Profanity)
		for _, sig := range ProfanitySignals(sigs) {
			sig.Connect(UIDProfanityPrefix+sig.Name(), r.Profanity.HandlePost)
		}
	} else {
		log.Warn(log.CatSignal, "profanity handler not connected")
	}

	if coursePublished != nil && deps.MapUpdater != nil {
		r.CoursePublish = NewCoursePublishHandler(deps.MapUpdater, deps.CoursePublishDelay)
		coursePublished.Connect(UIDUpdateDiscussionsMap, r.CoursePublish.HandleCoursePublished)
	} else {
		log.Warn(log.CatSignal, "course publish handler not connected")
	}

	return r
}

// ProfanitySignals are the post events screened for profanity.
func ProfanitySignals(sigs *discussion.Signals) []*signals.Signal[discussion.PostPayload] {
	return []*signals.Signal[discussion.PostPayload]{
		sigs.ThreadCreated, sigs.ThreadEdited, sigs.CommentCreated, sigs.CommentEdited,
	}
}
