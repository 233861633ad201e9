package discussion

import (
	"github.com/zjrosen/discussions/internal/signals"
)

// Signal names emitted by the forum layer.
const (
	SignalThreadCreated   = "thread_created"
	SignalThreadEdited    = "thread_edited"
	SignalThreadDeleted   = "thread_deleted"
	SignalThreadVoted     = "thread_voted"
	SignalCommentCreated  = "comment_created"
	SignalCommentEdited   = "comment_edited"
	SignalCommentDeleted  = "comment_deleted"
	SignalCommentVoted    = "comment_voted"
	SignalCommentEndorsed = "comment_endorsed"
)

// Signals is the set of forum signals shared by senders and handlers.
type Signals struct {
	ThreadCreated   *signals.Signal[PostPayload]
	ThreadEdited    *signals.Signal[PostPayload]
	ThreadDeleted   *signals.Signal[PostPayload]
	ThreadVoted     *signals.Signal[PostPayload]
	CommentCreated  *signals.Signal[PostPayload]
	CommentEdited   *signals.Signal[PostPayload]
	CommentDeleted  *signals.Signal[PostPayload]
	CommentVoted    *signals.Signal[PostPayload]
	CommentEndorsed *signals.Signal[PostPayload]
}

// NewSignals creates every forum signal with no receivers.
func NewSignals() *Signals {
	return &Signals{
		ThreadCreated:   signals.New[PostPayload](SignalThreadCreated),
		ThreadEdited:    signals.New[PostPayload](SignalThreadEdited),
		ThreadDeleted:   signals.New[PostPayload](SignalThreadDeleted),
		ThreadVoted:     signals.New[PostPayload](SignalThreadVoted),
		CommentCreated:  signals.New[PostPayload](SignalCommentCreated),
		CommentEdited:   signals.New[PostPayload](SignalCommentEdited),
		CommentDeleted:  signals.New[PostPayload](SignalCommentDeleted),
		CommentVoted:    signals.New[PostPayload](SignalCommentVoted),
		CommentEndorsed: signals.New[PostPayload](SignalCommentEndorsed),
	}
}

// All returns every signal in declaration order.
func (s *Signals) All() []*signals.Signal[PostPayload] {
	return []*signals.Signal[PostPayload]{
		s.ThreadCreated, s.ThreadEdited, s.ThreadDeleted, s.ThreadVoted,
		s.CommentCreated, s.CommentEdited, s.CommentDeleted, s.CommentVoted, s.CommentEndorsed,
	}
}

// ByName looks a signal up by its wire name.
func (s *Signals) ByName(name string) (*signals.Signal[PostPayload], bool) {
	for _, sig := range s.All() {
		if sig.Name() == name {
			return sig, true
		}
	}
	return nil, false
}

// Close releases every signal's observers.
func (s *Signals) Close() {
	for _, sig := range s.All() {
		sig.Close()
	}
}
