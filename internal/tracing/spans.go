package tracing

// Span attribute keys used by signal dispatch and its receivers.
const (
	AttrSignalName   = "signal.name"
	AttrSignalSender = "signal.sender"
	AttrReceiverUID  = "signal.receiver.uid"
	AttrPostID       = "discussion.post.id"
	AttrPostType     = "discussion.post.type"
	AttrCourseID     = "course.id"
	AttrSiteDomain   = "site.domain"
)

// SpanPrefixSignal prefixes receiver spans: signal.comment_created.
const SpanPrefixSignal = "signal."
