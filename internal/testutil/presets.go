package testutil

// DemoCourseID is the course most fixtures live in.
const DemoCourseID = "course-v1:edX+DemoX+Demo_Course"

// ForumNotificationsKey is the site value that opts a site into
// response notifications.
const ForumNotificationsKey = "enable_forum_notifications"

// WithOptedInSite adds a site with forum notifications on.
func (b *Builder) WithOptedInSite(domain string) *Builder {
	return b.WithSite(domain, SiteValue(ForumNotificationsKey, true))
}

// WithDemoCourse adds DemoCourseID with one discussion block whose
// discussion id is "discussion1".
func (b *Builder) WithDemoCourse() *Builder {
	return b.WithCourse(DemoCourseID).WithDiscussion(DemoCourseID, "d1", "discussion1")
}
