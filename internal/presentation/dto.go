package presentation

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/modulestore"
	"github.com/zjrosen/discussions/internal/notify"
	"github.com/zjrosen/discussions/internal/profanity"
	"github.com/zjrosen/discussions/internal/sites"
)

// SiteDTO represents a site and its configuration for presentation
type SiteDTO struct {
	ID      int64          `json:"id"`
	Domain  string         `json:"domain"`
	Name    string         `json:"name"`
	Enabled *bool          `json:"enabled,omitempty"` // absent when the site has no configuration
	Values  map[string]any `json:"values,omitempty"`
}

// FromDomainSite converts a site and its optional configuration to a DTO.
func FromDomainSite(site *sites.Site, cfg *sites.Configuration) SiteDTO {
	dto := SiteDTO{ID: site.ID, Domain: site.Domain, Name: site.Name}
	if cfg != nil {
		enabled := cfg.Enabled
		dto.Enabled = &enabled
		dto.Values = cfg.Values
	}
	return dto
}

// CourseDTO represents a course run.
type CourseDTO struct {
	CourseID    string    `json:"course_id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// FromDomainCourse converts a course to a DTO.
func FromDomainCourse(c *modulestore.Course) CourseDTO {
	return CourseDTO{CourseID: c.Key.String(), DisplayName: c.DisplayName, CreatedAt: c.CreatedAt}
}

// FromDomainCourses converts a slice of courses to DTOs.
func FromDomainCourses(courses []*modulestore.Course) []CourseDTO {
	dtos := make([]CourseDTO, len(courses))
	for i, c := range courses {
		dtos[i] = FromDomainCourse(c)
	}
	return dtos
}

// BlockDTO represents one block of a course tree.
type BlockDTO struct {
	Location     string `json:"location"`
	Parent       string `json:"parent,omitempty"`
	Category     string `json:"category"`
	DisplayName  string `json:"display_name,omitempty"`
	DiscussionID string `json:"discussion_id,omitempty"`
}

// FromDomainBlock converts a block to a DTO.
func FromDomainBlock(b *modulestore.Block) BlockDTO {
	dto := BlockDTO{
		Location:     b.Location.String(),
		Category:     b.Category,
		DisplayName:  b.DisplayName,
		DiscussionID: b.DiscussionID,
	}
	if b.Parent != nil {
		dto.Parent = b.Parent.String()
	}
	return dto
}

// SettingsDTO represents the discussion settings of a course.
type SettingsDTO struct {
	CourseID                      string            `json:"course_id"`
	AlwaysDivideInlineDiscussions bool              `json:"always_divide_inline_discussions"`
	DivisionScheme                string            `json:"division_scheme"`
	DividedDiscussions            []string          `json:"divided_discussions"`
	DiscussionsIDMap              map[string]string `json:"discussions_id_map"`
}

// FromDomainSettings converts course discussion settings to a DTO.
// Nil collections render as empty ones.
func FromDomainSettings(s *discussion.CourseDiscussionSettings) SettingsDTO {
	dto := SettingsDTO{
		CourseID:                      s.CourseID.String(),
		AlwaysDivideInlineDiscussions: s.AlwaysDivideInlineDiscussions,
		DivisionScheme:                string(s.DivisionScheme),
		DividedDiscussions:            s.DividedDiscussions,
		DiscussionsIDMap:              s.DiscussionsIDMap,
	}
	if dto.DividedDiscussions == nil {
		dto.DividedDiscussions = []string{}
	}
	if dto.DiscussionsIDMap == nil {
		dto.DiscussionsIDMap = map[string]string{}
	}
	return dto
}

// NotificationDTO represents one outbox entry. The payload is embedded as
// raw JSON.
type NotificationDTO struct {
	ID              string          `json:"id"`
	RecipientUserID int64           `json:"recipient_user_id"`
	Topic           string          `json:"topic"`
	DedupeKey       string          `json:"dedupe_key"`
	SiteID          int64           `json:"site_id,omitempty"`
	Payload         json.RawMessage `json:"payload"`
	CreatedAt       time.Time       `json:"created_at"`
}

// FromDomainNotifications converts outbox entries to DTOs.
func FromDomainNotifications(ns []*notify.Notification) []NotificationDTO {
	dtos := make([]NotificationDTO, len(ns))
	for i, n := range ns {
		payload := json.RawMessage(n.PayloadJSON)
		if !json.Valid(payload) {
			payload, _ = json.Marshal(n.PayloadJSON)
		}
		dtos[i] = NotificationDTO{
			ID:              n.ID,
			RecipientUserID: n.RecipientUserID,
			Topic:           n.Topic,
			DedupeKey:       n.DedupeKey,
			SiteID:          n.SiteID,
			Payload:         payload,
			CreatedAt:       n.CreatedAt,
		}
	}
	return dtos
}

// ReportDTO represents a profanity report.
type ReportDTO struct {
	ID        int64     `json:"id"`
	PostID    string    `json:"post_id"`
	PostType  string    `json:"post_type"`
	CourseID  string    `json:"course_id"`
	Terms     []string  `json:"terms"`
	CreatedAt time.Time `json:"created_at"`
}

// FromDomainReports converts reports to DTOs.
func FromDomainReports(reports []*profanity.Report) []ReportDTO {
	dtos := make([]ReportDTO, len(reports))
	for i, r := range reports {
		dtos[i] = ReportDTO{
			ID:        r.ID,
			PostID:    r.PostID,
			PostType:  r.PostType,
			CourseID:  r.CourseID,
			Terms:     r.Terms,
			CreatedAt: r.CreatedAt,
		}
	}
	return dtos
}

// FlagDTO represents one flag value, global when CourseID is empty.
type FlagDTO struct {
	Name     string `json:"name"`
	CourseID string `json:"course_id,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// FromFlagValues flattens global and per-course values into DTOs sorted
// by name, globals before course values.
func FromFlagValues(global map[string]bool, courses map[string]map[string]bool) []FlagDTO {
	dtos := make([]FlagDTO, 0, len(global))
	for name, enabled := range global {
		dtos = append(dtos, FlagDTO{Name: name, Enabled: enabled})
	}
	for courseID, values := range courses {
		for name, enabled := range values {
			dtos = append(dtos, FlagDTO{Name: name, CourseID: courseID, Enabled: enabled})
		}
	}
	sort.Slice(dtos, func(i, j int) bool {
		if dtos[i].Name != dtos[j].Name {
			return dtos[i].Name < dtos[j].Name
		}
		return dtos[i].CourseID < dtos[j].CourseID
	})
	return dtos
}

// DispatchDTO is the outcome of sending one signal.
type DispatchDTO struct {
	Signal string `json:"signal"`
	PostID string `json:"post_id,omitempty"`
	Error  string `json:"error,omitempty"`
}
