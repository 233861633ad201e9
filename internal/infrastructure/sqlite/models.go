package sqlite

import (
	"encoding/json"
	"errors"
	"time"

	sqlite3 "github.com/ncruces/go-sqlite3"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/discussion"
	"github.com/zjrosen/discussions/internal/modulestore"
	"github.com/zjrosen/discussions/internal/notify"
	"github.com/zjrosen/discussions/internal/profanity"
	"github.com/zjrosen/discussions/internal/sites"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY)
}

// SiteModel is a row of the sites table.
type SiteModel struct {
	ID     int64
	Domain string
	Name   string
}

func (m *SiteModel) toDomain() *sites.Site {
	return &sites.Site{ID: m.ID, Domain: m.Domain, Name: m.Name}
}

// ConfigurationModel is a row of site_configurations. Values is JSON.
type ConfigurationModel struct {
	ID        int64
	SiteID    int64
	Enabled   bool
	Values    string
	UpdatedAt int64 // Unix timestamp
}

func toConfigurationModel(c *sites.Configuration) (*ConfigurationModel, error) {
	values := c.Values
	if values == nil {
		values = map[string]any{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return &ConfigurationModel{
		ID:        c.ID,
		SiteID:    c.SiteID,
		Enabled:   c.Enabled,
		Values:    string(encoded),
		UpdatedAt: c.UpdatedAt.Unix(),
	}, nil
}

func (m *ConfigurationModel) toDomain() (*sites.Configuration, error) {
	values := map[string]any{}
	if m.Values != "" {
		if err := json.Unmarshal([]byte(m.Values), &values); err != nil {
			return nil, err
		}
	}
	return &sites.Configuration{
		ID:        m.ID,
		SiteID:    m.SiteID,
		Enabled:   m.Enabled,
		Values:    values,
		UpdatedAt: time.Unix(m.UpdatedAt, 0),
	}, nil
}

// SettingsModel is a row of course_discussion_settings.
type SettingsModel struct {
	ID                            int64
	CourseID                      string
	AlwaysDivideInlineDiscussions bool
	DivisionScheme                string
	DividedDiscussions            string // JSON array
	DiscussionsIDMap              string // JSON object
	UpdatedAt                     int64  // Unix timestamp
}

func toSettingsModel(s *discussion.CourseDiscussionSettings) (*SettingsModel, error) {
	divided := s.DividedDiscussions
	if divided == nil {
		divided = []string{}
	}
	idMap := s.DiscussionsIDMap
	if idMap == nil {
		idMap = map[string]string{}
	}
	dividedJSON, err := json.Marshal(divided)
	if err != nil {
		return nil, err
	}
	idMapJSON, err := json.Marshal(idMap)
	if err != nil {
		return nil, err
	}
	return &SettingsModel{
		ID:                            s.ID,
		CourseID:                      s.CourseID.String(),
		AlwaysDivideInlineDiscussions: s.AlwaysDivideInlineDiscussions,
		DivisionScheme:                string(s.DivisionScheme),
		DividedDiscussions:            string(dividedJSON),
		DiscussionsIDMap:              string(idMapJSON),
		UpdatedAt:                     s.UpdatedAt.Unix(),
	}, nil
}

func (m *SettingsModel) toDomain() (*discussion.CourseDiscussionSettings, error) {
	key, err := course.ParseCourseKey(m.CourseID)
	if err != nil {
		return nil, err
	}
	s := &discussion.CourseDiscussionSettings{
		ID:                            m.ID,
		CourseID:                      key,
		AlwaysDivideInlineDiscussions: m.AlwaysDivideInlineDiscussions,
		DivisionScheme:                discussion.DivisionScheme(m.DivisionScheme),
		DividedDiscussions:            []string{},
		DiscussionsIDMap:              map[string]string{},
		UpdatedAt:                     time.Unix(m.UpdatedAt, 0),
	}
	if err := json.Unmarshal([]byte(m.DividedDiscussions), &s.DividedDiscussions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(m.DiscussionsIDMap), &s.DiscussionsIDMap); err != nil {
		return nil, err
	}
	return s, nil
}

// CourseModel is a row of the courses table.
type CourseModel struct {
	CourseID    string
	DisplayName string
	CreatedAt   int64 // Unix timestamp
}

func (m *CourseModel) toDomain() (*modulestore.Course, error) {
	key, err := course.ParseCourseKey(m.CourseID)
	if err != nil {
		return nil, err
	}
	return &modulestore.Course{Key: key, DisplayName: m.DisplayName, CreatedAt: time.Unix(m.CreatedAt, 0)}, nil
}

// BlockModel is a row of course_blocks.
type BlockModel struct {
	Location     string
	CourseID     string
	Parent       *string // nullable
	Category     string
	DisplayName  string
	DiscussionID *string // nullable
	CreatedAt    int64   // Unix timestamp
}

func toBlockModel(b *modulestore.Block) *BlockModel {
	m := &BlockModel{
		Location:    b.Location.String(),
		CourseID:    b.Location.Course.String(),
		Category:    b.Category,
		DisplayName: b.DisplayName,
		CreatedAt:   b.CreatedAt.Unix(),
	}
	if b.Parent != nil {
		parent := b.Parent.String()
		m.Parent = &parent
	}
	if b.DiscussionID != "" {
		discussionID := b.DiscussionID
		m.DiscussionID = &discussionID
	}
	return m
}

func (m *BlockModel) toDomain() (*modulestore.Block, error) {
	location, err := course.ParseUsageKey(m.Location)
	if err != nil {
		return nil, err
	}
	b := &modulestore.Block{
		Location:    location,
		Category:    m.Category,
		DisplayName: m.DisplayName,
		CreatedAt:   time.Unix(m.CreatedAt, 0),
	}
	if m.Parent != nil {
		parent, err := course.ParseUsageKey(*m.Parent)
		if err != nil {
			return nil, err
		}
		b.Parent = &parent
	}
	if m.DiscussionID != nil {
		b.DiscussionID = *m.DiscussionID
	}
	return b, nil
}

// NotificationModel is a row of the notifications table.
type NotificationModel struct {
	ID              string
	RecipientUserID int64
	Topic           string
	PayloadJSON     string
	DedupeKey       string
	SiteID          *int64 // nullable
	CreatedAt       int64  // Unix timestamp
}

func toNotificationModel(n *notify.Notification) *NotificationModel {
	m := &NotificationModel{
		ID:              n.ID,
		RecipientUserID: n.RecipientUserID,
		Topic:           n.Topic,
		PayloadJSON:     n.PayloadJSON,
		DedupeKey:       n.DedupeKey,
		CreatedAt:       n.CreatedAt.Unix(),
	}
	if n.SiteID != 0 {
		siteID := n.SiteID
		m.SiteID = &siteID
	}
	return m
}

func (m *NotificationModel) toDomain() *notify.Notification {
	n := &notify.Notification{
		ID:              m.ID,
		RecipientUserID: m.RecipientUserID,
		Topic:           m.Topic,
		PayloadJSON:     m.PayloadJSON,
		DedupeKey:       m.DedupeKey,
		CreatedAt:       time.Unix(m.CreatedAt, 0).UTC(),
	}
	if m.SiteID != nil {
		n.SiteID = *m.SiteID
	}
	return n
}

// ReportModel is a row of profanity_reports.
type ReportModel struct {
	ID        int64
	PostID    string
	PostType  string
	CourseID  string
	Terms     string // JSON array
	CreatedAt int64  // Unix timestamp
}

func (m *ReportModel) toDomain() (*profanity.Report, error) {
	r := &profanity.Report{
		ID:        m.ID,
		PostID:    m.PostID,
		PostType:  m.PostType,
		CourseID:  m.CourseID,
		CreatedAt: time.Unix(m.CreatedAt, 0),
	}
	if err := json.Unmarshal([]byte(m.Terms), &r.Terms); err != nil {
		return nil, err
	}
	return r, nil
}
