package discussion

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/zjrosen/discussions/internal/course"
)

// ErrSettingsNotFound is matched by SettingsNotFoundError.
var ErrSettingsNotFound = errors.New("course discussion settings not found")

// DivisionScheme controls how discussions are divided among learners.
type DivisionScheme string

const (
	DivisionSchemeNone            DivisionScheme = "none"
	DivisionSchemeCohort          DivisionScheme = "cohort"
	DivisionSchemeEnrollmentTrack DivisionScheme = "enrollment_track"
)

// CourseDiscussionSettings is the per-course discussion settings record.
type CourseDiscussionSettings struct {
	ID                            int64
	CourseID                      course.CourseKey
	AlwaysDivideInlineDiscussions bool
	DivisionScheme                DivisionScheme
	DividedDiscussions            []string
	// DiscussionsIDMap maps a discussion block's discussion id to the
	// string form of its block location.
	DiscussionsIDMap map[string]string
	UpdatedAt        time.Time
}

// NewCourseDiscussionSettings returns defaults for key.
func NewCourseDiscussionSettings(key course.CourseKey) *CourseDiscussionSettings {
	return &CourseDiscussionSettings{
		CourseID:           key,
		DivisionScheme:     DivisionSchemeNone,
		DividedDiscussions: []string{},
		DiscussionsIDMap:   map[string]string{},
	}
}

// SettingsNotFoundError indicates a course has no settings record yet.
type SettingsNotFoundError struct {
	CourseID string
}

func (e *SettingsNotFoundError) Error() string {
	return fmt.Sprintf("course discussion settings not found: %s", e.CourseID)
}

func (e *SettingsNotFoundError) Is(target error) bool {
	return target == ErrSettingsNotFound
}

// SettingsRepository persists CourseDiscussionSettings.
type SettingsRepository interface {
	// FindSettings returns a SettingsNotFoundError when the course has none.
	FindSettings(ctx context.Context, key course.CourseKey) (*CourseDiscussionSettings, error)
	// SaveSettings inserts or updates by course id and sets ID on insert.
	SaveSettings(ctx context.Context, settings *CourseDiscussionSettings) error
}

// GetOrCreateSettings loads the settings of key, persisting defaults when
// none exist yet.
func GetOrCreateSettings(ctx context.Context, repo SettingsRepository, key course.CourseKey) (*CourseDiscussionSettings, error) {
	settings, err := repo.FindSettings(ctx, key)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, ErrSettingsNotFound) {
		return nil, err
	}
	settings = NewCourseDiscussionSettings(key)
	if err := repo.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("creating discussion settings for %s: %w", key, err)
	}
	return settings, nil
}

// SetDiscussionsIDMap replaces the discussion-id map with a copy of m.
func (s *CourseDiscussionSettings) SetDiscussionsIDMap(m map[string]string) {
	copied := make(map[string]string, len(m))
	maps.Copy(copied, m)
	s.DiscussionsIDMap = copied
}
