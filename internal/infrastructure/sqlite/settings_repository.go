package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/discussion"
)

// settingsRepository implements discussion.SettingsRepository using SQLite.
type settingsRepository struct {
	db  *sql.DB
	now func() time.Time
}

func newSettingsRepository(db *sql.DB) *settingsRepository {
	return &settingsRepository{db: db, now: time.Now}
}

var _ discussion.SettingsRepository = (*settingsRepository)(nil)

func (r *settingsRepository) FindSettings(ctx context.Context, key course.CourseKey) (*discussion.CourseDiscussionSettings, error) {
	var m SettingsModel
	err := r.db.QueryRowContext(ctx,
		`SELECT id, course_id, always_divide_inline_discussions, division_scheme, divided_discussions, discussions_id_map, updated_at
		 FROM course_discussion_settings WHERE course_id = ?`, key.String(),
	).Scan(&m.ID, &m.CourseID, &m.AlwaysDivideInlineDiscussions, &m.DivisionScheme,
		&m.DividedDiscussions, &m.DiscussionsIDMap, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &discussion.SettingsNotFoundError{CourseID: key.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find discussion settings: %w", err)
	}
	settings, err := m.toDomain()
	if err != nil {
		return nil, fmt.Errorf("failed to decode discussion settings: %w", err)
	}
	return settings, nil
}

// SaveSettings upserts on course_id.
func (r *settingsRepository) SaveSettings(ctx context.Context, settings *discussion.CourseDiscussionSettings) error {
	settings.UpdatedAt = r.now()
	m, err := toSettingsModel(settings)
	if err != nil {
		return fmt.Errorf("failed to encode discussion settings: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO course_discussion_settings
			(course_id, always_divide_inline_discussions, division_scheme, divided_discussions, discussions_id_map, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(course_id) DO UPDATE SET
			always_divide_inline_discussions = excluded.always_divide_inline_discussions,
			division_scheme = excluded.division_scheme,
			divided_discussions = excluded.divided_discussions,
			discussions_id_map = excluded.discussions_id_map,
			updated_at = excluded.updated_at
		 RETURNING id`,
		m.CourseID, m.AlwaysDivideInlineDiscussions, m.DivisionScheme, m.DividedDiscussions, m.DiscussionsIDMap, m.UpdatedAt,
	)
	if err := row.Scan(&settings.ID); err != nil {
		return fmt.Errorf("failed to save discussion settings: %w", err)
	}
	return nil
}
