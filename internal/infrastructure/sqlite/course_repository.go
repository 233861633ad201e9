package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/discussions/internal/course"
	"github.com/zjrosen/discussions/internal/modulestore"
)

const blockColumns = `location, course_id, parent, category, display_name, discussion_id, created_at`

// courseRepository implements modulestore.Repository using SQLite.
type courseRepository struct {
	db *sql.DB
}

func newCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{db: db}
}

var _ modulestore.Repository = (*courseRepository)(nil)

func scanBlock(scanner rowScanner) (*BlockModel, error) {
	var m BlockModel
	err := scanner.Scan(&m.Location, &m.CourseID, &m.Parent, &m.Category, &m.DisplayName, &m.DiscussionID, &m.CreatedAt)
	return &m, err
}

// CreateCourse inserts the course and its root block in one transaction.
func (r *courseRepository) CreateCourse(ctx context.Context, c *modulestore.Course, root *modulestore.Block) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO courses (course_id, org, course, run, display_name, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Key.String(), c.Key.Org, c.Key.Course, c.Key.Run, c.DisplayName, c.CreatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return modulestore.ErrCourseExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert course: %w", err)
	}
	if err := insertBlock(ctx, tx, root); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit course: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBlock(ctx context.Context, db execer, b *modulestore.Block) error {
	m := toBlockModel(b)
	_, err := db.ExecContext(ctx,
		`INSERT INTO course_blocks (`+blockColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Location, m.CourseID, m.Parent, m.Category, m.DisplayName, m.DiscussionID, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return modulestore.ErrBlockExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	return nil
}

func (r *courseRepository) FindCourse(ctx context.Context, key course.CourseKey) (*modulestore.Course, error) {
	var m CourseModel
	err := r.db.QueryRowContext(ctx,
		`SELECT course_id, display_name, created_at FROM courses WHERE course_id = ?`, key.String(),
	).Scan(&m.CourseID, &m.DisplayName, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &modulestore.CourseNotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find course: %w", err)
	}
	return m.toDomain()
}

func (r *courseRepository) ListCourses(ctx context.Context) ([]*modulestore.Course, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT course_id, display_name, created_at FROM courses ORDER BY course_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*modulestore.Course
	for rows.Next() {
		var m CourseModel
		if err := rows.Scan(&m.CourseID, &m.DisplayName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		c, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *courseRepository) CreateBlock(ctx context.Context, b *modulestore.Block) error {
	return insertBlock(ctx, r.db, b)
}

func (r *courseRepository) FindBlock(ctx context.Context, location course.UsageKey) (*modulestore.Block, error) {
	model, err := scanBlock(r.db.QueryRowContext(ctx,
		`SELECT `+blockColumns+` FROM course_blocks WHERE location = ?`, location.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &modulestore.BlockNotFoundError{Location: location}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find block: %w", err)
	}
	return model.toDomain()
}

func (r *courseRepository) ListBlocks(ctx context.Context, key course.CourseKey, category string) ([]*modulestore.Block, error) {
	query := `SELECT ` + blockColumns + ` FROM course_blocks WHERE course_id = ?`
	args := []any{key.String()}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*modulestore.Block
	for rows.Next() {
		model, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		b, err := model.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
