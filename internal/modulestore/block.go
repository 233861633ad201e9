// Package modulestore stores course structure and emits course_published
// whenever a course changes.
package modulestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/discussions/internal/course"
)

var (
	// ErrCourseExists is returned when creating a course key twice.
	ErrCourseExists = errors.New("course already exists")
	// ErrCourseNotFound is matched by CourseNotFoundError.
	ErrCourseNotFound = errors.New("course not found")
	// ErrBlockNotFound is matched by BlockNotFoundError.
	ErrBlockNotFound = errors.New("block not found")
	// ErrBlockExists is returned when a block location is already taken.
	ErrBlockExists = errors.New("block already exists")
)

// Course is a course run.
type Course struct {
	Key         course.CourseKey
	DisplayName string
	CreatedAt   time.Time
}

// Block is one node of the course tree. The course root has no parent.
type Block struct {
	Location     course.UsageKey
	Parent       *course.UsageKey
	Category     string
	DisplayName  string
	DiscussionID string
	CreatedAt    time.Time
}

// IsDiscussion reports whether b is an inline discussion block.
func (b *Block) IsDiscussion() bool {
	return b.Category == course.CategoryDiscussion
}

// CourseNotFoundError indicates an unknown course key.
type CourseNotFoundError struct {
	Key course.CourseKey
}

func (e *CourseNotFoundError) Error() string {
	return fmt.Sprintf("course not found: %s", e.Key)
}

func (e *CourseNotFoundError) Is(target error) bool {
	return target == ErrCourseNotFound
}

// BlockNotFoundError indicates an unknown block location.
type BlockNotFoundError struct {
	Location course.UsageKey
}

func (e *BlockNotFoundError) Error() string {
	return fmt.Sprintf("block not found: %s", e.Location)
}

func (e *BlockNotFoundError) Is(target error) bool {
	return target == ErrBlockNotFound
}

// Repository persists courses and their blocks.
type Repository interface {
	// CreateCourse stores c together with its root block. Returns
	// ErrCourseExists when the key is taken.
	CreateCourse(ctx context.Context, c *Course, root *Block) error
	FindCourse(ctx context.Context, key course.CourseKey) (*Course, error)
	ListCourses(ctx context.Context) ([]*Course, error)
	// CreateBlock returns ErrBlockExists when the location is taken.
	CreateBlock(ctx context.Context, b *Block) error
	FindBlock(ctx context.Context, location course.UsageKey) (*Block, error)
	// ListBlocks returns the blocks of a course in creation order. An
	// empty category returns every block.
	ListBlocks(ctx context.Context, key course.CourseKey, category string) ([]*Block, error)
}
