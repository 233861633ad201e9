package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/discussions/internal/course"
)

// setupTestDB creates a migrated DB in a temp dir, closed at test end.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "Failed to create test database")
	t.Cleanup(func() { db.Close() })
	return db
}

func demoCourseKey(t *testing.T) course.CourseKey {
	t.Helper()
	key, err := course.NewCourseKey("edX", "DemoX", "Demo_Course")
	require.NoError(t, err)
	return key
}
