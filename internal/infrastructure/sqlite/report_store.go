package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/zjrosen/discussions/internal/profanity"
)

// reportStore implements profanity.ReportStore using SQLite.
type reportStore struct {
	db *sql.DB
}

func newReportStore(db *sql.DB) *reportStore {
	return &reportStore{db: db}
}

var _ profanity.ReportStore = (*reportStore)(nil)

func (s *reportStore) SaveReport(ctx context.Context, r *profanity.Report) error {
	terms := r.Terms
	if terms == nil {
		terms = []string{}
	}
	encoded, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("failed to encode report terms: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO profanity_reports (post_id, post_type, course_id, terms, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.PostID, r.PostType, r.CourseID, string(encoded), r.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	return nil
}

// ListReports returns reports newest first. An empty courseID lists all.
func (s *reportStore) ListReports(ctx context.Context, courseID string) ([]*profanity.Report, error) {
	query := `SELECT id, post_id, post_type, course_id, terms, created_at FROM profanity_reports`
	var args []any
	if courseID != "" {
		query += ` WHERE course_id = ?`
		args = append(args, courseID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*profanity.Report
	for rows.Next() {
		var m ReportModel
		if err := rows.Scan(&m.ID, &m.PostID, &m.PostType, &m.CourseID, &m.Terms, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
