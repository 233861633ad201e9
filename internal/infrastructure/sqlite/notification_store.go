package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zjrosen/discussions/internal/notify"
)

const notificationColumns = `id, recipient_user_id, topic, payload_json, dedupe_key, site_id, created_at`

// notificationStore implements notify.Store using SQLite.
type notificationStore struct {
	db *sql.DB
}

func newNotificationStore(db *sql.DB) *notificationStore {
	return &notificationStore{db: db}
}

var _ notify.Store = (*notificationStore)(nil)

func scanNotification(scanner rowScanner) (*NotificationModel, error) {
	var m NotificationModel
	err := scanner.Scan(&m.ID, &m.RecipientUserID, &m.Topic, &m.PayloadJSON, &m.DedupeKey, &m.SiteID, &m.CreatedAt)
	return &m, err
}

func (s *notificationStore) FindByDedupeKey(ctx context.Context, recipientUserID int64, dedupeKey string) (*notify.Notification, error) {
	model, err := scanNotification(s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE recipient_user_id = ? AND dedupe_key = ? AND dedupe_key <> ''`,
		recipientUserID, dedupeKey,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notify.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return model.toDomain(), nil
}

func (s *notificationStore) PutNotification(ctx context.Context, n *notify.Notification) error {
	m := toNotificationModel(n)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.RecipientUserID, m.Topic, m.PayloadJSON, m.DedupeKey, m.SiteID, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return notify.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *notificationStore) ListByRecipient(ctx context.Context, recipientUserID int64, limit int) ([]*notify.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE recipient_user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		recipientUserID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*notify.Notification
	for rows.Next() {
		model, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, model.toDomain())
	}
	return out, rows.Err()
}
