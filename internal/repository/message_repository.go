package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/src-portal/internal/model"
)

// NotificationRepo stores in-app notifications.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Create stores one notification per recipient in a single INSERT.
func (r *NotificationRepo) Create(ctx context.Context, userIDs []uint64, subject, body string) error {
	if len(userIDs) == 0 {
		return nil
	}
	q := "INSERT INTO notifications (user_id, subject, body) VALUES "
	args := make([]any, 0, len(userIDs)*3)
	for i, id := range userIDs {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?)"
		args = append(args, id, subject, body)
	}
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}
	return nil
}

// ListForUser returns a user's notifications, newest first.
func (r *NotificationRepo) ListForUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, user_id, subject, body, read_at, created_at FROM notifications WHERE user_id = ? ORDER BY id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Subject, &n.Body, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := readAt.Time
			n.ReadAt = &t
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepo) CountUnread(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read_at IS NULL", userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks a notification read.  Notifications belonging to another
// user are reported as ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE notifications SET read_at = COALESCE(read_at, UTC_TIMESTAMP()) WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return affectedOne(res)
}

// ChatRepo stores public chat messages.
type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo { return &ChatRepo{db: db} }

// Post appends a chat message and returns its ID.
func (r *ChatRepo) Post(ctx context.Context, userID uint64, body string) (uint64, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO chat_messages (user_id, body) VALUES (?, ?)", userID, body)
	if err != nil {
		return 0, fmt.Errorf("insert chat message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Since returns up to limit messages with an id greater than after, in
// ascending id order.
func (r *ChatRepo) Since(ctx context.Context, after uint64, limit int) ([]model.ChatMessage, error) {
	const q = `SELECT m.id, m.user_id, u.username, m.body, m.created_at
	           FROM chat_messages m JOIN users u ON u.id = m.user_id
	           WHERE m.id > ? ORDER BY m.id ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, after, limit)
	if err != nil {
		return nil, fmt.Errorf("poll chat: %w", err)
	}
	defer rows.Close()
	out := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Username, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
