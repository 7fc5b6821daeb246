package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/checked/models"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, playerID string, unreadOnly bool, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, playerID string) (int, error)
	MarkRead(ctx context.Context, playerID, id string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, playerID string) (int64, error)
}

type sqliteNotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &sqliteNotificationRepository{db: db}
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	n := &models.Notification{}
	var data string
	if err := row.Scan(&n.ID, &n.PlayerID, &n.Type, &n.Title, &n.Body, &data, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	if data == "" {
		data = "{}"
	}
	n.Data = []byte(data)
	return n, nil
}

func (r *sqliteNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	n.CreatedAt = now()
	data := string(n.Data)
	if data == "" {
		data = "{}"
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, player_id, type, title, body, data, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		n.ID, n.PlayerID, n.Type, n.Title, n.Body, data, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepository) List(ctx context.Context, playerID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := `SELECT id, player_id, type, title, body, data, is_read, created_at
		FROM notifications WHERE player_id = ?`
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	rows, err := r.db.QueryContext(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *sqliteNotificationRepository) CountUnread(ctx context.Context, playerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE player_id = ? AND is_read = 0`, playerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return n, nil
}

// MarkRead only touches notifications owned by playerID.
func (r *sqliteNotificationRepository) MarkRead(ctx context.Context, playerID, id string) (*models.Notification, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id = ? AND player_id = ?`, id, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	if err := checkAffectedRows(result, ErrNotificationNotFound); err != nil {
		return nil, err
	}
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		`SELECT id, player_id, type, title, body, data, is_read, created_at FROM notifications WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to reload notification: %w", err)
	}
	return n, nil
}

func (r *sqliteNotificationRepository) MarkAllRead(ctx context.Context, playerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE player_id = ? AND is_read = 0`, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}
