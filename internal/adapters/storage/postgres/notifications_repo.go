package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"furrchum-vet/internal/domain/notifications"
	"furrchum-vet/internal/ports/notify"
)

type NotificationsRepo struct {
	db *sql.DB
}

func NewNotificationsRepo(db *sql.DB) *NotificationsRepo {
	return &NotificationsRepo{db: db}
}

const notificationColumns = `id, user_id, type, title, message, read, dismissed, created_at, read_at`

func (r *NotificationsRepo) Create(ctx context.Context, n notifications.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		n.ID, n.UserID, string(n.Type), n.Title, n.Message,
		n.Read, n.Dismissed, n.CreatedAt, toNullTime(n.ReadAt),
	)
	return err
}

func (r *NotificationsRepo) GetByID(ctx context.Context, id string) (notifications.Notification, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notifications.Notification{}, notifications.ErrNotFound
		}
		return notifications.Notification{}, err
	}
	return n, nil
}

func (r *NotificationsRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]notifications.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND NOT dismissed AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notifications.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationsRepo) Update(ctx context.Context, n notifications.Notification) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = $2, dismissed = $3, read_at = $4 WHERE id = $1
	`, n.ID, n.Read, n.Dismissed, toNullTime(n.ReadAt))
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

func (r *NotificationsRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = TRUE, read_at = $2
		WHERE user_id = $1 AND NOT read AND NOT dismissed
	`, userID, at)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanNotification(s scanner) (notifications.Notification, error) {
	var n notifications.Notification
	var typ string
	var readAt sql.NullTime
	if err := s.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &n.Read, &n.Dismissed, &n.CreatedAt, &readAt); err != nil {
		return notifications.Notification{}, err
	}
	n.Type = notify.MessageType(typ)
	n.ReadAt = fromNullTime(readAt)
	return n, nil
}
