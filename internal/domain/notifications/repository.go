package notifications

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n Notification) error
	GetByID(ctx context.Context, id string) (Notification, error)
	// ListByUser excluye las descartadas y ordena por created_at desc.
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error)
	Update(ctx context.Context, n Notification) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
}
