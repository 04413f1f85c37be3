package notifications

import (
	"time"

	"furrchum-vet/internal/ports/notify"
)

type Notification struct {
	ID     string
	UserID string

	Type    notify.MessageType
	Title   string
	Message string

	Read      bool
	Dismissed bool

	CreatedAt time.Time
	ReadAt    *time.Time
}
