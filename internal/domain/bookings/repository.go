package bookings

import (
	"context"
	"errors"
	"time"
)

// Sentinels que deben devolver los adapters de storage.
var (
	ErrRecordNotFound = errors.New("booking record not found")
	ErrSlotTaken      = errors.New("slot already held")
	ErrStaleState     = errors.New("booking status changed concurrently")
)

type ListFilter struct {
	Statuses []Status
	Kind     Kind
	PetID    string
	Limit    int
}

// Repository persiste bookings. La unicidad (provider, date, time) entre bookings
// no cancelados se garantiza acá de forma atómica, no en el Manager.
type Repository interface {
	// Insert falla con ErrSlotTaken si otro booking no cancelado ocupa el slot.
	Insert(ctx context.Context, b Booking) error
	GetByID(ctx context.Context, id string) (Booking, error)
	ListByOwner(ctx context.Context, ownerUserID string, filter ListFilter) ([]Booking, error)
	ListHeldByProvider(ctx context.Context, providerID string) ([]Booking, error)

	// Transition aplica from->to solo si el status actual es from (si no, ErrStaleState).
	Transition(ctx context.Context, id string, from, to Status, at time.Time) (Booking, error)

	// Reschedule cancela oldID e inserta next como una unidad: o ambos o ninguno.
	Reschedule(ctx context.Context, oldID string, next Booking, at time.Time) error
}
