package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"furrchum-vet/internal/domain/bookings"
)

// bookingRepo guarda la unicidad (provider, date, time) bajo un único lock,
// que es lo que en Postgres hace el índice parcial.
type bookingRepo struct {
	mu   sync.RWMutex
	byID map[string]bookings.Booking
	held map[heldKey]string // slot -> booking id
}

type heldKey struct {
	providerID string
	slot       bookings.Slot
}

func NewBookingRepo() bookings.Repository {
	return &bookingRepo{
		byID: make(map[string]bookings.Booking),
		held: make(map[heldKey]string),
	}
}

func (r *bookingRepo) Insert(ctx context.Context, b bookings.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.insertLocked(b)
}

func (r *bookingRepo) insertLocked(b bookings.Booking) error {
	if b.ID == "" {
		return errors.New("booking id required")
	}
	if _, exists := r.byID[b.ID]; exists {
		return errors.New("booking already exists")
	}
	if b.HoldsSlot() {
		k := heldKey{providerID: b.ProviderID, slot: b.Slot}
		if _, taken := r.held[k]; taken {
			return bookings.ErrSlotTaken
		}
		r.held[k] = b.ID
	}
	r.byID[b.ID] = b
	return nil
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byID[id]
	if !ok {
		return bookings.Booking{}, bookings.ErrRecordNotFound
	}
	return b, nil
}

func (r *bookingRepo) ListByOwner(ctx context.Context, ownerUserID string, filter bookings.ListFilter) ([]bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]bookings.Booking, 0)
	for _, b := range r.byID {
		if b.OwnerUserID != ownerUserID {
			continue
		}
		if filter.Kind != "" && b.Kind != filter.Kind {
			continue
		}
		if filter.PetID != "" && b.PetID != filter.PetID {
			continue
		}
		if len(filter.Statuses) > 0 {
			ok := false
			for _, st := range filter.Statuses {
				if b.Status == st {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot.Less(out[j].Slot)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *bookingRepo) ListHeldByProvider(ctx context.Context, providerID string) ([]bookings.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]bookings.Booking, 0)
	for k, id := range r.held {
		if k.providerID == providerID {
			out = append(out, r.byID[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Less(out[j].Slot) })
	return out, nil
}

func (r *bookingRepo) Transition(ctx context.Context, id string, from, to bookings.Status, at time.Time) (bookings.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.transitionLocked(id, from, to, at)
}

func (r *bookingRepo) transitionLocked(id string, from, to bookings.Status, at time.Time) (bookings.Booking, error) {
	b, ok := r.byID[id]
	if !ok {
		return bookings.Booking{}, bookings.ErrRecordNotFound
	}
	if b.Status != from {
		return bookings.Booking{}, bookings.ErrStaleState
	}

	b = b.Transitioned(to, at)
	r.byID[id] = b
	if !b.HoldsSlot() {
		delete(r.held, heldKey{providerID: b.ProviderID, slot: b.Slot})
	}
	return b, nil
}

func (r *bookingRepo) Reschedule(ctx context.Context, oldID string, next bookings.Booking, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.byID[oldID]
	if !ok {
		return bookings.ErrRecordNotFound
	}
	if old.Status != bookings.StatusUpcoming {
		return bookings.ErrStaleState
	}
	// Validar todo antes de mutar: si algo falla, no cambia nada.
	if id, taken := r.held[heldKey{providerID: next.ProviderID, slot: next.Slot}]; taken && id != oldID {
		return bookings.ErrSlotTaken
	}
	if _, exists := r.byID[next.ID]; exists || next.ID == "" {
		return errors.New("invalid replacement booking id")
	}

	if _, err := r.transitionLocked(oldID, bookings.StatusUpcoming, bookings.StatusCancelled, at); err != nil {
		return err
	}
	return r.insertLocked(next)
}
